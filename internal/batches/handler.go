package batches

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verdant/cultivation-portal/cultivation-backend/internal/auth"
	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes batch and plant ledger endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the batch routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/batches")
	{
		batches.GET("", h.List)
		batches.GET("/:id", h.Get)
		batches.GET("/:id/plants", h.ListPlants)
		batches.POST("/:id/losses", h.RecordLoss)
		batches.POST("/:id/move", h.Move)
		batches.POST("/:id/transfers", h.Transfer)
		batches.POST("/:id/harvest", h.Harvest)
	}
	rg.POST("/clones", h.Clone)
	rg.POST("/plants/:id/harvest", h.HarvestPlant)
}

func (h *Handler) List(c *gin.Context) {
	var orderID, areaID *uuid.UUID
	if raw := c.Query("order_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_id"})
			return
		}
		orderID = &id
	}
	if raw := c.Query("area_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid area_id"})
			return
		}
		areaID = &id
	}

	result, err := h.service.ListBatches(c.Request.Context(), orderID, areaID)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": result})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *Handler) ListPlants(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	plants, err := h.service.ListPlants(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plants": plants})
}

func (h *Handler) RecordLoss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req RecordLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.RecordLoss(c.Request.Context(), id, actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *Handler) Move(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req MoveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.MoveBatch(c.Request.Context(), id, actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *Handler) Transfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req TransferPlantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.TransferPlants(c.Request.Context(), id, actor, &req); err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plants transferred"})
}

func (h *Handler) Clone(c *gin.Context) {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req CloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.Clone(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (h *Handler) Harvest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req HarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batch, err := h.service.HarvestBatch(c.Request.Context(), id, actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (h *Handler) HarvestPlant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req HarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.HarvestPlant(c.Request.Context(), id, actor, &req); err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plant harvested"})
}
