package orders

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verdant/cultivation-portal/cultivation-backend/internal/auth"
	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes production order endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the order routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/activities", h.ListActivities)
		orders.POST("/:id/activate", h.Activate)
		orders.POST("/:id/phases/:phaseId/complete", h.CompletePhase)
		orders.POST("/:id/cancel", h.Cancel)
	}
	rg.POST("/activities/:id/complete", h.CompleteActivity)
}

func (h *Handler) Create(c *gin.Context) {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) List(c *gin.Context) {
	filters := &OrderFilters{}
	if v := c.Query("status"); v != "" {
		filters.Status = &v
	}
	if v := c.Query("priority"); v != "" {
		filters.Priority = &v
	}
	if v := c.Query("template_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template_id"})
			return
		}
		filters.TemplateID = &id
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListActivities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var status *string
	if v := c.Query("status"); v != "" {
		status = &v
	}
	activities, err := h.service.ListActivities(c.Request.Context(), id, status)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (h *Handler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	req := &ActivateOrderRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	order, err := h.service.Activate(c.Request.Context(), id, actor, req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CompletePhase(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	phaseID, err := uuid.Parse(c.Param("phaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}
	if _, err := auth.ActorFromContext(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	order, err := h.service.CompletePhase(c.Request.Context(), orderID, phaseID)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.service.Cancel(c.Request.Context(), id, actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CompleteActivity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	req := &CompleteActivityRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	activity, err := h.service.CompleteActivity(c.Request.Context(), id, actor, req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}
