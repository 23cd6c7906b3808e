package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes catalog endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a catalog handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers catalog routes on the given group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/crop-types", h.CreateCropType)
	r.GET("/crop-types", h.ListCropTypes)
	r.GET("/crop-types/:id", h.GetCropType)

	r.POST("/cultivars", h.CreateCultivar)
	r.GET("/cultivars", h.ListCultivars)
	r.GET("/cultivars/:id", h.GetCultivar)
}

func (h *Handler) CreateCropType(c *gin.Context) {
	var req CreateCropTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	crop, err := h.service.CreateCropType(c.Request.Context(), &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, crop)
}

func (h *Handler) ListCropTypes(c *gin.Context) {
	crops, err := h.service.ListCropTypes(c.Request.Context())
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, crops)
}

func (h *Handler) GetCropType(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid crop type id"})
		return
	}

	crop, err := h.service.GetCropType(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, crop)
}

func (h *Handler) CreateCultivar(c *gin.Context) {
	var req CreateCultivarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cultivar, err := h.service.CreateCultivar(c.Request.Context(), &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cultivar)
}

func (h *Handler) ListCultivars(c *gin.Context) {
	var cropTypeID *uuid.UUID
	if raw := c.Query("crop_type_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid crop_type_id"})
			return
		}
		cropTypeID = &id
	}

	cultivars, err := h.service.ListCultivars(c.Request.Context(), cropTypeID)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cultivars)
}

func (h *Handler) GetCultivar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cultivar id"})
		return
	}

	cultivar, err := h.service.GetCultivar(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cultivar)
}
