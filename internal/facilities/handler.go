package facilities

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes area endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a facilities handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers area routes on the given group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/areas", h.CreateArea)
	r.GET("/areas", h.ListAreas)
	r.GET("/areas/:id", h.GetArea)
	r.GET("/utilization", h.Utilization)
}

func (h *Handler) CreateArea(c *gin.Context) {
	var req CreateAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	area, err := h.service.CreateArea(c.Request.Context(), &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, area)
}

func (h *Handler) ListAreas(c *gin.Context) {
	var areaType *string
	if raw := c.Query("area_type"); raw != "" {
		areaType = &raw
	}

	areas, err := h.service.ListAreas(c.Request.Context(), areaType)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, areas)
}

func (h *Handler) GetArea(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid area id"})
		return
	}

	area, err := h.service.GetArea(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, area)
}

func (h *Handler) Utilization(c *gin.Context) {
	util, err := h.service.Utilization(c.Request.Context())
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, util)
}
