package templates

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verdant/cultivation-portal/cultivation-backend/internal/auth"
	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes template catalog endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a template handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers template routes on the given group
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateTemplate)
	r.GET("", h.ListTemplates)
	r.GET("/:id", h.GetTemplate)
	r.POST("/:id/archive", h.ArchiveTemplate)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, err := auth.ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	template, err := h.service.CreateTemplate(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"

	result, err := h.service.ListTemplates(c.Request.Context(), includeArchived)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	template, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) ArchiveTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	if err := h.service.ArchiveTemplate(c.Request.Context(), id); err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}
