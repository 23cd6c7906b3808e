package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes authentication endpoints
type Handler struct {
	service *Service
}

// NewHandler creates an auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public auth routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
}

// RegisterProtectedRoutes registers routes requiring a valid token
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *Handler) Me(c *gin.Context) {
	actorID, err := ActorFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), actorID)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
