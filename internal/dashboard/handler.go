package dashboard

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"verdant/cultivation-portal/cultivation-backend/internal/httputil"
)

// Handler exposes dashboard endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the dashboard routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	dash := rg.Group("/dashboard")
	{
		dash.GET("/summary", h.Summary)
		dash.GET("/utilization", h.Utilization)
		dash.GET("/upcoming", h.Upcoming)
		dash.GET("/progress", h.Progress)
		dash.GET("/export/excel", h.ExportExcel)
		dash.GET("/export/pdf", h.ExportPDF)
	}
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Utilization(c *gin.Context) {
	rows, err := h.service.Utilization(c.Request.Context())
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"areas": rows})
}

func (h *Handler) Upcoming(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := h.service.UpcomingActivities(c.Request.Context(), days, limit)
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": rows})
}

func (h *Handler) Progress(c *gin.Context) {
	rows, err := h.service.OrderProgress(c.Request.Context())
	if err != nil {
		httputil.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

func (h *Handler) ExportExcel(c *gin.Context) {
	filename := fmt.Sprintf("production-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.service.ExportExcel(c.Request.Context(), c.Writer); err != nil {
		httputil.AbortWithError(c, err)
	}
}

func (h *Handler) ExportPDF(c *gin.Context) {
	filename := fmt.Sprintf("production-%s.pdf", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/pdf")

	if err := h.service.ExportPDF(c.Request.Context(), c.Writer); err != nil {
		httputil.AbortWithError(c, err)
	}
}
