package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"verdant/cultivation-portal/cultivation-backend/internal/domain"
)

// AbortWithError maps domain sentinel errors to HTTP responses.
func AbortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrInvalidPhaseState):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrIncompatibleCultivar),
		errors.Is(err, domain.ErrMissingTargetArea),
		errors.Is(err, domain.ErrCapacityExceeded):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvariantViolation):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
