package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const actorContextKey = "auth.actor_id"

// Middleware extracts and validates the bearer token, storing the actor ID in
// the request context. Every mutating production endpoint sits behind it; the
// actor ID becomes performed_by / approved_by on the records it touches.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		actorID, err := service.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(actorContextKey, actorID)
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor ID set by Middleware.
func ActorFromContext(c *gin.Context) (uuid.UUID, error) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return uuid.Nil, errors.New("no authenticated actor in context")
	}
	actorID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("malformed actor in context")
	}
	return actorID, nil
}
