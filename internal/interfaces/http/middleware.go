package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/record-review/internal/domain/entity"
)

// Identity headers set by the authenticating proxy in front of this service
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

const actorKey = "actor"

// identityMiddleware reads the already-resolved actor from request headers
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.Actor{
			ID:   strings.TrimSpace(c.GetHeader(HeaderActorID)),
			Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
			Role: strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderActorRole))),
		}
		if actor.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing " + HeaderActorID + " header",
				Code:    "unauthenticated",
			})
			return
		}
		if actor.Role == "" {
			actor.Role = entity.ActorRoleStaff
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor stored by identityMiddleware
func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, "+HeaderActorID+", "+HeaderActorName+", "+HeaderActorRole)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor_id", actorFrom(c).ID,
		)
	}
}
