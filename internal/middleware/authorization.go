package middleware

import (
	"net/http"
	"strconv"

	"coinforge/pkg/auth"
	"coinforge/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireSelf rejects requests whose :user_id path parameter does not match
// the authenticated user. Ownership checks inside the services still apply;
// this just fails the obvious case before any work happens.
func RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		user, ok := auth.CurrentUser(c)
		if !ok {
			log.Error("authenticated user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		pathID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}

		if pathID != user.ID {
			log.Info("user attempted to act on another account",
				zap.Int64("auth_id", user.ID), zap.Int64("path_id", pathID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
