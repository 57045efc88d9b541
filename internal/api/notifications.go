package api

import (
	"net/http"

	"coinforge/internal/middleware"
	"coinforge/pkg/auth"
	"coinforge/pkg/logger"
	"coinforge/pkg/notify"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type notificationRoutes struct {
	hub *notify.Hub
	a   *auth.TelegramAuth
}

func NewNotificationRoutes(handler *gin.RouterGroup, hub *notify.Hub, a *auth.TelegramAuth) {
	r := &notificationRoutes{hub: hub, a: a}
	h := handler.Group("/notifications")
	h.Use(a.TelegramAuthMiddleware())
	h.Use(middleware.RequireSelf())
	{
		h.GET("/:user_id/subscribe", r.Subscribe)
	}
}

func (r *notificationRoutes) Subscribe(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := r.hub.Subscribe(c.Writer, c.Request, id); err != nil {
		log.Error("failed to upgrade websocket", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
	}
}
