package api

import (
	"errors"
	"net/http"
	"time"

	"coinforge/internal/middleware"
	"coinforge/internal/model"
	"coinforge/internal/service"
	"coinforge/pkg/auth"
	"coinforge/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type streakRoutes struct {
	st service.StreakTrackerI
	a  *auth.TelegramAuth
}

func NewStreakRoutes(handler *gin.RouterGroup, st service.StreakTrackerI, a *auth.TelegramAuth) {
	r := &streakRoutes{st: st, a: a}
	h := handler.Group("/streak")
	h.Use(a.TelegramAuthMiddleware())
	h.Use(middleware.RequireSelf())
	{
		h.GET("/:user_id", r.GetStatus)
		h.POST("/:user_id/activity", r.RecordActivity)
	}
}

type MilestoneResponse struct {
	Days       int    `json:"days"`
	CoinReward int    `json:"coin_reward"`
	XPReward   int    `json:"xp_reward"`
	Badge      string `json:"badge,omitempty"`
}

type StreakStatusResponse struct {
	UserID         int64              `json:"user_id"`
	Streak         int                `json:"streak"`
	LastActiveDate *time.Time         `json:"last_active_date,omitempty"`
	NextMilestone  *MilestoneResponse `json:"next_milestone,omitempty"`
}

func streakStatusResponse(status *model.StreakStatus) StreakStatusResponse {
	response := StreakStatusResponse{
		UserID:         status.UserID,
		Streak:         status.Streak,
		LastActiveDate: status.LastActiveDate,
	}
	if status.NextMilestone != nil {
		response.NextMilestone = &MilestoneResponse{
			Days:       status.NextMilestone.Days,
			CoinReward: status.NextMilestone.CoinReward,
			XPReward:   status.NextMilestone.XPReward,
			Badge:      status.NextMilestone.Badge,
		}
	}
	return response
}

func (r *streakRoutes) GetStatus(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	status, err := r.st.GetStatus(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get streak status", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get streak status"})
		return
	}

	c.JSON(http.StatusOK, streakStatusResponse(status))
}

func (r *streakRoutes) RecordActivity(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	status, err := r.st.RecordActivity(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		log.Error("failed to record activity", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record activity"})
		return
	}

	c.JSON(http.StatusOK, streakStatusResponse(status))
}
