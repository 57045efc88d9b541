package api

import (
	"context"
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
	"github.com/google/uuid"
)

type questRoutes struct {
	qs service.QuestEngineI
	a  *auth.TelegramAuth
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestEngineI, a *auth.TelegramAuth) {
	r := &questRoutes{qs: qs, a: a}
	h := handler.Group("/quests")
	h.Use(a.TelegramAuthMiddleware())
	h.Use(middleware.RequireSelf())
	{
		h.POST("/:user_id/daily", r.AssignDaily)
		h.POST("/:user_id/weekly", r.AssignWeekly)
		h.POST("/:user_id/progress", r.UpdateProgress)
		h.POST("/:user_id/claim/:assignment_id", r.ClaimReward)
	}
}

type QuestAssignmentResponse struct {
	ID            string     `json:"id"`
	QuestID       string     `json:"quest_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	TargetType    string     `json:"target_type"`
	TargetValue   int        `json:"target_value"`
	CoinReward    int        `json:"coin_reward"`
	XPReward      int        `json:"xp_reward"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	RewardClaimed bool       `json:"reward_claimed"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func assignmentResponses(assignments []*model.QuestAssignment) []QuestAssignmentResponse {
	response := make([]QuestAssignmentResponse, len(assignments))
	for i, a := range assignments {
		response[i] = QuestAssignmentResponse{
			ID:            a.ID.String(),
			QuestID:       a.QuestID.String(),
			Progress:      a.Progress,
			Completed:     a.Completed,
			RewardClaimed: a.RewardClaimed,
			ExpiresAt:     a.ExpiresAt,
			CompletedAt:   a.CompletedAt,
		}
		if a.Definition != nil {
			response[i].Title = a.Definition.Title
			response[i].Description = a.Definition.Description
			response[i].TargetType = string(a.Definition.TargetType)
			response[i].TargetValue = a.Definition.TargetValue
			response[i].CoinReward = a.Definition.CoinReward
			response[i].XPReward = a.Definition.XPReward
		}
	}
	return response
}

func (r *questRoutes) AssignDaily(c *gin.Context) {
	r.assign(c, r.qs.AssignDaily)
}

func (r *questRoutes) AssignWeekly(c *gin.Context) {
	r.assign(c, r.qs.AssignWeekly)
}

func (r *questRoutes) assign(c *gin.Context, assign func(ctx context.Context, userID int64) ([]*model.QuestAssignment, error)) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	assignments, err := assign(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to assign quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign quests"})
		return
	}

	c.JSON(http.StatusOK, assignmentResponses(assignments))
}

func (r *questRoutes) UpdateProgress(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		TargetType string `json:"target_type" binding:"required"`
		Delta      int    `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := r.qs.UpdateProgress(c.Request.Context(), id, model.MetricType(req.TargetType), req.Delta)
	if err != nil {
		log.Error("failed to update quest progress", zap.Error(err))
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delta must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update progress"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *questRoutes) ClaimReward(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	assignmentID, err := uuid.Parse(c.Param("assignment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment_id"})
		return
	}

	claimed, err := r.qs.ClaimReward(c.Request.Context(), assignmentID, id)
	if err != nil {
		log.Error("failed to claim quest reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
		case errors.Is(err, service.ErrNotAssignmentOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "assignment belongs to another user"})
		case errors.Is(err, service.ErrQuestNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "quest not completed yet"})
		case errors.Is(err, service.ErrRewardAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "reward already claimed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim reward"})
		}
		return
	}

	c.JSON(http.StatusOK, assignmentResponses([]*model.QuestAssignment{claimed})[0])
}
