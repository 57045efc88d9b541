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
	"github.com/google/uuid"
)

type gameRoutes struct {
	ga *service.GameArena
	a  *auth.TelegramAuth
}

func NewGameRoutes(handler *gin.RouterGroup, ga *service.GameArena, a *auth.TelegramAuth) {
	r := &gameRoutes{ga: ga, a: a}
	h := handler.Group("/games")
	{
		h.GET("/:game_code/leaderboard", r.GetLeaderboard)

		sessions := h.Group("/sessions")
		sessions.Use(a.TelegramAuthMiddleware())
		sessions.Use(middleware.RequireSelf())
		{
			sessions.POST("/:user_id/start", r.StartSession)
			sessions.POST("/:user_id/complete/:session_id", r.CompleteSession)
			sessions.DELETE("/:user_id/cancel/:session_id", r.CancelSession)
		}
	}
}

type GameSessionResponse struct {
	ID          string     `json:"id"`
	GameCode    string     `json:"game_code"`
	Score       int        `json:"score"`
	CoinsEarned int        `json:"coins_earned"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type SessionResultResponse struct {
	Session      GameSessionResponse `json:"session"`
	CoinsEarned  int                 `json:"coins_earned"`
	PersonalBest bool                `json:"personal_best"`
	DailyRank    int                 `json:"daily_rank"`
	WeeklyRank   int                 `json:"weekly_rank"`
	AllTimeRank  int                 `json:"all_time_rank"`
}

type LeaderboardRowResponse struct {
	Rank      int   `json:"rank"`
	UserID    int64 `json:"user_id"`
	BestScore int   `json:"best_score"`
}

func gameSessionResponse(s *model.GameSession) GameSessionResponse {
	return GameSessionResponse{
		ID:          s.ID.String(),
		GameCode:    s.GameCode,
		Score:       s.Score,
		CoinsEarned: s.CoinsEarned,
		Completed:   s.Completed,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

func (r *gameRoutes) StartSession(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		GameCode string `json:"game_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_code is required"})
		return
	}

	session, err := r.ga.StartSession(c.Request.Context(), id, req.GameCode)
	if err != nil {
		log.Error("failed to start session", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrUnknownGame):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown game"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrDailyLimitReached):
			c.JSON(http.StatusConflict, gin.H{"error": "daily play limit reached"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		}
		return
	}

	c.JSON(http.StatusCreated, gameSessionResponse(session))
}

func (r *gameRoutes) CompleteSession(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
		return
	}

	var req struct {
		Score int            `json:"score"`
		Data  map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := r.ga.CompleteSession(c.Request.Context(), sessionID, id, req.Score, req.Data)
	if err != nil {
		log.Error("failed to complete session", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "score must not be negative"})
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrNotSessionOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another user"})
		case errors.Is(err, service.ErrSessionCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete session"})
		}
		return
	}

	c.JSON(http.StatusOK, SessionResultResponse{
		Session:      gameSessionResponse(result.Session),
		CoinsEarned:  result.CoinsEarned,
		PersonalBest: result.PersonalBest,
		DailyRank:    result.DailyRank,
		WeeklyRank:   result.WeeklyRank,
		AllTimeRank:  result.AllTimeRank,
	})
}

func (r *gameRoutes) CancelSession(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
		return
	}

	if err := r.ga.CancelSession(c.Request.Context(), sessionID, id); err != nil {
		log.Error("failed to cancel session", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, service.ErrNotSessionOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another user"})
		case errors.Is(err, service.ErrSessionCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel session"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *gameRoutes) GetLeaderboard(c *gin.Context) {
	log := logger.Logger()

	period := model.LeaderboardPeriod(c.DefaultQuery("period", string(model.LeaderboardAllTime)))
	switch period {
	case model.LeaderboardDaily, model.LeaderboardWeekly, model.LeaderboardAllTime:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	rows, err := r.ga.GetLeaderboard(c.Request.Context(), c.Param("game_code"), period, limit)
	if err != nil {
		log.Error("failed to get leaderboard", zap.Error(err))
		if errors.Is(err, service.ErrUnknownGame) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown game"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	response := make([]LeaderboardRowResponse, len(rows))
	for i, row := range rows {
		response[i] = LeaderboardRowResponse{
			Rank:      row.Rank,
			UserID:    row.UserID,
			BestScore: row.BestScore,
		}
	}

	c.JSON(http.StatusOK, response)
}
