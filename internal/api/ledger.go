package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"coinforge/internal/middleware"
	"coinforge/internal/model"
	"coinforge/internal/service"
	"coinforge/pkg/auth"
	"coinforge/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type ledgerRoutes struct {
	ls service.LedgerServiceI
	a  *auth.TelegramAuth
}

func NewLedgerRoutes(handler *gin.RouterGroup, ls service.LedgerServiceI, a *auth.TelegramAuth) {
	r := &ledgerRoutes{ls: ls, a: a}
	h := handler.Group("/wallet")
	h.Use(a.TelegramAuthMiddleware())
	h.Use(middleware.RequireSelf())
	{
		h.POST("/:user_id", r.OpenAccount)
		h.GET("/:user_id", r.GetAccount)
		h.GET("/:user_id/balance", r.GetBalance)
		h.GET("/:user_id/history", r.GetHistory)
		h.GET("/:user_id/stats", r.GetStats)
	}
}

type BalanceResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int   `json:"balance"`
}

type AccountResponse struct {
	UserID         int64      `json:"user_id"`
	Balance        int        `json:"balance"`
	Experience     int        `json:"experience"`
	Level          int        `json:"level"`
	Streak         int        `json:"streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func accountResponse(acc *model.Account) AccountResponse {
	return AccountResponse{
		UserID:         acc.UserID,
		Balance:        acc.Balance,
		Experience:     acc.Experience,
		Level:          acc.Level,
		Streak:         acc.Streak,
		LastActiveDate: acc.LastActiveDate,
		CreatedAt:      acc.CreatedAt,
	}
}

type LedgerEntryResponse struct {
	ID        string         `json:"id"`
	Amount    int            `json:"amount"`
	Kind      string         `json:"kind"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type LedgerStatsResponse struct {
	UserID   int64  `json:"user_id"`
	Period   string `json:"period"`
	Earned   int    `json:"earned"`
	Spent    int    `json:"spent"`
	Bonus    int    `json:"bonus"`
	Refunded int    `json:"refunded"`
	Net      int    `json:"net"`
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.ParseUint(raw, 10, 31)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, strconv.ErrRange
	}
	return int(v), nil
}

func (r *ledgerRoutes) OpenAccount(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	acc, err := r.ls.OpenAccount(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to open account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open account"})
		return
	}

	c.JSON(http.StatusCreated, accountResponse(acc))
}

func (r *ledgerRoutes) GetAccount(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	acc, err := r.ls.GetAccount(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get account", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get account"})
		return
	}

	c.JSON(http.StatusOK, accountResponse(acc))
}

func (r *ledgerRoutes) GetBalance(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	balance, err := r.ls.GetBalance(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get balance", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{UserID: id, Balance: balance})
}

func (r *ledgerRoutes) GetHistory(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	filter := model.HistoryFilter{Limit: 50}
	if kind := c.Query("kind"); kind != "" {
		filter.Kinds = []model.EntryKind{model.EntryKind(kind)}
	}
	if limit, err := strconv.ParseUint(c.DefaultQuery("limit", "50"), 10, 32); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.ParseUint(c.DefaultQuery("offset", "0"), 10, 32); err == nil {
		filter.Offset = offset
	}

	entries, err := r.ls.GetHistory(c.Request.Context(), id, filter)
	if err != nil {
		log.Error("failed to get ledger history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}

	response := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = LedgerEntryResponse{
			ID:        e.ID.String(),
			Amount:    e.Amount,
			Kind:      string(e.Kind),
			Reason:    e.Reason,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (r *ledgerRoutes) GetStats(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	period := model.StatsPeriod(c.DefaultQuery("period", string(model.PeriodAll)))

	stats, err := r.ls.GetStats(c.Request.Context(), id, period)
	if err != nil {
		log.Error("failed to get ledger stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, LedgerStatsResponse{
		UserID:   stats.UserID,
		Period:   string(period),
		Earned:   stats.Earned,
		Spent:    stats.Spent,
		Bonus:    stats.Bonus,
		Refunded: stats.Refunded,
		Net:      stats.Net,
	})
}
