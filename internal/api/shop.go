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

type shopRoutes struct {
	rs *service.RewardShop
	a  *auth.TelegramAuth
}

func NewShopRoutes(handler *gin.RouterGroup, rs *service.RewardShop, a *auth.TelegramAuth) {
	r := &shopRoutes{rs: rs, a: a}
	h := handler.Group("/shop")
	h.Use(a.TelegramAuthMiddleware())
	h.Use(middleware.RequireSelf())
	{
		h.GET("/:user_id/rewards", r.ListAvailable)
		h.GET("/:user_id/owned", r.ListOwned)
		h.POST("/:user_id/purchase/:reward_id", r.Purchase)
		h.POST("/:user_id/activate/:owned_id", r.Activate)
		h.POST("/:user_id/refund/:owned_id", r.Refund)
	}
}

type RewardItemResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Price        int    `json:"price"`
	Stock        *int   `json:"stock,omitempty"`
	DurationDays *int   `json:"duration_days,omitempty"`
	InStock      bool   `json:"in_stock"`
	CanAfford    bool   `json:"can_afford"`
}

type OwnedRewardResponse struct {
	ID             string     `json:"id"`
	RewardID       string     `json:"reward_id"`
	CoinsPaid      int        `json:"coins_paid"`
	IsUsed         bool       `json:"is_used"`
	RedemptionCode *string    `json:"redemption_code,omitempty"`
	PurchasedAt    time.Time  `json:"purchased_at"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func ownedRewardResponse(o *model.OwnedReward) OwnedRewardResponse {
	return OwnedRewardResponse{
		ID:             o.ID.String(),
		RewardID:       o.RewardID.String(),
		CoinsPaid:      o.CoinsPaid,
		IsUsed:         o.IsUsed,
		RedemptionCode: o.RedemptionCode,
		PurchasedAt:    o.PurchasedAt,
		UsedAt:         o.UsedAt,
		ExpiresAt:      o.ExpiresAt,
	}
}

func (r *shopRoutes) ListAvailable(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	var typeFilter *model.RewardType
	if t := c.Query("type"); t != "" {
		rt := model.RewardType(t)
		typeFilter = &rt
	}
	sort := model.RewardSort(c.Query("sort"))

	items, err := r.rs.ListAvailable(c.Request.Context(), id, typeFilter, sort)
	if err != nil {
		log.Error("failed to list rewards", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rewards"})
		}
		return
	}

	response := make([]RewardItemResponse, len(items))
	for i, item := range items {
		response[i] = RewardItemResponse{
			ID:           item.ID.String(),
			Name:         item.Name,
			Description:  item.Description,
			Type:         string(item.Type),
			Price:        item.Price,
			Stock:        item.Stock,
			DurationDays: item.DurationDays,
			InStock:      item.InStock,
			CanAfford:    item.CanAfford,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (r *shopRoutes) ListOwned(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	owned, err := r.rs.ListOwned(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to list owned rewards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list owned rewards"})
		return
	}

	response := make([]OwnedRewardResponse, len(owned))
	for i, o := range owned {
		response[i] = ownedRewardResponse(o)
	}

	c.JSON(http.StatusOK, response)
}

func (r *shopRoutes) Purchase(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	rewardID, err := uuid.Parse(c.Param("reward_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reward_id"})
		return
	}

	owned, err := r.rs.Purchase(c.Request.Context(), id, rewardID)
	if err != nil {
		log.Error("failed to purchase reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "reward not found"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrAlreadyOwned):
			c.JSON(http.StatusConflict, gin.H{"error": "reward already owned"})
		case errors.Is(err, service.ErrOutOfStock):
			c.JSON(http.StatusConflict, gin.H{"error": "reward out of stock"})
		case errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient balance"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purchase reward"})
		}
		return
	}

	c.JSON(http.StatusCreated, ownedRewardResponse(owned))
}

func (r *shopRoutes) Activate(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	ownedID, err := uuid.Parse(c.Param("owned_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owned_id"})
		return
	}

	if err := r.rs.Activate(c.Request.Context(), id, ownedID); err != nil {
		log.Error("failed to activate reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "owned reward not found"})
		case errors.Is(err, service.ErrNotRewardOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "reward belongs to another user"})
		case errors.Is(err, service.ErrRewardUsed):
			c.JSON(http.StatusConflict, gin.H{"error": "reward already used"})
		case errors.Is(err, service.ErrRewardExpired):
			c.JSON(http.StatusConflict, gin.H{"error": "reward expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate reward"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *shopRoutes) Refund(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseUserID(c)
	if !ok {
		return
	}

	ownedID, err := uuid.Parse(c.Param("owned_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owned_id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := r.rs.Refund(c.Request.Context(), id, ownedID, req.Reason); err != nil {
		log.Error("failed to refund reward", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "owned reward not found"})
		case errors.Is(err, service.ErrNotRewardOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "reward belongs to another user"})
		case errors.Is(err, service.ErrRewardUsed):
			c.JSON(http.StatusConflict, gin.H{"error": "reward already used"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refund reward"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
