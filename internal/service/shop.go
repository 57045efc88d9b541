package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"
	"coinforge/pkg/logger"
	"coinforge/pkg/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRewardNotFound      = errors.New("reward not found")
	ErrAlreadyOwned        = errors.New("reward already owned")
	ErrOutOfStock          = errors.New("reward out of stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRewardUsed          = errors.New("reward already used")
	ErrRewardExpired       = errors.New("reward expired")
	ErrNotRewardOwner      = errors.New("reward belongs to another user")
)

// activationHandler applies one reward type's digital payload.
type activationHandler func(ctx context.Context, owned *model.OwnedReward, item *model.RewardCatalogItem) error

// RewardShop sells catalog items for coins. Purchases are stock-safe: the
// coin debit, the stock decrement and the ownership insert commit together
// or not at all.
type RewardShop struct {
	repo     ShopRepository
	badges   BadgeAwarder
	notifier notify.Dispatcher
	activity ActivityFeed

	handlers map[model.RewardType]activationHandler
}

func NewRewardShop(repo ShopRepository, badges BadgeAwarder, notifier notify.Dispatcher, activity ActivityFeed) (*RewardShop, error) {
	s := &RewardShop{
		repo:     repo,
		badges:   badges,
		notifier: notifier,
		activity: activity,
	}

	s.handlers = map[model.RewardType]activationHandler{
		model.RewardBadge:         s.activateBadge,
		model.RewardTheme:         s.activateCosmetic,
		model.RewardAvatar:        s.activateCosmetic,
		model.RewardFrame:         s.activateCosmetic,
		model.RewardDiscountCode:  s.activateCode,
		model.RewardGiftCard:      s.activateCode,
		model.RewardAdFree:        s.activateTimeLimited,
		model.RewardPremiumStats:  s.activateTimeLimited,
		model.RewardCustomProfile: s.activateTimeLimited,
	}

	// The reward type set is closed; refuse to start with a type nobody
	// handles.
	for _, t := range model.AllRewardTypes {
		if _, ok := s.handlers[t]; !ok {
			return nil, fmt.Errorf("no activation handler for reward type %q", t)
		}
	}

	return s, nil
}

func (s *RewardShop) activateBadge(ctx context.Context, owned *model.OwnedReward, item *model.RewardCatalogItem) error {
	badge, _ := item.Payload["badge"].(string)
	if badge == "" {
		badge = item.Name
	}
	return s.badges.Award(ctx, owned.UserID, badge, "shop")
}

// activateCosmetic announces the grant; applying a theme, avatar or frame to
// the profile is the presentation layer's job, the ownership row is the
// grant itself.
func (s *RewardShop) activateCosmetic(ctx context.Context, owned *model.OwnedReward, item *model.RewardCatalogItem) error {
	s.notifier.Notify(ctx, notify.Notification{
		UserID:  owned.UserID,
		Type:    "reward_activated",
		Title:   fmt.Sprintf("%s unlocked", item.Name),
		Message: "Your new look is ready to use.",
		Metadata: map[string]any{
			"owned_reward_id": owned.ID.String(),
			"reward_type":     string(item.Type),
		},
	})
	return nil
}

func (s *RewardShop) activateCode(ctx context.Context, owned *model.OwnedReward, item *model.RewardCatalogItem) error {
	if owned.RedemptionCode == nil {
		return fmt.Errorf("owned reward %s has no redemption code", owned.ID)
	}
	s.notifier.Notify(ctx, notify.Notification{
		UserID:  owned.UserID,
		Type:    "reward_code",
		Title:   fmt.Sprintf("Your %s code", item.Name),
		Message: *owned.RedemptionCode,
		Metadata: map[string]any{
			"owned_reward_id": owned.ID.String(),
		},
	})
	return nil
}

func (s *RewardShop) activateTimeLimited(ctx context.Context, owned *model.OwnedReward, item *model.RewardCatalogItem) error {
	s.notifier.Notify(ctx, notify.Notification{
		UserID:  owned.UserID,
		Type:    "reward_activated",
		Title:   fmt.Sprintf("%s enabled", item.Name),
		Metadata: map[string]any{
			"owned_reward_id": owned.ID.String(),
			"expires_at":      owned.ExpiresAt,
		},
	})
	return nil
}

// ListAvailable annotates each active catalog item with whether it is in
// stock and whether the user can afford it right now. An empty sort means
// cheapest first.
func (s *RewardShop) ListAvailable(ctx context.Context, userID int64, typeFilter *model.RewardType, sort model.RewardSort) ([]*model.RewardCatalogItem, error) {
	if sort != "" && !sort.Valid() {
		return nil, ErrInvalidInput
	}

	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	items, err := s.repo.ListRewards(ctx, typeFilter, sort)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		item.InStock = item.Stock == nil || *item.Stock > 0
		item.CanAfford = item.Price <= acc.Balance
	}

	return items, nil
}

// Purchase buys one catalog item. Unique-ownership types activate
// immediately; consumables get a generated redemption code; time-limited
// types get their expiry computed here. All monetary effects are one
// repository transaction.
func (s *RewardShop) Purchase(ctx context.Context, userID int64, rewardID uuid.UUID) (*model.OwnedReward, error) {
	item, err := s.repo.GetReward(ctx, rewardID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	if !item.Active {
		return nil, ErrRewardNotFound
	}

	now := time.Now().UTC()
	owned := &model.OwnedReward{
		ID:          uuid.New(),
		UserID:      userID,
		RewardID:    rewardID,
		CoinsPaid:   item.Price,
		PurchasedAt: now,
		Item:        item,
	}

	switch {
	case item.Type.UniqueOwnership():
		owned.IsUsed = true
		owned.UsedAt = &now
	case item.Type.Consumable():
		code := uuid.NewString()
		owned.RedemptionCode = &code
	case item.Type.TimeLimited():
		days := 30
		if item.DurationDays != nil {
			days = *item.DurationDays
		}
		expires := now.AddDate(0, 0, days)
		owned.ExpiresAt = &expires
	}

	entry := newEntry(userID, -item.Price, model.EntrySpent, model.ReasonShopPurchase, map[string]any{
		"reward_id":       rewardID.String(),
		"owned_reward_id": owned.ID.String(),
	})

	if err := s.repo.PurchaseReward(ctx, owned, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRewardNotFound
		case errors.Is(err, repository.ErrOutOfStock):
			return nil, ErrOutOfStock
		case errors.Is(err, repository.ErrAlreadyOwned):
			return nil, ErrAlreadyOwned
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	runHooks(ctx,
		func(ctx context.Context) {
			if !item.Type.UniqueOwnership() {
				return
			}
			if err := s.handlers[item.Type](ctx, owned, item); err != nil {
				logger.Logger().Error("failed to activate purchased reward",
					zap.String("owned_reward_id", owned.ID.String()), zap.Error(err))
			}
		},
		func(ctx context.Context) {
			s.notifier.Notify(ctx, notify.Notification{
				UserID:  userID,
				Type:    "reward_purchased",
				Title:   fmt.Sprintf("You bought %s", item.Name),
				Message: fmt.Sprintf("%d coins spent.", item.Price),
				Metadata: map[string]any{
					"owned_reward_id": owned.ID.String(),
				},
			})
		},
		func(ctx context.Context) {
			s.activity.Record(ctx, userID, model.MetricPurchases, 1)
		},
	)

	return owned, nil
}

// Activate applies a reward that was not auto-activated at purchase. The
// used flag flips through a conditional update; expired or already used
// rewards surface distinct errors.
func (s *RewardShop) Activate(ctx context.Context, userID int64, ownedID uuid.UUID) error {
	owned, err := s.repo.GetOwnedReward(ctx, ownedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRewardNotFound
		}
		return err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkRewardUsed(ctx, ownedID, userID, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrRewardNotFound
		case errors.Is(err, repository.ErrNotOwner):
			return ErrNotRewardOwner
		case errors.Is(err, repository.ErrRewardAlreadyUsed):
			return ErrRewardUsed
		case errors.Is(err, repository.ErrRewardExpired):
			return ErrRewardExpired
		}
		return err
	}

	runHooks(ctx, func(ctx context.Context) {
		if err := s.handlers[owned.Item.Type](ctx, owned, owned.Item); err != nil {
			logger.Logger().Error("failed to run activation handler",
				zap.String("owned_reward_id", ownedID.String()), zap.Error(err))
		}
	})

	return nil
}

// Refund returns the coins for an unused reward, restores finite stock and
// deletes the ownership record, atomically.
func (s *RewardShop) Refund(ctx context.Context, userID int64, ownedID uuid.UUID, reason string) error {
	entry := newEntry(userID, 0, model.EntryRefund, model.ReasonShopRefund, map[string]any{
		"owned_reward_id": ownedID.String(),
		"refund_reason":   reason,
	})

	refunded, err := s.repo.RefundReward(ctx, ownedID, userID, entry)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrRewardNotFound
		case errors.Is(err, repository.ErrNotOwner):
			return ErrNotRewardOwner
		case errors.Is(err, repository.ErrRewardAlreadyUsed):
			return ErrRewardUsed
		}
		return err
	}

	runHooks(ctx, func(ctx context.Context) {
		s.notifier.Notify(ctx, notify.Notification{
			UserID:  userID,
			Type:    "reward_refunded",
			Title:   "Purchase refunded",
			Message: fmt.Sprintf("%d coins returned to your balance.", refunded.CoinsPaid),
			Metadata: map[string]any{
				"owned_reward_id": ownedID.String(),
			},
		})
	})

	return nil
}

func (s *RewardShop) ListOwned(ctx context.Context, userID int64) ([]*model.OwnedReward, error) {
	return s.repo.ListOwnedRewards(ctx, userID)
}
