package model

import (
	"time"

	"github.com/google/uuid"
)

type RewardType string

const (
	RewardBadge         RewardType = "badge"
	RewardTheme         RewardType = "theme"
	RewardAvatar        RewardType = "avatar"
	RewardFrame         RewardType = "frame"
	RewardDiscountCode  RewardType = "discount_code"
	RewardGiftCard      RewardType = "gift_card"
	RewardAdFree        RewardType = "ad_free"
	RewardPremiumStats  RewardType = "premium_stats"
	RewardCustomProfile RewardType = "custom_profile"
)

// AllRewardTypes is the closed set of reward types. The shop refuses to
// start with a catalog type that has no activation handler registered.
var AllRewardTypes = []RewardType{
	RewardBadge, RewardTheme, RewardAvatar, RewardFrame,
	RewardDiscountCode, RewardGiftCard,
	RewardAdFree, RewardPremiumStats, RewardCustomProfile,
}

// UniqueOwnership reports whether a user may hold at most one of this type
// per catalog item. Unique types activate immediately at purchase.
func (t RewardType) UniqueOwnership() bool {
	switch t {
	case RewardBadge, RewardTheme, RewardAvatar, RewardFrame:
		return true
	}
	return false
}

func (t RewardType) Consumable() bool {
	switch t {
	case RewardDiscountCode, RewardGiftCard:
		return true
	}
	return false
}

func (t RewardType) TimeLimited() bool {
	switch t {
	case RewardAdFree, RewardPremiumStats, RewardCustomProfile:
		return true
	}
	return false
}

type RewardSort string

const (
	SortPriceAsc  RewardSort = "price_asc"
	SortPriceDesc RewardSort = "price_desc"
	SortName      RewardSort = "name"
	SortNewest    RewardSort = "newest"
)

func (s RewardSort) Valid() bool {
	switch s {
	case SortPriceAsc, SortPriceDesc, SortName, SortNewest:
		return true
	}
	return false
}

// RewardCatalogItem is one purchasable reward. Stock nil means unlimited.
type RewardCatalogItem struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Type         RewardType
	Price        int
	Stock        *int
	DurationDays *int
	Payload      map[string]any
	Active       bool
	CreatedAt    time.Time

	InStock   bool
	CanAfford bool
}

type OwnedReward struct {
	ID             uuid.UUID
	UserID         int64
	RewardID       uuid.UUID
	CoinsPaid      int
	IsUsed         bool
	RedemptionCode *string
	PurchasedAt    time.Time
	UsedAt         *time.Time
	ExpiresAt      *time.Time

	Item *RewardCatalogItem
}

func (o *OwnedReward) ExpiredAt(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}
