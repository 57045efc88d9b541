package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryEarned EntryKind = "EARNED"
	EntrySpent  EntryKind = "SPENT"
	EntryBonus  EntryKind = "BONUS"
	EntryRefund EntryKind = "REFUND"
)

// LedgerEntry is one balance-changing event. Entries are written once and
// never updated or deleted; an account balance always equals the sum of
// its entry amounts.
type LedgerEntry struct {
	ID        uuid.UUID
	UserID    int64
	Amount    int
	Kind      EntryKind
	Reason    string
	Metadata  map[string]any
	DedupKey  *string
	CreatedAt time.Time
}

// Ledger reason codes for entries the engine writes itself.
const (
	ReasonQuestReward     = "quest_reward"
	ReasonStreakMilestone = "streak_milestone"
	ReasonShopPurchase    = "shop_purchase"
	ReasonShopRefund      = "shop_refund"
	ReasonGameReward      = "game_reward"
)

type StatsPeriod string

const (
	PeriodDaily   StatsPeriod = "daily"
	PeriodWeekly  StatsPeriod = "weekly"
	PeriodMonthly StatsPeriod = "monthly"
	PeriodAll     StatsPeriod = "all"
)

type LedgerStats struct {
	UserID   int64
	Period   StatsPeriod
	Earned   int
	Spent    int
	Bonus    int
	Refunded int
	Net      int
}

type HistoryFilter struct {
	Kinds  []EntryKind
	Since  *time.Time
	Limit  uint64
	Offset uint64
}
