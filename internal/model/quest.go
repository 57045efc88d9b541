package model

import (
	"time"

	"github.com/google/uuid"
)

type QuestPeriod string

const (
	QuestDaily   QuestPeriod = "DAILY"
	QuestWeekly  QuestPeriod = "WEEKLY"
	QuestSpecial QuestPeriod = "SPECIAL"
)

type MetricType string

const (
	MetricGamesPlayed  MetricType = "games_played"
	MetricGameScore    MetricType = "game_score"
	MetricPurchases    MetricType = "purchases"
	MetricCoinsEarned  MetricType = "coins_earned"
	MetricActivityDays MetricType = "activity_days"
)

type QuestDefinition struct {
	ID          uuid.UUID
	Title       string
	Description string
	Period      QuestPeriod
	TargetType  MetricType
	TargetValue int
	CoinReward  int
	XPReward    int
	Priority    int
	Active      bool
	CreatedAt   time.Time
}

// QuestAssignment is one user's instance of a quest definition within one
// assignment window. It moves Assigned -> Completed -> RewardClaimed; an
// uncompleted assignment past ExpiresAt is dead and eligible for cleanup.
type QuestAssignment struct {
	ID            uuid.UUID
	UserID        int64
	QuestID       uuid.UUID
	Progress      int
	Completed     bool
	RewardClaimed bool
	WindowStart   time.Time
	AssignedAt    time.Time
	ExpiresAt     time.Time
	CompletedAt   *time.Time

	Definition *QuestDefinition
}

func (a *QuestAssignment) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
