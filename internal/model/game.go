package model

import (
	"time"

	"github.com/google/uuid"
)

type GameSession struct {
	ID          uuid.UUID
	UserID      int64
	GameCode    string
	Score       int
	CoinsEarned int
	Completed   bool
	StartedAt   time.Time
	CompletedAt *time.Time
	Duration    time.Duration
}

type LeaderboardPeriod string

const (
	LeaderboardDaily   LeaderboardPeriod = "daily"
	LeaderboardWeekly  LeaderboardPeriod = "weekly"
	LeaderboardAllTime LeaderboardPeriod = "all_time"
)

type LeaderboardRow struct {
	Rank      int
	UserID    int64
	BestScore int
}

// SessionResult is what CompleteSession hands back to the caller: the coin
// payout plus where the score landed.
type SessionResult struct {
	Session      *GameSession
	CoinsEarned  int
	PersonalBest bool
	DailyRank    int
	WeeklyRank   int
	AllTimeRank  int
}
