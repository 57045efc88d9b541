package model

import "time"

// Milestone is one fixed streak length that unlocks a one-time bonus.
type Milestone struct {
	Days       int
	CoinReward int
	XPReward   int
	Badge      string
}

type StreakStatus struct {
	UserID         int64
	Streak         int
	LastActiveDate *time.Time
	NextMilestone  *Milestone
}

// SameCalendarDay compares dates in UTC; streaks count calendar days, not
// 24h intervals.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func NextCalendarDay(prev, next time.Time) bool {
	return SameCalendarDay(prev.UTC().AddDate(0, 0, 1), next)
}
