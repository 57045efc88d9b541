package model

import (
	"math"
	"time"
)

type Account struct {
	UserID         int64
	Balance        int
	Experience     int
	Level          int
	Streak         int
	LastActiveDate *time.Time
	CreatedAt      time.Time
}

// LevelForXP is the single level curve used everywhere xp changes.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return int(math.Floor(math.Sqrt(float64(xp)/100.0))) + 1
}
