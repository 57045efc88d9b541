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
	ErrUnknownGame       = errors.New("unknown game code")
	ErrDailyLimitReached = errors.New("daily play limit reached")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCompleted  = errors.New("session already completed")
	ErrNotSessionOwner   = errors.New("session belongs to another user")
)

const DefaultDailyPlayCap = 5

// ScoreTier is one row of a game's payout table; the highest tier whose
// MinScore the player reached wins.
type ScoreTier struct {
	Name     string `mapstructure:"name"`
	MinScore int    `mapstructure:"minScore"`
	Coins    int    `mapstructure:"coins"`
}

// GameRules describes one game's payout. Either a bronze/silver/gold tier
// table or, for move-based games, a direct score divisor.
type GameRules struct {
	Code         string      `mapstructure:"code"`
	Tiers        []ScoreTier `mapstructure:"tiers"`
	ScoreDivisor int         `mapstructure:"scoreDivisor"`
}

// CoinsFor converts a final score into a payout.
func (g GameRules) CoinsFor(score int) int {
	if len(g.Tiers) > 0 {
		coins := 0
		for _, tier := range g.Tiers {
			if score >= tier.MinScore {
				coins = tier.Coins
			}
		}
		return coins
	}
	if g.ScoreDivisor > 0 {
		return score / g.ScoreDivisor
	}
	return 0
}

// DefaultGames is the built-in catalog used when config does not override it.
var DefaultGames = []GameRules{
	{
		Code: "block_blast",
		Tiers: []ScoreTier{
			{Name: "bronze", MinScore: 100, Coins: 10},
			{Name: "silver", MinScore: 500, Coins: 30},
			{Name: "gold", MinScore: 1500, Coins: 75},
		},
	},
	{
		Code: "word_rush",
		Tiers: []ScoreTier{
			{Name: "bronze", MinScore: 50, Coins: 10},
			{Name: "silver", MinScore: 200, Coins: 25},
			{Name: "gold", MinScore: 600, Coins: 60},
		},
	},
	{Code: "memory_match", ScoreDivisor: 10},
}

// GameArena runs timed play sessions and converts scores into coin payouts.
type GameArena struct {
	repo     GameRepository
	rules    map[string]GameRules
	dailyCap int
	notifier notify.Dispatcher
	activity ActivityFeed
}

func NewGameArena(repo GameRepository, games []GameRules, dailyCap int, notifier notify.Dispatcher, activity ActivityFeed) *GameArena {
	if len(games) == 0 {
		games = DefaultGames
	}
	if dailyCap <= 0 {
		dailyCap = DefaultDailyPlayCap
	}

	rules := make(map[string]GameRules, len(games))
	for _, g := range games {
		rules[g.Code] = g
	}

	return &GameArena{
		repo:     repo,
		rules:    rules,
		dailyCap: dailyCap,
		notifier: notifier,
		activity: activity,
	}
}

// StartSession opens a play session unless the user already hit the daily
// cap for the game; the cap is re-checked inside the insert transaction.
func (s *GameArena) StartSession(ctx context.Context, userID int64, gameCode string) (*model.GameSession, error) {
	if _, ok := s.rules[gameCode]; !ok {
		return nil, ErrUnknownGame
	}

	now := time.Now().UTC()
	session := &model.GameSession{
		ID:        uuid.New(),
		UserID:    userID,
		GameCode:  gameCode,
		StartedAt: now,
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	err := s.repo.StartSession(ctx, session, s.dailyCap, dayStart)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDailyLimitReached):
			return nil, ErrDailyLimitReached
		}
		return nil, err
	}

	return session, nil
}

// CompleteSession settles a session once: the completed-flag flip and the
// coin payout share one transaction, a second call gets
// ErrSessionCompleted. Leaderboard placement is computed afterwards and is
// best-effort.
func (s *GameArena) CompleteSession(ctx context.Context, sessionID uuid.UUID, userID int64, score int, data map[string]any) (*model.SessionResult, error) {
	if score < 0 {
		return nil, ErrInvalidAmount
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrNotSessionOwner
	}

	rules, ok := s.rules[session.GameCode]
	if !ok {
		return nil, ErrUnknownGame
	}
	coins := rules.CoinsFor(score)

	entry := newEntry(session.UserID, coins, model.EntryEarned, model.ReasonGameReward, map[string]any{
		"session_id": sessionID.String(),
		"game_code":  session.GameCode,
		"score":      score,
		"data":       data,
	})

	now := time.Now().UTC()
	completed, err := s.repo.CompleteSession(ctx, sessionID, score, coins, now, entry)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrSessionAlreadyCompleted):
			return nil, ErrSessionCompleted
		}
		return nil, err
	}

	result := &model.SessionResult{
		Session:     completed,
		CoinsEarned: coins,
	}

	if prevBest, err := s.repo.BestScore(ctx, session.UserID, session.GameCode, sessionID); err == nil {
		result.PersonalBest = score > prevBest
	} else {
		logger.Logger().Error("failed to get best score", zap.Error(err))
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart, _ := isoWeekWindow(now)
	for _, r := range []struct {
		since *time.Time
		dst   *int
	}{
		{&dayStart, &result.DailyRank},
		{&weekStart, &result.WeeklyRank},
		{nil, &result.AllTimeRank},
	} {
		rank, err := s.repo.Rank(ctx, session.GameCode, score, r.since)
		if err != nil {
			logger.Logger().Error("failed to compute rank", zap.Error(err))
			continue
		}
		*r.dst = rank
	}

	runHooks(ctx,
		func(ctx context.Context) {
			if coins == 0 {
				return
			}
			s.notifier.Notify(ctx, notify.Notification{
				UserID:  session.UserID,
				Type:    "game_reward",
				Title:   fmt.Sprintf("+%d coins", coins),
				Message: fmt.Sprintf("Score %d in %s.", score, session.GameCode),
				Metadata: map[string]any{
					"session_id": sessionID.String(),
				},
			})
		},
		func(ctx context.Context) {
			s.activity.Record(ctx, session.UserID, model.MetricGamesPlayed, 1)
			if score > 0 {
				s.activity.Record(ctx, session.UserID, model.MetricGameScore, score)
			}
			if coins > 0 {
				s.activity.Record(ctx, session.UserID, model.MetricCoinsEarned, coins)
			}
		},
	)

	return result, nil
}

// CancelSession discards an unfinished session; only its owner can.
func (s *GameArena) CancelSession(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	err := s.repo.CancelSession(ctx, sessionID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrNotOwner):
		return ErrNotSessionOwner
	case errors.Is(err, repository.ErrSessionAlreadyCompleted):
		return ErrSessionCompleted
	}
	return err
}

func (s *GameArena) GetLeaderboard(ctx context.Context, gameCode string, period model.LeaderboardPeriod, limit int) ([]*model.LeaderboardRow, error) {
	if _, ok := s.rules[gameCode]; !ok {
		return nil, ErrUnknownGame
	}
	if limit <= 0 {
		limit = 10
	}

	now := time.Now().UTC()
	var since *time.Time
	switch period {
	case model.LeaderboardDaily:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		since = &dayStart
	case model.LeaderboardWeekly:
		weekStart, _ := isoWeekWindow(now)
		since = &weekStart
	}

	return s.repo.Leaderboard(ctx, gameCode, since, limit)
}
