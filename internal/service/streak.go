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

	"go.uber.org/zap"
)

var ErrMilestoneNotReached = errors.New("streak milestone not reached")

// DefaultMilestones is the fixed streak bonus table used when config does not
// override it.
var DefaultMilestones = []model.Milestone{
	{Days: 7, CoinReward: 100, XPReward: 50, Badge: "week_streak"},
	{Days: 30, CoinReward: 500, XPReward: 250, Badge: "month_streak"},
	{Days: 100, CoinReward: 2000, XPReward: 1000, Badge: "hundred_streak"},
}

// StreakTracker counts consecutive calendar days of activity and pays the
// one-time milestone bonuses.
type StreakTracker struct {
	repo       StreakRepository
	milestones []model.Milestone
	badges     BadgeAwarder
	notifier   notify.Dispatcher
}

func NewStreakTracker(repo StreakRepository, milestones []model.Milestone, badges BadgeAwarder, notifier notify.Dispatcher) *StreakTracker {
	if len(milestones) == 0 {
		milestones = DefaultMilestones
	}
	return &StreakTracker{
		repo:       repo,
		milestones: milestones,
		badges:     badges,
		notifier:   notifier,
	}
}

func (s *StreakTracker) status(acc *model.Account) *model.StreakStatus {
	st := &model.StreakStatus{
		UserID:         acc.UserID,
		Streak:         acc.Streak,
		LastActiveDate: acc.LastActiveDate,
	}
	for i := range s.milestones {
		if s.milestones[i].Days > acc.Streak {
			st.NextMilestone = &s.milestones[i]
			break
		}
	}
	return st
}

func (s *StreakTracker) GetStatus(ctx context.Context, userID int64) (*model.StreakStatus, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.status(acc), nil
}

// RecordActivity advances the streak for one calendar day of activity:
// same day is a no-op, the day after the last activity extends the streak,
// any gap resets it to 1. The persist is conditional on the date we read, so
// two concurrent calls for the same day record it once.
func (s *StreakTracker) RecordActivity(ctx context.Context, userID int64, now time.Time) (*model.StreakStatus, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now = now.UTC()
	if acc.LastActiveDate != nil && model.SameCalendarDay(*acc.LastActiveDate, now) {
		return s.status(acc), nil
	}

	streak := 1
	if acc.LastActiveDate != nil && model.NextCalendarDay(*acc.LastActiveDate, now) {
		streak = acc.Streak + 1
	}

	activeDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	updated, err := s.repo.UpdateStreak(ctx, userID, acc.LastActiveDate, streak, activeDate)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the race to another request that recorded today already.
		return s.GetStatus(ctx, userID)
	}

	acc.Streak = streak
	acc.LastActiveDate = &activeDate

	if milestone, granted, err := s.CheckMilestone(ctx, userID, streak); err == nil && milestone != nil && !granted {
		if err := s.GrantBonus(ctx, userID, milestone.Days); err != nil &&
			!errors.Is(err, repository.ErrMilestoneAlreadyGranted) {
			logger.Logger().Error("failed to grant streak milestone",
				zap.Int64("user_id", userID), zap.Int("days", milestone.Days), zap.Error(err))
		}
	}

	return s.status(acc), nil
}

// CheckMilestone returns the milestone matching the exact streak length, if
// any, and whether it was already granted.
func (s *StreakTracker) CheckMilestone(ctx context.Context, userID int64, streak int) (*model.Milestone, bool, error) {
	var match *model.Milestone
	for i := range s.milestones {
		if s.milestones[i].Days == streak {
			match = &s.milestones[i]
			break
		}
	}
	if match == nil {
		return nil, false, nil
	}

	granted, err := s.repo.GetMilestoneGrants(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	for _, days := range granted {
		if days == match.Days {
			return match, true, nil
		}
	}

	return match, false, nil
}

// GrantBonus pays out one milestone. The threshold re-check, the uniqueness
// guard and the coin credit all run inside one repository transaction; two
// concurrent calls produce exactly one payout. The badge and the
// notification run post-commit and cannot undo it.
func (s *StreakTracker) GrantBonus(ctx context.Context, userID int64, days int) error {
	var milestone *model.Milestone
	for i := range s.milestones {
		if s.milestones[i].Days == days {
			milestone = &s.milestones[i]
			break
		}
	}
	if milestone == nil {
		return ErrMilestoneNotReached
	}

	entry := newEntry(userID, milestone.CoinReward, model.EntryBonus, model.ReasonStreakMilestone, map[string]any{
		"milestone_days": days,
	})

	if err := s.repo.GrantMilestone(ctx, userID, *milestone, entry); err != nil {
		if errors.Is(err, repository.ErrMilestoneNotReached) {
			return ErrMilestoneNotReached
		}
		return err
	}

	runHooks(ctx,
		func(ctx context.Context) {
			if milestone.Badge == "" {
				return
			}
			if err := s.badges.Award(ctx, userID, milestone.Badge, "streak"); err != nil {
				logger.Logger().Error("failed to award streak badge",
					zap.Int64("user_id", userID), zap.String("badge", milestone.Badge), zap.Error(err))
			}
		},
		func(ctx context.Context) {
			s.notifier.Notify(ctx, notify.Notification{
				UserID:  userID,
				Type:    "streak_milestone",
				Title:   fmt.Sprintf("%d-day streak!", days),
				Message: fmt.Sprintf("You earned %d coins for staying active %d days in a row.", milestone.CoinReward, days),
				Metadata: map[string]any{
					"days":  days,
					"coins": milestone.CoinReward,
				},
			})
		},
	)

	return nil
}
