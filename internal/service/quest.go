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
	ErrQuestNotCompleted    = errors.New("quest not completed yet")
	ErrRewardAlreadyClaimed = errors.New("quest reward already claimed")
	ErrNotAssignmentOwner   = errors.New("assignment belongs to another user")
	ErrAssignmentNotFound   = errors.New("assignment not found")
)

const (
	DailyQuestCount  = 5
	WeeklyQuestCount = 3
)

// QuestEngine assigns quests per window, tracks progress and pays claims.
type QuestEngine struct {
	repo     QuestRepository
	badges   BadgeAwarder
	notifier notify.Dispatcher
}

func NewQuestEngine(repo QuestRepository, badges BadgeAwarder, notifier notify.Dispatcher) *QuestEngine {
	return &QuestEngine{
		repo:     repo,
		badges:   badges,
		notifier: notifier,
	}
}

// dayWindow is the UTC calendar day containing now.
func dayWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// isoWeekWindow is the ISO week (Monday 00:00 UTC) containing now.
func isoWeekWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, 1-weekday)
	return start, start.AddDate(0, 0, 7)
}

func (s *QuestEngine) assign(ctx context.Context, userID int64, period model.QuestPeriod, count int, windowStart, windowEnd time.Time) ([]*model.QuestAssignment, error) {
	// Idempotency lives in the storage layer: the repository inserts with a
	// uniqueness guard on (user, quest, window) and returns the window's
	// assignments either way. A pre-existing window comes back unchanged.
	existing, err := s.repo.GetAssignments(ctx, userID, windowStart)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	defs, err := s.repo.GetActiveDefinitions(ctx, period)
	if err != nil {
		return nil, err
	}
	if len(defs) > count {
		defs = defs[:count]
	}

	return s.repo.AssignQuests(ctx, userID, defs, windowStart, windowEnd)
}

// AssignDaily hands out up to 5 daily quests for the current UTC day,
// idempotently.
func (s *QuestEngine) AssignDaily(ctx context.Context, userID int64) ([]*model.QuestAssignment, error) {
	start, end := dayWindow(time.Now())
	return s.assign(ctx, userID, model.QuestDaily, DailyQuestCount, start, end)
}

// AssignWeekly hands out up to 3 weekly quests for the current ISO week,
// idempotently.
func (s *QuestEngine) AssignWeekly(ctx context.Context, userID int64) ([]*model.QuestAssignment, error) {
	start, end := isoWeekWindow(time.Now())
	return s.assign(ctx, userID, model.QuestWeekly, WeeklyQuestCount, start, end)
}

// UpdateProgress advances every live assignment tracking the metric. An
// assignment crossing its target is completed by the same statement that adds
// the delta, so the completion event fires exactly once no matter how often
// the metric keeps ticking afterwards.
func (s *QuestEngine) UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int) error {
	if delta <= 0 {
		return ErrInvalidAmount
	}

	completed, err := s.repo.UpdateProgress(ctx, userID, targetType, delta, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, a := range completed {
		a := a
		runHooks(ctx,
			func(ctx context.Context) {
				if err := s.badges.CheckAndAward(ctx, userID, "quest"); err != nil {
					logger.Logger().Error("failed to check quest badges",
						zap.Int64("user_id", userID), zap.Error(err))
				}
			},
			func(ctx context.Context) {
				title := "Quest completed!"
				if a.Definition != nil {
					title = fmt.Sprintf("Quest completed: %s", a.Definition.Title)
				}
				s.notifier.Notify(ctx, notify.Notification{
					UserID:  userID,
					Type:    "quest_completed",
					Title:   title,
					Message: "Claim your reward in the quest log.",
					Metadata: map[string]any{
						"assignment_id": a.ID.String(),
					},
				})
			},
		)
	}

	return nil
}

// ClaimReward pays out a completed assignment once. The claimed-flag flip,
// the coin credit and the xp grant share one transaction in the repository;
// a second claim surfaces ErrRewardAlreadyClaimed and pays nothing.
func (s *QuestEngine) ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64) (*model.QuestAssignment, error) {
	entry := newEntry(userID, 0, model.EntryEarned, model.ReasonQuestReward, map[string]any{
		"assignment_id": assignmentID.String(),
	})

	claimed, err := s.repo.ClaimReward(ctx, assignmentID, userID, entry)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAssignmentNotFound
		case errors.Is(err, repository.ErrNotOwner):
			return nil, ErrNotAssignmentOwner
		case errors.Is(err, repository.ErrQuestNotCompleted):
			return nil, ErrQuestNotCompleted
		case errors.Is(err, repository.ErrRewardAlreadyClaimed):
			return nil, ErrRewardAlreadyClaimed
		}
		return nil, err
	}

	runHooks(ctx, func(ctx context.Context) {
		s.notifier.Notify(ctx, notify.Notification{
			UserID:  userID,
			Type:    "quest_reward",
			Title:   "Reward claimed",
			Message: fmt.Sprintf("%d coins added to your balance.", claimed.Definition.CoinReward),
			Metadata: map[string]any{
				"assignment_id": assignmentID.String(),
				"coins":         claimed.Definition.CoinReward,
			},
		})
	})

	return claimed, nil
}

// CleanupExpired removes assignments whose window closed before they
// completed.
func (s *QuestEngine) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpiredAssignments(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Logger().Info("removed expired quest assignments", zap.Int64("count", removed))
	}
	return removed, nil
}
