package service

import (
	"context"
	"time"

	"coinforge/internal/model"
	"coinforge/pkg/logger"

	"go.uber.org/zap"
)

// ActivityRecorder fans activity events out to the streak tracker and the
// quest engine. It sits behind the other components' post-commit hooks, so
// everything here is best-effort: failures are logged and swallowed.
type ActivityRecorder struct {
	streaks StreakTrackerI
	quests  QuestEngineI
}

func NewActivityRecorder(streaks StreakTrackerI, quests QuestEngineI) *ActivityRecorder {
	return &ActivityRecorder{streaks: streaks, quests: quests}
}

func (r *ActivityRecorder) Record(ctx context.Context, userID int64, metric model.MetricType, delta int) {
	if _, err := r.streaks.RecordActivity(ctx, userID, time.Now().UTC()); err != nil {
		logger.Logger().Error("failed to record streak activity",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	if err := r.quests.UpdateProgress(ctx, userID, metric, delta); err != nil {
		logger.Logger().Error("failed to update quest progress",
			zap.Int64("user_id", userID), zap.String("metric", string(metric)), zap.Error(err))
	}
}
