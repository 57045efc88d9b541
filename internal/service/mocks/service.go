package mocks

import (
	"context"
	"time"

	"coinforge/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBadgeRepository struct {
	mock.Mock
}

func (m *MockBadgeRepository) AwardBadge(ctx context.Context, userID int64, badge, category string) (bool, error) {
	args := m.Called(ctx, userID, badge, category)
	return args.Bool(0), args.Error(1)
}

func (m *MockBadgeRepository) ListBadges(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockStreakTracker struct {
	mock.Mock
}

func (m *MockStreakTracker) RecordActivity(ctx context.Context, userID int64, now time.Time) (*model.StreakStatus, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StreakStatus), args.Error(1)
}

func (m *MockStreakTracker) GetStatus(ctx context.Context, userID int64) (*model.StreakStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StreakStatus), args.Error(1)
}

func (m *MockStreakTracker) CheckMilestone(ctx context.Context, userID int64, streak int) (*model.Milestone, bool, error) {
	args := m.Called(ctx, userID, streak)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Milestone), args.Bool(1), args.Error(2)
}

func (m *MockStreakTracker) GrantBonus(ctx context.Context, userID int64, days int) error {
	args := m.Called(ctx, userID, days)
	return args.Error(0)
}

type MockQuestEngine struct {
	mock.Mock
}

func (m *MockQuestEngine) AssignDaily(ctx context.Context, userID int64) ([]*model.QuestAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestEngine) AssignWeekly(ctx context.Context, userID int64) ([]*model.QuestAssignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestEngine) UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int) error {
	args := m.Called(ctx, userID, targetType, delta)
	return args.Error(0)
}

func (m *MockQuestEngine) ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64) (*model.QuestAssignment, error) {
	args := m.Called(ctx, assignmentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestEngine) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
