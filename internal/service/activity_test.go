package service

import (
	"context"
	"testing"

	"coinforge/internal/model"
	"coinforge/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestActivityRecorder_Record(t *testing.T) {
	mockStreaks := &mocks.MockStreakTracker{}
	mockQuests := &mocks.MockQuestEngine{}
	recorder := NewActivityRecorder(mockStreaks, mockQuests)

	mockStreaks.On("RecordActivity", mock.Anything, int64(123), mock.Anything).
		Return(&model.StreakStatus{UserID: 123, Streak: 2}, nil)
	mockQuests.On("UpdateProgress", mock.Anything, int64(123), model.MetricGamesPlayed, 1).
		Return(nil)

	recorder.Record(context.Background(), 123, model.MetricGamesPlayed, 1)

	mockStreaks.AssertExpectations(t)
	mockQuests.AssertExpectations(t)
}

func TestActivityRecorder_Record_StreakFailureStillUpdatesQuests(t *testing.T) {
	mockStreaks := &mocks.MockStreakTracker{}
	mockQuests := &mocks.MockQuestEngine{}
	recorder := NewActivityRecorder(mockStreaks, mockQuests)

	mockStreaks.On("RecordActivity", mock.Anything, int64(123), mock.Anything).
		Return(nil, assert.AnError)
	mockQuests.On("UpdateProgress", mock.Anything, int64(123), model.MetricPurchases, 1).
		Return(nil)

	recorder.Record(context.Background(), 123, model.MetricPurchases, 1)

	mockStreaks.AssertExpectations(t)
	mockQuests.AssertExpectations(t)
}

func TestBadgeService_CheckAndAward(t *testing.T) {
	mockRepo := &mocks.MockBadgeRepository{}
	badges := NewBadgeService(mockRepo)

	mockRepo.On("AwardBadge", mock.Anything, int64(123), "quest_finisher", "quest").
		Return(true, nil)

	assert.NoError(t, badges.CheckAndAward(context.Background(), 123, "quest"))

	// Categories without a participation badge are a no-op.
	assert.NoError(t, badges.CheckAndAward(context.Background(), 123, "unknown"))

	mockRepo.AssertExpectations(t)
}
