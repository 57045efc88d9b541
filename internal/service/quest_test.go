package service

import (
	"context"
	"testing"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"
	"coinforge/internal/service/mocks"
	"coinforge/pkg/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func questDefs(n int) []*model.QuestDefinition {
	defs := make([]*model.QuestDefinition, n)
	for i := range defs {
		defs[i] = &model.QuestDefinition{
			ID:          uuid.New(),
			Title:       "Play games",
			Period:      model.QuestDaily,
			TargetType:  model.MetricGamesPlayed,
			TargetValue: 3,
			CoinReward:  25,
			XPReward:    10,
			Active:      true,
		}
	}
	return defs
}

func TestQuestEngine_AssignDaily(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	engine := NewQuestEngine(mockRepo, &mocks.MockBadgeAwarder{}, notify.Nop{})

	tests := []struct {
		name          string
		userID        int64
		mockSetup     func()
		expectedCount int
	}{
		{
			name:   "Existing window comes back unchanged",
			userID: 123,
			mockSetup: func() {
				existing := []*model.QuestAssignment{{ID: uuid.New(), UserID: 123}}
				mockRepo.On("GetAssignments", mock.Anything, int64(123), mock.Anything).
					Return(existing, nil)
			},
			expectedCount: 1,
		},
		{
			name:   "Fresh window takes at most five definitions",
			userID: 124,
			mockSetup: func() {
				mockRepo.On("GetAssignments", mock.Anything, int64(124), mock.Anything).
					Return([]*model.QuestAssignment{}, nil)
				mockRepo.On("GetActiveDefinitions", mock.Anything, model.QuestDaily).
					Return(questDefs(8), nil)
				mockRepo.On("AssignQuests", mock.Anything, int64(124),
					mock.MatchedBy(func(defs []*model.QuestDefinition) bool { return len(defs) == DailyQuestCount }),
					mock.Anything, mock.Anything).
					Return(make([]*model.QuestAssignment, DailyQuestCount), nil)
			},
			expectedCount: DailyQuestCount,
		},
		{
			name:   "Fewer active definitions than the cap",
			userID: 125,
			mockSetup: func() {
				mockRepo.On("GetAssignments", mock.Anything, int64(125), mock.Anything).
					Return([]*model.QuestAssignment{}, nil)
				mockRepo.On("GetActiveDefinitions", mock.Anything, model.QuestDaily).
					Return(questDefs(2), nil)
				mockRepo.On("AssignQuests", mock.Anything, int64(125),
					mock.MatchedBy(func(defs []*model.QuestDefinition) bool { return len(defs) == 2 }),
					mock.Anything, mock.Anything).
					Return(make([]*model.QuestAssignment, 2), nil)
			},
			expectedCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			assignments, err := engine.AssignDaily(context.Background(), tt.userID)

			assert.NoError(t, err)
			assert.Len(t, assignments, tt.expectedCount)

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestEngine_AssignDaily_WindowIsUTCDay(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	engine := NewQuestEngine(mockRepo, &mocks.MockBadgeAwarder{}, notify.Nop{})

	mockRepo.On("GetAssignments", mock.Anything, int64(123),
		mock.MatchedBy(func(start time.Time) bool {
			now := time.Now().UTC()
			return start.Equal(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
		})).Return([]*model.QuestAssignment{{ID: uuid.New()}}, nil)

	_, err := engine.AssignDaily(context.Background(), 123)
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestQuestEngine_UpdateProgress(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	mockBadges := &mocks.MockBadgeAwarder{}
	engine := NewQuestEngine(mockRepo, mockBadges, notify.Nop{})

	tests := []struct {
		name          string
		delta         int
		mockSetup     func()
		expectedError error
	}{
		{
			name:  "Progress without completion fires no hooks",
			delta: 1,
			mockSetup: func() {
				mockRepo.On("UpdateProgress", mock.Anything, int64(123), model.MetricGamesPlayed, 1, mock.Anything).
					Return([]*model.QuestAssignment{}, nil)
			},
		},
		{
			name:  "Completion checks quest badges once per assignment",
			delta: 2,
			mockSetup: func() {
				completed := []*model.QuestAssignment{{
					ID:         uuid.New(),
					UserID:     123,
					Completed:  true,
					Definition: questDefs(1)[0],
				}}
				mockRepo.On("UpdateProgress", mock.Anything, int64(123), model.MetricGamesPlayed, 2, mock.Anything).
					Return(completed, nil)
				mockBadges.On("CheckAndAward", mock.Anything, int64(123), "quest").Return(nil)
			},
		},
		{
			name:          "Zero delta rejected",
			delta:         0,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "Negative delta rejected",
			delta:         -1,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil
			mockBadges.ExpectedCalls = nil
			mockBadges.Calls = nil

			tt.mockSetup()

			err := engine.UpdateProgress(context.Background(), 123, model.MetricGamesPlayed, tt.delta)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
			mockBadges.AssertExpectations(t)
		})
	}
}

func TestQuestEngine_ClaimReward(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	engine := NewQuestEngine(mockRepo, &mocks.MockBadgeAwarder{}, notify.Nop{})

	assignmentID := uuid.New()

	tests := []struct {
		name          string
		mockSetup     func()
		expectedError error
	}{
		{
			name: "Successful claim",
			mockSetup: func() {
				claimed := &model.QuestAssignment{
					ID:            assignmentID,
					UserID:        123,
					Completed:     true,
					RewardClaimed: true,
					Definition:    questDefs(1)[0],
				}
				mockRepo.On("ClaimReward", mock.Anything, assignmentID, int64(123),
					mock.MatchedBy(func(e *model.LedgerEntry) bool {
						return e.Kind == model.EntryEarned && e.Reason == model.ReasonQuestReward
					})).Return(claimed, nil)
			},
		},
		{
			name: "Unknown assignment",
			mockSetup: func() {
				mockRepo.On("ClaimReward", mock.Anything, assignmentID, int64(123), mock.Anything).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrAssignmentNotFound,
		},
		{
			name: "Someone else's assignment",
			mockSetup: func() {
				mockRepo.On("ClaimReward", mock.Anything, assignmentID, int64(123), mock.Anything).
					Return(nil, repository.ErrNotOwner)
			},
			expectedError: ErrNotAssignmentOwner,
		},
		{
			name: "Not completed yet",
			mockSetup: func() {
				mockRepo.On("ClaimReward", mock.Anything, assignmentID, int64(123), mock.Anything).
					Return(nil, repository.ErrQuestNotCompleted)
			},
			expectedError: ErrQuestNotCompleted,
		},
		{
			name: "Second claim pays nothing",
			mockSetup: func() {
				mockRepo.On("ClaimReward", mock.Anything, assignmentID, int64(123), mock.Anything).
					Return(nil, repository.ErrRewardAlreadyClaimed)
			},
			expectedError: ErrRewardAlreadyClaimed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			claimed, err := engine.ClaimReward(context.Background(), assignmentID, 123)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, claimed)
			} else {
				assert.NoError(t, err)
				assert.True(t, claimed.RewardClaimed)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestEngine_CleanupExpired(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	engine := NewQuestEngine(mockRepo, &mocks.MockBadgeAwarder{}, notify.Nop{})

	mockRepo.On("DeleteExpiredAssignments", mock.Anything, mock.Anything).
		Return(int64(4), nil)

	removed, err := engine.CleanupExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	mockRepo.AssertExpectations(t)
}
