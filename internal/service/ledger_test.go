package service

import (
	"context"
	"testing"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"
	"coinforge/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLedgerService_Earn(t *testing.T) {
	mockRepo := &mocks.MockLedgerRepository{}
	service := NewLedgerService(mockRepo)

	tests := []struct {
		name          string
		userID        int64
		amount        int
		reason        string
		metadata      map[string]any
		mockSetup     func()
		expectedError error
	}{
		{
			name:   "Successful earn",
			userID: 123,
			amount: 50,
			reason: model.ReasonGameReward,
			mockSetup: func() {
				mockRepo.On("Credit", mock.Anything, mock.MatchedBy(func(e *model.LedgerEntry) bool {
					return e.UserID == 123 &&
						e.Amount == 50 &&
						e.Kind == model.EntryEarned &&
						e.Reason == model.ReasonGameReward
				})).Return(nil)
			},
		},
		{
			name:     "Dedup key picked up from metadata",
			userID:   124,
			amount:   10,
			reason:   model.ReasonQuestReward,
			metadata: map[string]any{"dedup_key": "quest-42"},
			mockSetup: func() {
				mockRepo.On("Credit", mock.Anything, mock.MatchedBy(func(e *model.LedgerEntry) bool {
					return e.DedupKey != nil && *e.DedupKey == "quest-42"
				})).Return(nil)
			},
		},
		{
			name:          "Zero amount rejected",
			userID:        125,
			amount:        0,
			reason:        model.ReasonGameReward,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "Negative amount rejected",
			userID:        125,
			amount:        -5,
			reason:        model.ReasonGameReward,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "Missing reason rejected",
			userID:        125,
			amount:        5,
			reason:        "",
			mockSetup:     func() {},
			expectedError: ErrInvalidInput,
		},
		{
			name:   "Unknown user",
			userID: 126,
			amount: 5,
			reason: model.ReasonGameReward,
			mockSetup: func() {
				mockRepo.On("Credit", mock.Anything, mock.Anything).
					Return(repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:     "Duplicate dedup key surfaces conflict",
			userID:   127,
			amount:   5,
			reason:   model.ReasonGameReward,
			metadata: map[string]any{"dedup_key": "seen-before"},
			mockSetup: func() {
				mockRepo.On("Credit", mock.Anything, mock.Anything).
					Return(repository.ErrDuplicateOperation)
			},
			expectedError: repository.ErrDuplicateOperation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			err := service.Earn(context.Background(), tt.userID, tt.amount, tt.reason, tt.metadata)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLedgerService_Spend(t *testing.T) {
	mockRepo := &mocks.MockLedgerRepository{}
	service := NewLedgerService(mockRepo)

	tests := []struct {
		name          string
		userID        int64
		amount        int
		mockSetup     func()
		expectedError error
	}{
		{
			name:   "Successful spend records negative entry",
			userID: 123,
			amount: 30,
			mockSetup: func() {
				mockRepo.On("Debit", mock.Anything, mock.MatchedBy(func(e *model.LedgerEntry) bool {
					return e.Amount == -30 && e.Kind == model.EntrySpent
				}), 30).Return(nil)
			},
		},
		{
			name:   "Insufficient balance writes nothing",
			userID: 124,
			amount: 1000,
			mockSetup: func() {
				mockRepo.On("Debit", mock.Anything, mock.Anything, 1000).
					Return(repository.ErrInsufficientBalance)
			},
			expectedError: repository.ErrInsufficientBalance,
		},
		{
			name:          "Zero amount rejected",
			userID:        125,
			amount:        0,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Unknown user",
			userID: 126,
			amount: 10,
			mockSetup: func() {
				mockRepo.On("Debit", mock.Anything, mock.Anything, 10).
					Return(repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			err := service.Spend(context.Background(), tt.userID, tt.amount, model.ReasonShopPurchase, nil)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLedgerService_GetBalance(t *testing.T) {
	mockRepo := &mocks.MockLedgerRepository{}
	service := NewLedgerService(mockRepo)

	mockRepo.On("GetAccount", mock.Anything, int64(123)).
		Return(&model.Account{UserID: 123, Balance: 420}, nil)
	mockRepo.On("GetAccount", mock.Anything, int64(999)).
		Return(nil, repository.ErrNotFound)

	balance, err := service.GetBalance(context.Background(), 123)
	assert.NoError(t, err)
	assert.Equal(t, 420, balance)

	_, err = service.GetBalance(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	mockRepo.AssertExpectations(t)
}

func TestLedgerService_GetStats(t *testing.T) {
	mockRepo := &mocks.MockLedgerRepository{}
	service := NewLedgerService(mockRepo)

	mockRepo.On("GetStats", mock.Anything, int64(123), (*time.Time)(nil)).
		Return(&model.LedgerStats{UserID: 123, Earned: 100, Spent: 40, Refunded: 10, Net: 70}, nil).Once()

	stats, err := service.GetStats(context.Background(), 123, model.PeriodAll)
	assert.NoError(t, err)
	assert.Equal(t, model.PeriodAll, stats.Period)
	assert.Equal(t, 70, stats.Net)

	mockRepo.On("GetStats", mock.Anything, int64(123), mock.MatchedBy(func(since *time.Time) bool {
		return since != nil && time.Since(*since) < 8*24*time.Hour && time.Since(*since) > 6*24*time.Hour
	})).Return(&model.LedgerStats{UserID: 123}, nil).Once()

	_, err = service.GetStats(context.Background(), 123, model.PeriodWeekly)
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{889, 3},
		{900, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, model.LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}
