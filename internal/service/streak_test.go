package service

import (
	"context"
	"testing"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"
	"coinforge/internal/service/mocks"
	"coinforge/pkg/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func dayAgo(days int) *time.Time {
	d := time.Now().UTC().AddDate(0, 0, -days)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func TestStreakTracker_RecordActivity(t *testing.T) {
	mockRepo := &mocks.MockStreakRepository{}
	mockBadges := &mocks.MockBadgeAwarder{}
	tracker := NewStreakTracker(mockRepo, nil, mockBadges, notify.Nop{})

	tests := []struct {
		name           string
		userID         int64
		mockSetup      func()
		expectedStreak int
		expectedError  error
	}{
		{
			name:   "First ever activity starts at 1",
			userID: 123,
			mockSetup: func() {
				mockRepo.On("GetAccount", mock.Anything, int64(123)).
					Return(&model.Account{UserID: 123, Streak: 0}, nil)
				mockRepo.On("UpdateStreak", mock.Anything, int64(123), (*time.Time)(nil), 1, mock.Anything).
					Return(true, nil)
			},
			expectedStreak: 1,
		},
		{
			name:   "Same day is a no-op",
			userID: 124,
			mockSetup: func() {
				mockRepo.On("GetAccount", mock.Anything, int64(124)).
					Return(&model.Account{UserID: 124, Streak: 3, LastActiveDate: dayAgo(0)}, nil)
			},
			expectedStreak: 3,
		},
		{
			name:   "Next day extends the streak",
			userID: 125,
			mockSetup: func() {
				last := dayAgo(1)
				mockRepo.On("GetAccount", mock.Anything, int64(125)).
					Return(&model.Account{UserID: 125, Streak: 3, LastActiveDate: last}, nil)
				mockRepo.On("UpdateStreak", mock.Anything, int64(125), last, 4, mock.Anything).
					Return(true, nil)
			},
			expectedStreak: 4,
		},
		{
			name:   "A gap resets the streak",
			userID: 126,
			mockSetup: func() {
				last := dayAgo(3)
				mockRepo.On("GetAccount", mock.Anything, int64(126)).
					Return(&model.Account{UserID: 126, Streak: 5, LastActiveDate: last}, nil)
				mockRepo.On("UpdateStreak", mock.Anything, int64(126), last, 1, mock.Anything).
					Return(true, nil)
			},
			expectedStreak: 1,
		},
		{
			name:   "Lost race re-reads current state",
			userID: 127,
			mockSetup: func() {
				last := dayAgo(1)
				mockRepo.On("GetAccount", mock.Anything, int64(127)).
					Return(&model.Account{UserID: 127, Streak: 2, LastActiveDate: last}, nil).Once()
				mockRepo.On("UpdateStreak", mock.Anything, int64(127), last, 3, mock.Anything).
					Return(false, nil)
				mockRepo.On("GetAccount", mock.Anything, int64(127)).
					Return(&model.Account{UserID: 127, Streak: 3, LastActiveDate: dayAgo(0)}, nil).Once()
			},
			expectedStreak: 3,
		},
		{
			name:   "Unknown user",
			userID: 128,
			mockSetup: func() {
				mockRepo.On("GetAccount", mock.Anything, int64(128)).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			status, err := tracker.RecordActivity(context.Background(), tt.userID, time.Now())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStreak, status.Streak)

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestStreakTracker_RecordActivity_MilestonePayout(t *testing.T) {
	mockRepo := &mocks.MockStreakRepository{}
	mockBadges := &mocks.MockBadgeAwarder{}
	tracker := NewStreakTracker(mockRepo, nil, mockBadges, notify.Nop{})

	last := dayAgo(1)
	mockRepo.On("GetAccount", mock.Anything, int64(123)).
		Return(&model.Account{UserID: 123, Streak: 6, LastActiveDate: last}, nil)
	mockRepo.On("UpdateStreak", mock.Anything, int64(123), last, 7, mock.Anything).
		Return(true, nil)
	mockRepo.On("GetMilestoneGrants", mock.Anything, int64(123)).
		Return([]int{}, nil)
	mockRepo.On("GrantMilestone", mock.Anything, int64(123),
		mock.MatchedBy(func(m model.Milestone) bool { return m.Days == 7 }),
		mock.MatchedBy(func(e *model.LedgerEntry) bool {
			return e.Amount == 100 && e.Kind == model.EntryBonus && e.Reason == model.ReasonStreakMilestone
		})).Return(nil)
	mockBadges.On("Award", mock.Anything, int64(123), "week_streak", "streak").Return(nil)

	status, err := tracker.RecordActivity(context.Background(), 123, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, 7, status.Streak)

	mockRepo.AssertExpectations(t)
	mockBadges.AssertExpectations(t)
}

func TestStreakTracker_CheckMilestone(t *testing.T) {
	mockRepo := &mocks.MockStreakRepository{}
	tracker := NewStreakTracker(mockRepo, nil, &mocks.MockBadgeAwarder{}, notify.Nop{})

	milestone, granted, err := tracker.CheckMilestone(context.Background(), 123, 5)
	assert.NoError(t, err)
	assert.Nil(t, milestone)
	assert.False(t, granted)

	mockRepo.On("GetMilestoneGrants", mock.Anything, int64(123)).
		Return([]int{7}, nil)

	milestone, granted, err = tracker.CheckMilestone(context.Background(), 123, 7)
	assert.NoError(t, err)
	assert.NotNil(t, milestone)
	assert.True(t, granted)

	milestone, granted, err = tracker.CheckMilestone(context.Background(), 123, 30)
	assert.NoError(t, err)
	assert.Equal(t, 30, milestone.Days)
	assert.False(t, granted)

	mockRepo.AssertExpectations(t)
}

func TestStreakTracker_GrantBonus(t *testing.T) {
	mockRepo := &mocks.MockStreakRepository{}
	mockBadges := &mocks.MockBadgeAwarder{}
	tracker := NewStreakTracker(mockRepo, nil, mockBadges, notify.Nop{})

	tests := []struct {
		name          string
		days          int
		mockSetup     func()
		expectedError error
	}{
		{
			name: "Successful grant awards badge",
			days: 30,
			mockSetup: func() {
				mockRepo.On("GrantMilestone", mock.Anything, int64(123),
					mock.MatchedBy(func(m model.Milestone) bool { return m.Days == 30 }),
					mock.MatchedBy(func(e *model.LedgerEntry) bool { return e.Amount == 500 })).
					Return(nil)
				mockBadges.On("Award", mock.Anything, int64(123), "month_streak", "streak").Return(nil)
			},
		},
		{
			name:          "Unknown threshold",
			days:          13,
			mockSetup:     func() {},
			expectedError: ErrMilestoneNotReached,
		},
		{
			name: "Streak below threshold",
			days: 100,
			mockSetup: func() {
				mockRepo.On("GrantMilestone", mock.Anything, int64(123), mock.Anything, mock.Anything).
					Return(repository.ErrMilestoneNotReached)
			},
			expectedError: ErrMilestoneNotReached,
		},
		{
			name: "Second grant is rejected by the storage guard",
			days: 7,
			mockSetup: func() {
				mockRepo.On("GrantMilestone", mock.Anything, int64(123), mock.Anything, mock.Anything).
					Return(repository.ErrMilestoneAlreadyGranted)
			},
			expectedError: repository.ErrMilestoneAlreadyGranted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil
			mockBadges.ExpectedCalls = nil
			mockBadges.Calls = nil

			tt.mockSetup()

			err := tracker.GrantBonus(context.Background(), 123, tt.days)

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
