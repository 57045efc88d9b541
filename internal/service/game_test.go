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

func TestGameRules_CoinsFor(t *testing.T) {
	tiered := DefaultGames[0] // block_blast

	tests := []struct {
		score int
		coins int
	}{
		{0, 0},
		{99, 0},
		{100, 10},
		{499, 10},
		{500, 30},
		{1500, 75},
		{99999, 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.coins, tiered.CoinsFor(tt.score), "score=%d", tt.score)
	}

	divided := DefaultGames[2] // memory_match
	assert.Equal(t, 0, divided.CoinsFor(9))
	assert.Equal(t, 4, divided.CoinsFor(45))
}

func TestGameArena_StartSession(t *testing.T) {
	mockRepo := &mocks.MockGameRepository{}
	arena := NewGameArena(mockRepo, nil, 0, notify.Nop{}, &mocks.MockActivityFeed{})

	tests := []struct {
		name          string
		gameCode      string
		mockSetup     func()
		expectedError error
	}{
		{
			name:     "Successful start",
			gameCode: "block_blast",
			mockSetup: func() {
				mockRepo.On("StartSession", mock.Anything,
					mock.MatchedBy(func(s *model.GameSession) bool {
						return s.UserID == 123 && s.GameCode == "block_blast" && !s.Completed
					}),
					DefaultDailyPlayCap, mock.Anything).Return(nil)
			},
		},
		{
			name:          "Unknown game",
			gameCode:      "tetris",
			mockSetup:     func() {},
			expectedError: ErrUnknownGame,
		},
		{
			name:     "Daily cap reached",
			gameCode: "word_rush",
			mockSetup: func() {
				mockRepo.On("StartSession", mock.Anything, mock.Anything, DefaultDailyPlayCap, mock.Anything).
					Return(repository.ErrDailyLimitReached)
			},
			expectedError: ErrDailyLimitReached,
		},
		{
			name:     "Unknown user",
			gameCode: "word_rush",
			mockSetup: func() {
				mockRepo.On("StartSession", mock.Anything, mock.Anything, DefaultDailyPlayCap, mock.Anything).
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

			session, err := arena.StartSession(context.Background(), 123, tt.gameCode)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.gameCode, session.GameCode)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGameArena_CompleteSession(t *testing.T) {
	mockRepo := &mocks.MockGameRepository{}
	mockActivity := &mocks.MockActivityFeed{}
	arena := NewGameArena(mockRepo, nil, 0, notify.Nop{}, mockActivity)

	sessionID := uuid.New()
	open := &model.GameSession{ID: sessionID, UserID: 123, GameCode: "block_blast", StartedAt: time.Now().Add(-time.Minute)}

	tests := []struct {
		name          string
		userID        int64
		score         int
		mockSetup     func()
		expectedError error
		checkResult   func(*testing.T, *model.SessionResult)
	}{
		{
			name:   "Gold tier score pays 75 coins",
			userID: 123,
			score:  1600,
			mockSetup: func() {
				mockRepo.On("GetSession", mock.Anything, sessionID).Return(open, nil)
				mockRepo.On("CompleteSession", mock.Anything, sessionID, 1600, 75, mock.Anything,
					mock.MatchedBy(func(e *model.LedgerEntry) bool {
						return e.Amount == 75 && e.Kind == model.EntryEarned && e.Reason == model.ReasonGameReward
					})).Return(&model.GameSession{ID: sessionID, UserID: 123, GameCode: "block_blast", Score: 1600, CoinsEarned: 75, Completed: true}, nil)
				mockRepo.On("BestScore", mock.Anything, int64(123), "block_blast", sessionID).Return(900, nil)
				mockRepo.On("Rank", mock.Anything, "block_blast", 1600, mock.Anything).Return(2, nil).Times(3)
				mockActivity.On("Record", mock.Anything, int64(123), model.MetricGamesPlayed, 1).Return()
				mockActivity.On("Record", mock.Anything, int64(123), model.MetricGameScore, 1600).Return()
				mockActivity.On("Record", mock.Anything, int64(123), model.MetricCoinsEarned, 75).Return()
			},
			checkResult: func(t *testing.T, result *model.SessionResult) {
				assert.Equal(t, 75, result.CoinsEarned)
				assert.True(t, result.PersonalBest)
				assert.Equal(t, 2, result.DailyRank)
				assert.Equal(t, 2, result.AllTimeRank)
			},
		},
		{
			name:   "Below bronze pays nothing",
			userID: 123,
			score:  50,
			mockSetup: func() {
				mockRepo.On("GetSession", mock.Anything, sessionID).Return(open, nil)
				mockRepo.On("CompleteSession", mock.Anything, sessionID, 50, 0, mock.Anything, mock.Anything).
					Return(&model.GameSession{ID: sessionID, UserID: 123, GameCode: "block_blast", Score: 50, Completed: true}, nil)
				mockRepo.On("BestScore", mock.Anything, int64(123), "block_blast", sessionID).Return(900, nil)
				mockRepo.On("Rank", mock.Anything, "block_blast", 50, mock.Anything).Return(9, nil).Times(3)
				mockActivity.On("Record", mock.Anything, int64(123), model.MetricGamesPlayed, 1).Return()
				mockActivity.On("Record", mock.Anything, int64(123), model.MetricGameScore, 50).Return()
			},
			checkResult: func(t *testing.T, result *model.SessionResult) {
				assert.Equal(t, 0, result.CoinsEarned)
				assert.False(t, result.PersonalBest)
			},
		},
		{
			name:          "Negative score rejected",
			userID:        123,
			score:         -1,
			mockSetup:     func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Session belongs to someone else",
			userID: 999,
			score:  100,
			mockSetup: func() {
				mockRepo.On("GetSession", mock.Anything, sessionID).Return(open, nil)
			},
			expectedError: ErrNotSessionOwner,
		},
		{
			name:   "Second completion settles nothing",
			userID: 123,
			score:  100,
			mockSetup: func() {
				mockRepo.On("GetSession", mock.Anything, sessionID).Return(open, nil)
				mockRepo.On("CompleteSession", mock.Anything, sessionID, 100, 10, mock.Anything, mock.Anything).
					Return(nil, repository.ErrSessionAlreadyCompleted)
			},
			expectedError: ErrSessionCompleted,
		},
		{
			name:   "Unknown session",
			userID: 123,
			score:  100,
			mockSetup: func() {
				mockRepo.On("GetSession", mock.Anything, sessionID).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil
			mockActivity.ExpectedCalls = nil
			mockActivity.Calls = nil

			tt.mockSetup()

			result, err := arena.CompleteSession(context.Background(), sessionID, tt.userID, tt.score, nil)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				if tt.checkResult != nil {
					tt.checkResult(t, result)
				}
			}

			mockRepo.AssertExpectations(t)
			mockActivity.AssertExpectations(t)
		})
	}
}

func TestGameArena_CancelSession(t *testing.T) {
	mockRepo := &mocks.MockGameRepository{}
	arena := NewGameArena(mockRepo, nil, 0, notify.Nop{}, &mocks.MockActivityFeed{})

	sessionID := uuid.New()

	tests := []struct {
		name          string
		mockSetup     func()
		expectedError error
	}{
		{
			name: "Owner cancels an open session",
			mockSetup: func() {
				mockRepo.On("CancelSession", mock.Anything, sessionID, int64(123)).Return(nil)
			},
		},
		{
			name: "Not the owner",
			mockSetup: func() {
				mockRepo.On("CancelSession", mock.Anything, sessionID, int64(123)).
					Return(repository.ErrNotOwner)
			},
			expectedError: ErrNotSessionOwner,
		},
		{
			name: "Completed sessions cannot be cancelled",
			mockSetup: func() {
				mockRepo.On("CancelSession", mock.Anything, sessionID, int64(123)).
					Return(repository.ErrSessionAlreadyCompleted)
			},
			expectedError: ErrSessionCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.ExpectedCalls = nil
			mockRepo.Calls = nil

			tt.mockSetup()

			err := arena.CancelSession(context.Background(), sessionID, 123)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGameArena_GetLeaderboard(t *testing.T) {
	mockRepo := &mocks.MockGameRepository{}
	arena := NewGameArena(mockRepo, nil, 0, notify.Nop{}, &mocks.MockActivityFeed{})

	_, err := arena.GetLeaderboard(context.Background(), "tetris", model.LeaderboardDaily, 10)
	assert.ErrorIs(t, err, ErrUnknownGame)

	rows := []*model.LeaderboardRow{
		{Rank: 1, UserID: 5, BestScore: 1900},
		{Rank: 2, UserID: 123, BestScore: 1600},
	}

	mockRepo.On("Leaderboard", mock.Anything, "block_blast", (*time.Time)(nil), 10).
		Return(rows, nil).Once()
	got, err := arena.GetLeaderboard(context.Background(), "block_blast", model.LeaderboardAllTime, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	mockRepo.On("Leaderboard", mock.Anything, "block_blast",
		mock.MatchedBy(func(since *time.Time) bool { return since != nil }), 5).
		Return(rows, nil).Once()
	_, err = arena.GetLeaderboard(context.Background(), "block_blast", model.LeaderboardDaily, 5)
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}
