// Package mocks holds hand-written testify mocks for the repository
// interfaces the services depend on.
package mocks

import (
	"context"
	"time"

	"coinforge/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateAccount(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockLedgerRepository) Credit(ctx context.Context, entry *model.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) Debit(ctx context.Context, entry *model.LedgerEntry, amount int) error {
	args := m.Called(ctx, entry, amount)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetEntries(ctx context.Context, userID int64, filter model.HistoryFilter) ([]*model.LedgerEntry, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetStats(ctx context.Context, userID int64, since *time.Time) (*model.LedgerStats, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LedgerStats), args.Error(1)
}

type MockStreakRepository struct {
	mock.Mock
}

func (m *MockStreakRepository) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockStreakRepository) UpdateStreak(ctx context.Context, userID int64, observedDate *time.Time, streak int, activeDate time.Time) (bool, error) {
	args := m.Called(ctx, userID, observedDate, streak, activeDate)
	return args.Bool(0), args.Error(1)
}

func (m *MockStreakRepository) GetMilestoneGrants(ctx context.Context, userID int64) ([]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockStreakRepository) GrantMilestone(ctx context.Context, userID int64, milestone model.Milestone, entry *model.LedgerEntry) error {
	args := m.Called(ctx, userID, milestone, entry)
	return args.Error(0)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) GetActiveDefinitions(ctx context.Context, period model.QuestPeriod) ([]*model.QuestDefinition, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestDefinition), args.Error(1)
}

func (m *MockQuestRepository) AssignQuests(ctx context.Context, userID int64, defs []*model.QuestDefinition, windowStart, windowEnd time.Time) ([]*model.QuestAssignment, error) {
	args := m.Called(ctx, userID, defs, windowStart, windowEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestRepository) GetAssignments(ctx context.Context, userID int64, windowStart time.Time) ([]*model.QuestAssignment, error) {
	args := m.Called(ctx, userID, windowStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestRepository) UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int, now time.Time) ([]*model.QuestAssignment, error) {
	args := m.Called(ctx, userID, targetType, delta, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestRepository) ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.QuestAssignment, error) {
	args := m.Called(ctx, assignmentID, userID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestAssignment), args.Error(1)
}

func (m *MockQuestRepository) DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockShopRepository struct {
	mock.Mock
}

func (m *MockShopRepository) ListRewards(ctx context.Context, typeFilter *model.RewardType, sort model.RewardSort) ([]*model.RewardCatalogItem, error) {
	args := m.Called(ctx, typeFilter, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RewardCatalogItem), args.Error(1)
}

func (m *MockShopRepository) GetReward(ctx context.Context, rewardID uuid.UUID) (*model.RewardCatalogItem, error) {
	args := m.Called(ctx, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RewardCatalogItem), args.Error(1)
}

func (m *MockShopRepository) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockShopRepository) PurchaseReward(ctx context.Context, owned *model.OwnedReward, entry *model.LedgerEntry) error {
	args := m.Called(ctx, owned, entry)
	return args.Error(0)
}

func (m *MockShopRepository) GetOwnedReward(ctx context.Context, ownedID uuid.UUID) (*model.OwnedReward, error) {
	args := m.Called(ctx, ownedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OwnedReward), args.Error(1)
}

func (m *MockShopRepository) ListOwnedRewards(ctx context.Context, userID int64) ([]*model.OwnedReward, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OwnedReward), args.Error(1)
}

func (m *MockShopRepository) HasOwnedReward(ctx context.Context, userID int64, rewardID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, rewardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockShopRepository) MarkRewardUsed(ctx context.Context, ownedID uuid.UUID, userID int64, now time.Time) error {
	args := m.Called(ctx, ownedID, userID, now)
	return args.Error(0)
}

func (m *MockShopRepository) RefundReward(ctx context.Context, ownedID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.OwnedReward, error) {
	args := m.Called(ctx, ownedID, userID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OwnedReward), args.Error(1)
}

type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) StartSession(ctx context.Context, session *model.GameSession, dailyCap int, dayStart time.Time) error {
	args := m.Called(ctx, session, dailyCap, dayStart)
	return args.Error(0)
}

func (m *MockGameRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.GameSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameSession), args.Error(1)
}

func (m *MockGameRepository) CompleteSession(ctx context.Context, sessionID uuid.UUID, score, coins int, now time.Time, entry *model.LedgerEntry) (*model.GameSession, error) {
	args := m.Called(ctx, sessionID, score, coins, now, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GameSession), args.Error(1)
}

func (m *MockGameRepository) CancelSession(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

func (m *MockGameRepository) BestScore(ctx context.Context, userID int64, gameCode string, excludeSession uuid.UUID) (int, error) {
	args := m.Called(ctx, userID, gameCode, excludeSession)
	return args.Int(0), args.Error(1)
}

func (m *MockGameRepository) Rank(ctx context.Context, gameCode string, score int, since *time.Time) (int, error) {
	args := m.Called(ctx, gameCode, score, since)
	return args.Int(0), args.Error(1)
}

func (m *MockGameRepository) Leaderboard(ctx context.Context, gameCode string, since *time.Time, limit int) ([]*model.LeaderboardRow, error) {
	args := m.Called(ctx, gameCode, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LeaderboardRow), args.Error(1)
}

type MockBadgeAwarder struct {
	mock.Mock
}

func (m *MockBadgeAwarder) Award(ctx context.Context, userID int64, badge, category string) error {
	args := m.Called(ctx, userID, badge, category)
	return args.Error(0)
}

func (m *MockBadgeAwarder) CheckAndAward(ctx context.Context, userID int64, category string) error {
	args := m.Called(ctx, userID, category)
	return args.Error(0)
}

type MockActivityFeed struct {
	mock.Mock
}

func (m *MockActivityFeed) Record(ctx context.Context, userID int64, metric model.MetricType, delta int) {
	m.Called(ctx, userID, metric, delta)
}
