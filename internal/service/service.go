package service

import (
	"context"
	"errors"
	"time"

	"coinforge/internal/model"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidInput  = errors.New("missing required field")
	ErrUserNotFound  = errors.New("user not found")
)

type Service struct {
	*LedgerService
	*StreakTracker
	*QuestEngine
	*RewardShop
	*GameArena
}

func NewService(ledger *LedgerService, streaks *StreakTracker, quests *QuestEngine, shop *RewardShop, arena *GameArena) *Service {
	return &Service{
		LedgerService: ledger,
		StreakTracker: streaks,
		QuestEngine:   quests,
		RewardShop:    shop,
		GameArena:     arena,
	}
}

type LedgerServiceI interface {
	OpenAccount(ctx context.Context, userID int64) (*model.Account, error)
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
	Earn(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error
	Spend(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error
	GrantBonus(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error
	Refund(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error
	GetBalance(ctx context.Context, userID int64) (int, error)
	GetHistory(ctx context.Context, userID int64, filter model.HistoryFilter) ([]*model.LedgerEntry, error)
	GetStats(ctx context.Context, userID int64, period model.StatsPeriod) (*model.LedgerStats, error)
}

type LedgerRepository interface {
	CreateAccount(ctx context.Context, userID int64) error
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
	Credit(ctx context.Context, entry *model.LedgerEntry) error
	Debit(ctx context.Context, entry *model.LedgerEntry, amount int) error
	GetEntries(ctx context.Context, userID int64, filter model.HistoryFilter) ([]*model.LedgerEntry, error)
	GetStats(ctx context.Context, userID int64, since *time.Time) (*model.LedgerStats, error)
}

type StreakTrackerI interface {
	RecordActivity(ctx context.Context, userID int64, now time.Time) (*model.StreakStatus, error)
	GetStatus(ctx context.Context, userID int64) (*model.StreakStatus, error)
	CheckMilestone(ctx context.Context, userID int64, streak int) (*model.Milestone, bool, error)
	GrantBonus(ctx context.Context, userID int64, days int) error
}

type StreakRepository interface {
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
	UpdateStreak(ctx context.Context, userID int64, observedDate *time.Time, streak int, activeDate time.Time) (bool, error)
	GetMilestoneGrants(ctx context.Context, userID int64) ([]int, error)
	GrantMilestone(ctx context.Context, userID int64, milestone model.Milestone, entry *model.LedgerEntry) error
}

type QuestEngineI interface {
	AssignDaily(ctx context.Context, userID int64) ([]*model.QuestAssignment, error)
	AssignWeekly(ctx context.Context, userID int64) ([]*model.QuestAssignment, error)
	UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int) error
	ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64) (*model.QuestAssignment, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type QuestRepository interface {
	GetActiveDefinitions(ctx context.Context, period model.QuestPeriod) ([]*model.QuestDefinition, error)
	AssignQuests(ctx context.Context, userID int64, defs []*model.QuestDefinition, windowStart, windowEnd time.Time) ([]*model.QuestAssignment, error)
	GetAssignments(ctx context.Context, userID int64, windowStart time.Time) ([]*model.QuestAssignment, error)
	UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int, now time.Time) ([]*model.QuestAssignment, error)
	ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.QuestAssignment, error)
	DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error)
}

type RewardShopI interface {
	ListAvailable(ctx context.Context, userID int64, typeFilter *model.RewardType, sort model.RewardSort) ([]*model.RewardCatalogItem, error)
	Purchase(ctx context.Context, userID int64, rewardID uuid.UUID) (*model.OwnedReward, error)
	Activate(ctx context.Context, userID int64, ownedID uuid.UUID) error
	Refund(ctx context.Context, userID int64, ownedID uuid.UUID, reason string) error
}

type ShopRepository interface {
	ListRewards(ctx context.Context, typeFilter *model.RewardType, sort model.RewardSort) ([]*model.RewardCatalogItem, error)
	GetReward(ctx context.Context, rewardID uuid.UUID) (*model.RewardCatalogItem, error)
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
	PurchaseReward(ctx context.Context, owned *model.OwnedReward, entry *model.LedgerEntry) error
	GetOwnedReward(ctx context.Context, ownedID uuid.UUID) (*model.OwnedReward, error)
	ListOwnedRewards(ctx context.Context, userID int64) ([]*model.OwnedReward, error)
	HasOwnedReward(ctx context.Context, userID int64, rewardID uuid.UUID) (bool, error)
	MarkRewardUsed(ctx context.Context, ownedID uuid.UUID, userID int64, now time.Time) error
	RefundReward(ctx context.Context, ownedID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.OwnedReward, error)
}

type GameArenaI interface {
	StartSession(ctx context.Context, userID int64, gameCode string) (*model.GameSession, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID, userID int64, score int, data map[string]any) (*model.SessionResult, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID, userID int64) error
	GetLeaderboard(ctx context.Context, gameCode string, period model.LeaderboardPeriod, limit int) ([]*model.LeaderboardRow, error)
}

type GameRepository interface {
	StartSession(ctx context.Context, session *model.GameSession, dailyCap int, dayStart time.Time) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.GameSession, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID, score, coins int, now time.Time, entry *model.LedgerEntry) (*model.GameSession, error)
	CancelSession(ctx context.Context, sessionID uuid.UUID, userID int64) error
	BestScore(ctx context.Context, userID int64, gameCode string, excludeSession uuid.UUID) (int, error)
	Rank(ctx context.Context, gameCode string, score int, since *time.Time) (int, error)
	Leaderboard(ctx context.Context, gameCode string, since *time.Time, limit int) ([]*model.LeaderboardRow, error)
}

// BadgeAwarder is the badge subsystem boundary. Both calls are idempotent and
// best-effort; the engine only ever invokes them after its own transaction
// committed.
type BadgeAwarder interface {
	Award(ctx context.Context, userID int64, badge, category string) error
	CheckAndAward(ctx context.Context, userID int64, category string) error
}

// ActivityFeed is the fan-out seam: shop and arena push activity events into
// it after commit, the recorder forwards them to the streak tracker and the
// quest engine.
type ActivityFeed interface {
	Record(ctx context.Context, userID int64, metric model.MetricType, delta int)
}
