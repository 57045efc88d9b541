package service

import (
	"context"
	"errors"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/repository"

	"github.com/google/uuid"
)

// LedgerService owns coin balances and their immutable history. Every
// mutation writes the balance delta and the ledger entry in one transaction,
// so an account balance always equals the sum of its entries.
type LedgerService struct {
	repo LedgerRepository
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

// OpenAccount creates an empty account for the user. Opening an existing
// account is a no-op, the current state is returned either way.
func (s *LedgerService) OpenAccount(ctx context.Context, userID int64) (*model.Account, error) {
	if err := s.repo.CreateAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetAccount(ctx, userID)
}

func (s *LedgerService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return acc, nil
}

func newEntry(userID int64, amount int, kind model.EntryKind, reason string, metadata map[string]any) *model.LedgerEntry {
	entry := &model.LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	// Callers needing exactly-once semantics across retries pass a dedup key
	// in the metadata; a repeated key makes the whole mutation a no-op error.
	if key, ok := metadata["dedup_key"].(string); ok && key != "" {
		entry.DedupKey = &key
	}
	return entry
}

func validateMutation(amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if reason == "" {
		return ErrInvalidInput
	}
	return nil
}

func (s *LedgerService) credit(ctx context.Context, userID int64, amount int, kind model.EntryKind, reason string, metadata map[string]any) error {
	if err := validateMutation(amount, reason); err != nil {
		return err
	}

	err := s.repo.Credit(ctx, newEntry(userID, amount, kind, reason, metadata))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *LedgerService) Earn(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error {
	return s.credit(ctx, userID, amount, model.EntryEarned, reason, metadata)
}

func (s *LedgerService) GrantBonus(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error {
	return s.credit(ctx, userID, amount, model.EntryBonus, reason, metadata)
}

func (s *LedgerService) Refund(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error {
	return s.credit(ctx, userID, amount, model.EntryRefund, reason, metadata)
}

// Spend records a negative entry. The balance check and decrement are one
// conditional statement in the repository; an insufficient balance rejects
// the call and writes nothing.
func (s *LedgerService) Spend(ctx context.Context, userID int64, amount int, reason string, metadata map[string]any) error {
	if err := validateMutation(amount, reason); err != nil {
		return err
	}

	entry := newEntry(userID, -amount, model.EntrySpent, reason, metadata)

	err := s.repo.Debit(ctx, entry, amount)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (int, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return acc.Balance, nil
}

func (s *LedgerService) GetHistory(ctx context.Context, userID int64, filter model.HistoryFilter) ([]*model.LedgerEntry, error) {
	return s.repo.GetEntries(ctx, userID, filter)
}

func periodStart(period model.StatsPeriod, now time.Time) *time.Time {
	var since time.Time
	switch period {
	case model.PeriodDaily:
		since = now.AddDate(0, 0, -1)
	case model.PeriodWeekly:
		since = now.AddDate(0, 0, -7)
	case model.PeriodMonthly:
		since = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &since
}

func (s *LedgerService) GetStats(ctx context.Context, userID int64, period model.StatsPeriod) (*model.LedgerStats, error) {
	stats, err := s.repo.GetStats(ctx, userID, periodStart(period, time.Now().UTC()))
	if err != nil {
		return nil, err
	}
	stats.Period = period
	return stats, nil
}
