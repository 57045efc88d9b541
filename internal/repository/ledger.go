package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinforge/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ledgerEntry struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int       `db:"amount"`
	Kind      string    `db:"kind"`
	Reason    string    `db:"reason"`
	Metadata  []byte    `db:"metadata"`
	DedupKey  *string   `db:"dedup_key"`
	CreatedAt time.Time `db:"created_at"`
}

func (e *ledgerEntry) toModel() (*model.LedgerEntry, error) {
	entry := &model.LedgerEntry{
		ID:        e.ID,
		UserID:    e.UserID,
		Amount:    e.Amount,
		Kind:      model.EntryKind(e.Kind),
		Reason:    e.Reason,
		DedupKey:  e.DedupKey,
		CreatedAt: e.CreatedAt,
	}
	if len(e.Metadata) > 0 {
		if err := json.Unmarshal(e.Metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry metadata: %w", err)
		}
	}
	return entry, nil
}

// insertEntryWithTx appends one immutable ledger row. A duplicate dedup key
// inserts nothing and reports ErrDuplicateOperation, which rolls back the
// balance delta written in the same transaction.
func (r *Repository) insertEntryWithTx(ctx context.Context, tx *sqlx.Tx, entry *model.LedgerEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal entry metadata: %w", err)
	}

	query, args, err := squirrel.
		Insert("ledger_entries").
		SetMap(map[string]interface{}{
			"id":         entry.ID,
			"user_id":    entry.UserID,
			"amount":     entry.Amount,
			"kind":       string(entry.Kind),
			"reason":     entry.Reason,
			"metadata":   metadata,
			"dedup_key":  entry.DedupKey,
			"created_at": entry.CreatedAt,
		}).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build entry insert query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDuplicateOperation
	}

	return nil
}

// creditWithTx applies a positive balance delta and its entry atomically.
func (r *Repository) creditWithTx(ctx context.Context, tx *sqlx.Tx, entry *model.LedgerEntry) error {
	result, err := tx.ExecContext(ctx, `
        UPDATE accounts
        SET balance = balance + $1
        WHERE user_id = $2`,
		entry.Amount, entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return r.insertEntryWithTx(ctx, tx, entry)
}

// debitWithTx decrements the balance only while it covers the amount; the
// check and the write are one statement, so two spends cannot both pass a
// stale balance check. The entry amount is stored negative.
func (r *Repository) debitWithTx(ctx context.Context, tx *sqlx.Tx, entry *model.LedgerEntry, amount int) error {
	result, err := tx.ExecContext(ctx, `
        UPDATE accounts
        SET balance = balance - $1
        WHERE user_id = $2 AND balance >= $1`,
		amount, entry.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.GetAccount(ctx, entry.UserID); err != nil {
			return err
		}
		return ErrInsufficientBalance
	}

	return r.insertEntryWithTx(ctx, tx, entry)
}

func (r *Repository) Credit(ctx context.Context, entry *model.LedgerEntry) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.creditWithTx(ctx, tx, entry)
	})
}

func (r *Repository) Debit(ctx context.Context, entry *model.LedgerEntry, amount int) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.debitWithTx(ctx, tx, entry, amount)
	})
}

func (r *Repository) GetEntries(ctx context.Context, userID int64, filter model.HistoryFilter) ([]*model.LedgerEntry, error) {
	builder := squirrel.
		Select("id", "user_id", "amount", "kind", "reason", "metadata", "dedup_key", "created_at").
		From("ledger_entries").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		builder = builder.Where("kind = ANY(?)", pq.StringArray(kinds))
	}
	if filter.Since != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	var rows []*ledgerEntry
	err = r.db.SelectContext(ctx, &rows, sqlQuery, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*model.LedgerEntry{}, nil
		}
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	entries := make([]*model.LedgerEntry, len(rows))
	for i, row := range rows {
		entries[i], err = row.toModel()
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

type ledgerSums struct {
	Earned   int `db:"earned"`
	Spent    int `db:"spent"`
	Bonus    int `db:"bonus"`
	Refunded int `db:"refunded"`
}

func (r *Repository) GetStats(ctx context.Context, userID int64, since *time.Time) (*model.LedgerStats, error) {
	query := `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE kind = 'EARNED'), 0)  AS earned,
            COALESCE(SUM(-amount) FILTER (WHERE kind = 'SPENT'), 0)  AS spent,
            COALESCE(SUM(amount) FILTER (WHERE kind = 'BONUS'), 0)   AS bonus,
            COALESCE(SUM(amount) FILTER (WHERE kind = 'REFUND'), 0)  AS refunded
        FROM ledger_entries
        WHERE user_id = $1 AND ($2::timestamptz IS NULL OR created_at >= $2)`

	var sums ledgerSums
	err := r.db.GetContext(ctx, &sums, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats: %w", err)
	}

	return &model.LedgerStats{
		UserID:   userID,
		Earned:   sums.Earned,
		Spent:    sums.Spent,
		Bonus:    sums.Bonus,
		Refunded: sums.Refunded,
		Net:      sums.Earned - sums.Spent + sums.Refunded,
	}, nil
}
