package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinforge/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type account struct {
	UserID         int64      `db:"user_id"`
	Balance        int        `db:"balance"`
	Experience     int        `db:"experience"`
	Level          int        `db:"level"`
	Streak         int        `db:"streak"`
	LastActiveDate *time.Time `db:"last_active_date"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (a *account) toModel() *model.Account {
	return &model.Account{
		UserID:         a.UserID,
		Balance:        a.Balance,
		Experience:     a.Experience,
		Level:          a.Level,
		Streak:         a.Streak,
		LastActiveDate: a.LastActiveDate,
		CreatedAt:      a.CreatedAt,
	}
}

func (r *Repository) CreateAccount(ctx context.Context, userID int64) error {
	query, args, err := squirrel.
		Insert("accounts").
		SetMap(map[string]interface{}{
			"user_id":    userID,
			"balance":    0,
			"experience": 0,
			"level":      1,
			"streak":     0,
			"created_at": time.Now().UTC(),
		}).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build account insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

func (r *Repository) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	var acc account
	query, args, err := squirrel.
		Select("*").
		From("accounts").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &acc, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return acc.toModel(), nil
}

func (r *Repository) getAccountWithTx(ctx context.Context, tx *sqlx.Tx, userID int64) (*model.Account, error) {
	var acc account
	query, args, err := squirrel.
		Select("*").
		From("accounts").
		Where(squirrel.Eq{"user_id": userID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, &acc, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return acc.toModel(), nil
}

// addExperienceWithTx adds xp and recomputes the level from the new total.
// The row lock taken by the xp update keeps the level consistent with the
// xp it was derived from until commit.
func (r *Repository) addExperienceWithTx(ctx context.Context, tx *sqlx.Tx, userID int64, xp int) error {
	var newXP int
	err := tx.QueryRowContext(ctx, `
        UPDATE accounts
        SET experience = experience + $1
        WHERE user_id = $2
        RETURNING experience`,
		xp, userID,
	).Scan(&newXP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add experience: %w", err)
	}

	updateQuery, updateArgs, err := squirrel.
		Update("accounts").
		Set("level", model.LevelForXP(newXP)).
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}

	return nil
}
