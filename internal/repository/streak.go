package repository

import (
	"context"
	"fmt"
	"time"

	"coinforge/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// UpdateStreak persists a new streak value keyed on the last active date the
// caller observed. A concurrent request that already recorded today makes the
// condition fail; zero rows means "someone else got there first", which the
// caller treats as a no-op.
func (r *Repository) UpdateStreak(ctx context.Context, userID int64, observedDate *time.Time, streak int, activeDate time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
        UPDATE accounts
        SET streak = $1, last_active_date = $2
        WHERE user_id = $3 AND last_active_date IS NOT DISTINCT FROM $4`,
		streak, activeDate, userID, observedDate,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update streak: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *Repository) GetMilestoneGrants(ctx context.Context, userID int64) ([]int, error) {
	query, args, err := squirrel.
		Select("days").
		From("streak_milestone_grants").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("days").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var days []int
	err = r.db.SelectContext(ctx, &days, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone grants: %w", err)
	}

	return days, nil
}

// GrantMilestone pays out one streak milestone at most once. The unique key
// on (user_id, days) makes a concurrent duplicate grant insert nothing, and
// the streak re-check runs under the account row lock, all inside the same
// transaction as the coin credit.
func (r *Repository) GrantMilestone(ctx context.Context, userID int64, milestone model.Milestone, entry *model.LedgerEntry) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		acc, err := r.getAccountWithTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if acc.Streak < milestone.Days {
			return ErrMilestoneNotReached
		}

		query, args, err := squirrel.
			Insert("streak_milestone_grants").
			SetMap(map[string]interface{}{
				"user_id":    userID,
				"days":       milestone.Days,
				"granted_at": time.Now().UTC(),
			}).
			Suffix("ON CONFLICT (user_id, days) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build milestone grant query: %w", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert milestone grant: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrMilestoneAlreadyGranted
		}

		if err := r.creditWithTx(ctx, tx, entry); err != nil {
			return err
		}

		return r.addExperienceWithTx(ctx, tx, userID, milestone.XPReward)
	})
}
