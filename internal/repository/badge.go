package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
)

// AwardBadge grants a badge at most once per user. Re-awarding is a no-op;
// the returned flag says whether this call created the grant.
func (r *Repository) AwardBadge(ctx context.Context, userID int64, badge, category string) (bool, error) {
	query, args, err := squirrel.
		Insert("user_badges").
		SetMap(map[string]interface{}{
			"user_id":    userID,
			"badge":      badge,
			"category":   category,
			"awarded_at": time.Now().UTC(),
		}).
		Suffix("ON CONFLICT (user_id, badge) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build badge insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *Repository) ListBadges(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := squirrel.
		Select("badge").
		From("user_badges").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("awarded_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var badges []string
	err = r.db.SelectContext(ctx, &badges, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}

	return badges, nil
}
