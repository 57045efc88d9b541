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
)

type rewardItem struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Description  string    `db:"description"`
	Type         string    `db:"type"`
	Price        int       `db:"price"`
	Stock        *int      `db:"stock"`
	DurationDays *int      `db:"duration_days"`
	Payload      []byte    `db:"payload"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (i *rewardItem) toModel() (*model.RewardCatalogItem, error) {
	item := &model.RewardCatalogItem{
		ID:           i.ID,
		Name:         i.Name,
		Description:  i.Description,
		Type:         model.RewardType(i.Type),
		Price:        i.Price,
		Stock:        i.Stock,
		DurationDays: i.DurationDays,
		Active:       i.Active,
		CreatedAt:    i.CreatedAt,
	}
	if len(i.Payload) > 0 {
		if err := json.Unmarshal(i.Payload, &item.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reward payload: %w", err)
		}
	}
	return item, nil
}

type ownedReward struct {
	ID              uuid.UUID  `db:"id"`
	UserID          int64      `db:"user_id"`
	RewardID        uuid.UUID  `db:"reward_id"`
	CoinsPaid       int        `db:"coins_paid"`
	IsUsed          bool       `db:"is_used"`
	UniqueOwnership bool       `db:"unique_ownership"`
	RedemptionCode  *string    `db:"redemption_code"`
	PurchasedAt     time.Time  `db:"purchased_at"`
	UsedAt          *time.Time `db:"used_at"`
	ExpiresAt       *time.Time `db:"expires_at"`
}

func (o *ownedReward) toModel() *model.OwnedReward {
	return &model.OwnedReward{
		ID:             o.ID,
		UserID:         o.UserID,
		RewardID:       o.RewardID,
		CoinsPaid:      o.CoinsPaid,
		IsUsed:         o.IsUsed,
		RedemptionCode: o.RedemptionCode,
		PurchasedAt:    o.PurchasedAt,
		UsedAt:         o.UsedAt,
		ExpiresAt:      o.ExpiresAt,
	}
}

func (r *Repository) ListRewards(ctx context.Context, typeFilter *model.RewardType, sort model.RewardSort) ([]*model.RewardCatalogItem, error) {
	builder := squirrel.
		Select("*").
		From("reward_items").
		Where(squirrel.Eq{"active": true}).
		PlaceholderFormat(squirrel.Dollar)

	switch sort {
	case model.SortPriceDesc:
		builder = builder.OrderBy("price DESC", "name")
	case model.SortName:
		builder = builder.OrderBy("name")
	case model.SortNewest:
		builder = builder.OrderBy("created_at DESC", "name")
	default:
		builder = builder.OrderBy("price", "name")
	}

	if typeFilter != nil {
		builder = builder.Where(squirrel.Eq{"type": string(*typeFilter)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*rewardItem
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	items := make([]*model.RewardCatalogItem, len(rows))
	for i, row := range rows {
		items[i], err = row.toModel()
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (r *Repository) GetReward(ctx context.Context, rewardID uuid.UUID) (*model.RewardCatalogItem, error) {
	var row rewardItem
	query, args, err := squirrel.
		Select("*").
		From("reward_items").
		Where(squirrel.Eq{"id": rewardID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}

	return row.toModel()
}

// PurchaseReward performs the whole purchase as one transaction: conditional
// stock decrement, conditional balance debit, ownership insert. NULL stock is
// unlimited and stays NULL through the decrement. Any failed condition aborts
// the lot; with stock = 1 and two buyers, one commits and one gets
// ErrOutOfStock.
func (r *Repository) PurchaseReward(ctx context.Context, owned *model.OwnedReward, entry *model.LedgerEntry) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            UPDATE reward_items
            SET stock = stock - 1
            WHERE id = $1 AND active AND (stock IS NULL OR stock > 0)`,
			owned.RewardID,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			item, err := r.GetReward(ctx, owned.RewardID)
			if err != nil {
				return err
			}
			if !item.Active {
				return ErrNotFound
			}
			return ErrOutOfStock
		}

		uniqueOwnership := owned.Item != nil && owned.Item.Type.UniqueOwnership()

		query, args, err := squirrel.
			Insert("owned_rewards").
			SetMap(map[string]interface{}{
				"id":               owned.ID,
				"user_id":          owned.UserID,
				"reward_id":        owned.RewardID,
				"coins_paid":       owned.CoinsPaid,
				"is_used":          owned.IsUsed,
				"unique_ownership": uniqueOwnership,
				"redemption_code":  owned.RedemptionCode,
				"purchased_at":     owned.PurchasedAt,
				"used_at":          owned.UsedAt,
				"expires_at":       owned.ExpiresAt,
			}).
			Suffix("ON CONFLICT (user_id, reward_id) WHERE unique_ownership DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build owned reward insert query: %w", err)
		}

		result, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert owned reward: %w", err)
		}

		rows, err = result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyOwned
		}

		return r.debitWithTx(ctx, tx, entry, owned.CoinsPaid)
	})
}

func (r *Repository) GetOwnedReward(ctx context.Context, ownedID uuid.UUID) (*model.OwnedReward, error) {
	var row struct {
		ownedReward
		rewardItem `db:"item"`
	}

	err := r.db.GetContext(ctx, &row, `
        SELECT o.id, o.user_id, o.reward_id, o.coins_paid, o.is_used, o.unique_ownership,
               o.redemption_code, o.purchased_at, o.used_at, o.expires_at,
               i.id AS "item.id", i.name AS "item.name", i.description AS "item.description",
               i.type AS "item.type", i.price AS "item.price", i.stock AS "item.stock",
               i.duration_days AS "item.duration_days", i.payload AS "item.payload",
               i.active AS "item.active", i.created_at AS "item.created_at"
        FROM owned_rewards o
        JOIN reward_items i ON i.id = o.reward_id
        WHERE o.id = $1`,
		ownedID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get owned reward: %w", err)
	}

	owned := row.ownedReward.toModel()
	item, err := row.rewardItem.toModel()
	if err != nil {
		return nil, err
	}
	owned.Item = item

	return owned, nil
}

func (r *Repository) ListOwnedRewards(ctx context.Context, userID int64) ([]*model.OwnedReward, error) {
	query, args, err := squirrel.
		Select("id", "user_id", "reward_id", "coins_paid", "is_used", "unique_ownership",
			"redemption_code", "purchased_at", "used_at", "expires_at").
		From("owned_rewards").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("purchased_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*ownedReward
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned rewards: %w", err)
	}

	owned := make([]*model.OwnedReward, len(rows))
	for i, row := range rows {
		owned[i] = row.toModel()
	}

	return owned, nil
}

func (r *Repository) HasOwnedReward(ctx context.Context, userID int64, rewardID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
        SELECT EXISTS (
            SELECT 1 FROM owned_rewards WHERE user_id = $1 AND reward_id = $2
        )`,
		userID, rewardID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check owned reward: %w", err)
	}
	return exists, nil
}

// MarkRewardUsed flips is_used once; the conditions on the update are the
// guard. Zero rows are re-read and classified.
func (r *Repository) MarkRewardUsed(ctx context.Context, ownedID uuid.UUID, userID int64, now time.Time) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE owned_rewards
        SET is_used = true, used_at = $3
        WHERE id = $1 AND user_id = $2 AND NOT is_used
          AND (expires_at IS NULL OR expires_at > $3)`,
		ownedID, userID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reward used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.classifyActivationFailure(ctx, ownedID, userID, now)
	}

	return nil
}

func (r *Repository) classifyActivationFailure(ctx context.Context, ownedID uuid.UUID, userID int64, now time.Time) error {
	var row ownedReward
	err := r.db.GetContext(ctx, &row, `
        SELECT id, user_id, reward_id, coins_paid, is_used, unique_ownership,
               redemption_code, purchased_at, used_at, expires_at
        FROM owned_rewards
        WHERE id = $1`,
		ownedID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	switch {
	case row.UserID != userID:
		return ErrNotOwner
	case row.IsUsed:
		return ErrRewardAlreadyUsed
	default:
		return ErrRewardExpired
	}
}

// RefundReward deletes an unused ownership record, restores finite stock and
// credits the coins back, all in one transaction.
func (r *Repository) RefundReward(ctx context.Context, ownedID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.OwnedReward, error) {
	var refunded *model.OwnedReward

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var row ownedReward
		err := tx.GetContext(ctx, &row, `
            DELETE FROM owned_rewards
            WHERE id = $1 AND user_id = $2 AND NOT is_used
            RETURNING id, user_id, reward_id, coins_paid, is_used, unique_ownership,
                      redemption_code, purchased_at, used_at, expires_at`,
			ownedID, userID,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.classifyRefundFailure(ctx, tx, ownedID, userID)
			}
			return fmt.Errorf("failed to delete owned reward: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            UPDATE reward_items
            SET stock = stock + 1
            WHERE id = $1 AND stock IS NOT NULL`,
			row.RewardID,
		)
		if err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}

		entry.Amount = row.CoinsPaid
		if err := r.creditWithTx(ctx, tx, entry); err != nil {
			return err
		}

		refunded = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return refunded, nil
}

func (r *Repository) classifyRefundFailure(ctx context.Context, tx *sqlx.Tx, ownedID uuid.UUID, userID int64) error {
	var row ownedReward
	err := tx.GetContext(ctx, &row, `
        SELECT id, user_id, reward_id, coins_paid, is_used, unique_ownership,
               redemption_code, purchased_at, used_at, expires_at
        FROM owned_rewards
        WHERE id = $1`,
		ownedID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if row.UserID != userID {
		return ErrNotOwner
	}
	return ErrRewardAlreadyUsed
}
