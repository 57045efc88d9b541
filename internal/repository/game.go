package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coinforge/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type gameSession struct {
	ID          uuid.UUID  `db:"id"`
	UserID      int64      `db:"user_id"`
	GameCode    string     `db:"game_code"`
	Score       int        `db:"score"`
	CoinsEarned int        `db:"coins_earned"`
	Completed   bool       `db:"completed"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	DurationSec *int64     `db:"duration_seconds"`
}

func (s *gameSession) toModel() *model.GameSession {
	session := &model.GameSession{
		ID:          s.ID,
		UserID:      s.UserID,
		GameCode:    s.GameCode,
		Score:       s.Score,
		CoinsEarned: s.CoinsEarned,
		Completed:   s.Completed,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.DurationSec != nil {
		session.Duration = time.Duration(*s.DurationSec) * time.Second
	}
	return session
}

// StartSession creates a session only while the user is under the daily cap
// for the game. The account row lock serializes concurrent starts by the same
// user, so the count and the insert cannot race across requests.
func (r *Repository) StartSession(ctx context.Context, session *model.GameSession, dailyCap int, dayStart time.Time) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getAccountWithTx(ctx, tx, session.UserID); err != nil {
			return err
		}

		var started int
		err := tx.GetContext(ctx, &started, `
            SELECT COUNT(*) FROM game_sessions
            WHERE user_id = $1 AND game_code = $2 AND started_at >= $3`,
			session.UserID, session.GameCode, dayStart,
		)
		if err != nil {
			return fmt.Errorf("failed to count today's sessions: %w", err)
		}
		if started >= dailyCap {
			return ErrDailyLimitReached
		}

		query, args, err := squirrel.
			Insert("game_sessions").
			SetMap(map[string]interface{}{
				"id":           session.ID,
				"user_id":      session.UserID,
				"game_code":    session.GameCode,
				"score":        0,
				"coins_earned": 0,
				"completed":    false,
				"started_at":   session.StartedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build session insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.GameSession, error) {
	var row gameSession
	query, args, err := squirrel.
		Select("*").
		From("game_sessions").
		Where(squirrel.Eq{"id": sessionID}).
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
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return row.toModel(), nil
}

// CompleteSession flips the completed flag in a single conditional update and
// credits the payout in the same transaction. A second completion attempt
// matches no row.
func (r *Repository) CompleteSession(ctx context.Context, sessionID uuid.UUID, score, coins int, now time.Time, entry *model.LedgerEntry) (*model.GameSession, error) {
	var completed *model.GameSession

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var row gameSession
		err := tx.GetContext(ctx, &row, `
            UPDATE game_sessions
            SET score = $2,
                coins_earned = $3,
                completed = true,
                completed_at = $4,
                duration_seconds = EXTRACT(EPOCH FROM ($4 - started_at))::bigint
            WHERE id = $1 AND NOT completed
            RETURNING id, user_id, game_code, score, coins_earned, completed,
                      started_at, completed_at, duration_seconds`,
			sessionID, score, coins, now,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if _, getErr := r.GetSession(ctx, sessionID); getErr != nil {
					return getErr
				}
				return ErrSessionAlreadyCompleted
			}
			return fmt.Errorf("failed to complete session: %w", err)
		}

		if coins > 0 {
			entry.Amount = coins
			if err := r.creditWithTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		completed = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}

func (r *Repository) CancelSession(ctx context.Context, sessionID uuid.UUID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `
        DELETE FROM game_sessions
        WHERE id = $1 AND user_id = $2 AND NOT completed`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		session, err := r.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return ErrNotOwner
		}
		return ErrSessionAlreadyCompleted
	}

	return nil
}

// BestScore returns the user's best completed score for the game, excluding
// the given session so a fresh completion can be compared against the prior
// best.
func (r *Repository) BestScore(ctx context.Context, userID int64, gameCode string, excludeSession uuid.UUID) (int, error) {
	var best int
	err := r.db.GetContext(ctx, &best, `
        SELECT COALESCE(MAX(score), 0) FROM game_sessions
        WHERE user_id = $1 AND game_code = $2 AND completed AND id <> $3`,
		userID, gameCode, excludeSession,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get best score: %w", err)
	}
	return best, nil
}

// Rank counts users whose period best beats the score, best score per user,
// descending.
func (r *Repository) Rank(ctx context.Context, gameCode string, score int, since *time.Time) (int, error) {
	var rank int
	err := r.db.GetContext(ctx, &rank, `
        SELECT COUNT(*) + 1 FROM (
            SELECT user_id, MAX(score) AS best
            FROM game_sessions
            WHERE game_code = $1 AND completed
              AND ($3::timestamptz IS NULL OR completed_at >= $3)
            GROUP BY user_id
        ) b
        WHERE b.best > $2`,
		gameCode, score, since,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return rank, nil
}

type leaderboardRow struct {
	UserID    int64 `db:"user_id"`
	BestScore int   `db:"best"`
}

func (r *Repository) Leaderboard(ctx context.Context, gameCode string, since *time.Time, limit int) ([]*model.LeaderboardRow, error) {
	var rows []*leaderboardRow
	err := r.db.SelectContext(ctx, &rows, `
        SELECT user_id, MAX(score) AS best
        FROM game_sessions
        WHERE game_code = $1 AND completed
          AND ($2::timestamptz IS NULL OR completed_at >= $2)
        GROUP BY user_id
        ORDER BY best DESC
        LIMIT $3`,
		gameCode, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	board := make([]*model.LeaderboardRow, len(rows))
	for i, row := range rows {
		board[i] = &model.LeaderboardRow{
			Rank:      i + 1,
			UserID:    row.UserID,
			BestScore: row.BestScore,
		}
	}

	return board, nil
}
