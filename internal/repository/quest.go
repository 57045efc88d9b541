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

type questDefinition struct {
	ID          uuid.UUID `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Period      string    `db:"period"`
	TargetType  string    `db:"target_type"`
	TargetValue int       `db:"target_value"`
	CoinReward  int       `db:"coin_reward"`
	XPReward    int       `db:"xp_reward"`
	Priority    int       `db:"priority"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
}

func (d *questDefinition) toModel() *model.QuestDefinition {
	return &model.QuestDefinition{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Period:      model.QuestPeriod(d.Period),
		TargetType:  model.MetricType(d.TargetType),
		TargetValue: d.TargetValue,
		CoinReward:  d.CoinReward,
		XPReward:    d.XPReward,
		Priority:    d.Priority,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
	}
}

type questAssignment struct {
	ID            uuid.UUID  `db:"id"`
	UserID        int64      `db:"user_id"`
	QuestID       uuid.UUID  `db:"quest_id"`
	Progress      int        `db:"progress"`
	Completed     bool       `db:"completed"`
	RewardClaimed bool       `db:"reward_claimed"`
	WindowStart   time.Time  `db:"window_start"`
	AssignedAt    time.Time  `db:"assigned_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

func (a *questAssignment) toModel() *model.QuestAssignment {
	return &model.QuestAssignment{
		ID:            a.ID,
		UserID:        a.UserID,
		QuestID:       a.QuestID,
		Progress:      a.Progress,
		Completed:     a.Completed,
		RewardClaimed: a.RewardClaimed,
		WindowStart:   a.WindowStart,
		AssignedAt:    a.AssignedAt,
		ExpiresAt:     a.ExpiresAt,
		CompletedAt:   a.CompletedAt,
	}
}

func (r *Repository) GetActiveDefinitions(ctx context.Context, period model.QuestPeriod) ([]*model.QuestDefinition, error) {
	query, args, err := squirrel.
		Select("*").
		From("quest_definitions").
		Where(squirrel.Eq{"period": string(period), "active": true}).
		OrderBy("priority DESC", "created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*questDefinition
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get quest definitions: %w", err)
	}

	defs := make([]*model.QuestDefinition, len(rows))
	for i, row := range rows {
		defs[i] = row.toModel()
	}

	return defs, nil
}

// AssignQuests creates the user's assignments for one window. The unique key
// on (user_id, quest_id, window_start) makes the call idempotent: a repeated
// or concurrent call inserts nothing and both callers read back the same
// window's assignments.
func (r *Repository) AssignQuests(ctx context.Context, userID int64, defs []*model.QuestDefinition, windowStart, windowEnd time.Time) ([]*model.QuestAssignment, error) {
	var assignments []*model.QuestAssignment

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		for _, def := range defs {
			query, args, err := squirrel.
				Insert("quest_assignments").
				SetMap(map[string]interface{}{
					"id":             uuid.New(),
					"user_id":        userID,
					"quest_id":       def.ID,
					"progress":       0,
					"completed":      false,
					"reward_claimed": false,
					"window_start":   windowStart,
					"assigned_at":    now,
					"expires_at":     windowEnd,
				}).
				Suffix("ON CONFLICT (user_id, quest_id, window_start) DO NOTHING").
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build assignment insert query: %w", err)
			}

			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
		}

		assigned, err := r.getAssignmentsWithTx(ctx, tx, userID, windowStart)
		if err != nil {
			return err
		}
		assignments = assigned

		return nil
	})
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) getAssignmentsWithTx(ctx context.Context, tx *sqlx.Tx, userID int64, windowStart time.Time) ([]*model.QuestAssignment, error) {
	query, args, err := assignmentsQuery(userID, windowStart)
	if err != nil {
		return nil, err
	}

	var rows []*assignmentRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}

	return assignmentModels(rows), nil
}

func (r *Repository) GetAssignments(ctx context.Context, userID int64, windowStart time.Time) ([]*model.QuestAssignment, error) {
	query, args, err := assignmentsQuery(userID, windowStart)
	if err != nil {
		return nil, err
	}

	var rows []*assignmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}

	return assignmentModels(rows), nil
}

type assignmentRow struct {
	questAssignment
	DefTitle       string    `db:"def_title"`
	DefDescription string    `db:"def_description"`
	DefPeriod      string    `db:"def_period"`
	DefTargetType  string    `db:"def_target_type"`
	DefTargetValue int       `db:"def_target_value"`
	DefCoinReward  int       `db:"def_coin_reward"`
	DefXPReward    int       `db:"def_xp_reward"`
	DefPriority    int       `db:"def_priority"`
	DefCreatedAt   time.Time `db:"def_created_at"`
}

func assignmentsQuery(userID int64, windowStart time.Time) (string, []interface{}, error) {
	return squirrel.
		Select(
			"qa.id", "qa.user_id", "qa.quest_id", "qa.progress", "qa.completed",
			"qa.reward_claimed", "qa.window_start", "qa.assigned_at", "qa.expires_at", "qa.completed_at",
			"qd.title AS def_title",
			"qd.description AS def_description",
			"qd.period AS def_period",
			"qd.target_type AS def_target_type",
			"qd.target_value AS def_target_value",
			"qd.coin_reward AS def_coin_reward",
			"qd.xp_reward AS def_xp_reward",
			"qd.priority AS def_priority",
			"qd.created_at AS def_created_at",
		).
		From("quest_assignments qa").
		Join("quest_definitions qd ON qd.id = qa.quest_id").
		Where(squirrel.Eq{"qa.user_id": userID, "qa.window_start": windowStart}).
		OrderBy("qd.priority DESC", "qa.assigned_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func assignmentModels(rows []*assignmentRow) []*model.QuestAssignment {
	assignments := make([]*model.QuestAssignment, len(rows))
	for i, row := range rows {
		a := row.questAssignment.toModel()
		a.Definition = &model.QuestDefinition{
			ID:          row.QuestID,
			Title:       row.DefTitle,
			Description: row.DefDescription,
			Period:      model.QuestPeriod(row.DefPeriod),
			TargetType:  model.MetricType(row.DefTargetType),
			TargetValue: row.DefTargetValue,
			CoinReward:  row.DefCoinReward,
			XPReward:    row.DefXPReward,
			Priority:    row.DefPriority,
			Active:      true,
			CreatedAt:   row.DefCreatedAt,
		}
		assignments[i] = a
	}
	return assignments
}

// UpdateProgress advances every live assignment tracking targetType and flips
// completion inside the same statement that adds the delta. Returned rows are
// the assignments this call completed; the flip itself is the once-only guard,
// a later call sees completed = true and skips the row.
func (r *Repository) UpdateProgress(ctx context.Context, userID int64, targetType model.MetricType, delta int, now time.Time) ([]*model.QuestAssignment, error) {
	rows, err := r.db.QueryxContext(ctx, `
        UPDATE quest_assignments qa
        SET progress = qa.progress + $1,
            completed = (qa.progress + $1 >= qd.target_value),
            completed_at = CASE WHEN qa.progress + $1 >= qd.target_value THEN $4 END
        FROM quest_definitions qd
        WHERE qa.quest_id = qd.id
          AND qa.user_id = $2
          AND qd.target_type = $3
          AND NOT qa.completed
          AND qa.expires_at > $4
        RETURNING qa.id, qa.user_id, qa.quest_id, qa.progress, qa.completed,
                  qa.reward_claimed, qa.window_start, qa.assigned_at, qa.expires_at, qa.completed_at`,
		delta, userID, string(targetType), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update quest progress: %w", err)
	}
	defer rows.Close()

	var completed []*model.QuestAssignment
	for rows.Next() {
		var row questAssignment
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if row.Completed {
			completed = append(completed, row.toModel())
		}
	}

	return completed, rows.Err()
}

// ClaimReward pays out a completed assignment exactly once. The claimed flag
// flips in a single conditional update; zero affected rows are classified by
// re-reading the row so the caller gets a precise state-conflict error.
func (r *Repository) ClaimReward(ctx context.Context, assignmentID uuid.UUID, userID int64, entry *model.LedgerEntry) (*model.QuestAssignment, error) {
	var claimed *model.QuestAssignment

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var row assignmentRow
		err := tx.GetContext(ctx, &row, `
            UPDATE quest_assignments qa
            SET reward_claimed = true
            FROM quest_definitions qd
            WHERE qa.quest_id = qd.id
              AND qa.id = $1
              AND qa.user_id = $2
              AND qa.completed
              AND NOT qa.reward_claimed
            RETURNING qa.id, qa.user_id, qa.quest_id, qa.progress, qa.completed,
                      qa.reward_claimed, qa.window_start, qa.assigned_at, qa.expires_at, qa.completed_at,
                      qd.title AS def_title, qd.description AS def_description,
                      qd.period AS def_period, qd.target_type AS def_target_type,
                      qd.target_value AS def_target_value, qd.coin_reward AS def_coin_reward,
                      qd.xp_reward AS def_xp_reward, qd.priority AS def_priority,
                      qd.created_at AS def_created_at`,
			assignmentID, userID,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.classifyClaimFailure(ctx, tx, assignmentID, userID)
			}
			return fmt.Errorf("failed to claim reward: %w", err)
		}

		claimed = assignmentModels([]*assignmentRow{&row})[0]

		entry.Amount = claimed.Definition.CoinReward
		if err := r.creditWithTx(ctx, tx, entry); err != nil {
			return err
		}

		return r.addExperienceWithTx(ctx, tx, userID, claimed.Definition.XPReward)
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (r *Repository) classifyClaimFailure(ctx context.Context, tx *sqlx.Tx, assignmentID uuid.UUID, userID int64) error {
	var row questAssignment
	err := tx.GetContext(ctx, &row, `
        SELECT id, user_id, quest_id, progress, completed, reward_claimed,
               window_start, assigned_at, expires_at, completed_at
        FROM quest_assignments
        WHERE id = $1`,
		assignmentID,
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
	case row.RewardClaimed:
		return ErrRewardAlreadyClaimed
	default:
		return ErrQuestNotCompleted
	}
}

func (r *Repository) DeleteExpiredAssignments(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := squirrel.
		Delete("quest_assignments").
		Where(squirrel.Lt{"expires_at": now}).
		Where(squirrel.Eq{"completed": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired assignments: %w", err)
	}

	return result.RowsAffected()
}
