package repository

import (
	"context"
	"fmt"

	"coinforge/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateOperation = errors.New("duplicate operation")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOutOfStock          = errors.New("out of stock")
	ErrDailyLimitReached   = errors.New("daily limit reached")

	ErrAlreadyOwned            = errors.New("reward already owned")
	ErrRewardAlreadyUsed       = errors.New("reward already used")
	ErrRewardExpired           = errors.New("reward expired")
	ErrQuestNotCompleted       = errors.New("quest not completed")
	ErrRewardAlreadyClaimed    = errors.New("reward already claimed")
	ErrMilestoneAlreadyGranted = errors.New("milestone already granted")
	ErrMilestoneNotReached     = errors.New("milestone not reached")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrNotOwner                = errors.New("not owner")
)

type Repository struct {
	db *sqlx.DB
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Transaction runs t inside one database transaction. Every multi-statement
// mutation in this package goes through it so that a balance delta and its
// ledger entry (or a stock decrement and its ownership row) commit or abort
// together.
func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func New(cfg Config) (*Repository, error) {
	db, err := sqlx.Connect("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	return &Repository{db: db}, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}
