package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type unitOfWork struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUnitOfWork creates a PostgreSQL UnitOfWork. Each WithinTx call runs in
// its own read-committed transaction.
func NewUnitOfWork(db *sql.DB, logger *zap.Logger) UnitOfWork {
	return &unitOfWork{db: db, logger: logger}
}

// NewRepositories binds all repositories to one connection or transaction
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Products:   NewProductRepository(db),
		Categories: NewCategoryRepository(db),
		Brands:     NewBrandRepository(db),
	}
}

func (u *unitOfWork) Repositories() Repositories {
	return NewRepositories(u.db)
}

// WithinTx commits when fn succeeds and rolls back otherwise. A cancelled
// context aborts the transaction.
func (u *unitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			u.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
