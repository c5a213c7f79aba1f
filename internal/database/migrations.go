package database

import (
	"database/sql"
	"fmt"

	"product-catalog/migrations"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func setupGoose() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// RunMigrations executes all pending embedded migrations
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if err := setupGoose(); err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...")

	if err := goose.Up(db, "."); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

// Migrate runs a goose command (up, down, status, reset, version, redo,
// up-to, down-to) against the embedded migrations
func Migrate(db *sql.DB, command string, logger *zap.Logger, args ...string) error {
	if err := setupGoose(); err != nil {
		return err
	}

	logger.Info("Running migration command", zap.String("command", command), zap.Strings("args", args))

	if err := goose.Run(command, db, ".", args...); err != nil {
		return fmt.Errorf("failed to run migration command %q: %w", command, err)
	}
	return nil
}
