package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func (s *Storage) dialect() string {
	if s.driver == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (s *Storage) setupGoose() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(s.dialect()); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate applies all pending migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	const operation = "storage.Migrate"

	s.logger.Info("Running database migrations...")
	if err := s.setupGoose(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := goose.UpContext(ctx, s.db.DB, migrationsDir); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", operation, err)
	}
	s.logger.Info("Database migrations completed successfully")
	return nil
}

// Rollback reverts the most recent migration.
func (s *Storage) Rollback(ctx context.Context) error {
	const operation = "storage.Rollback"

	s.logger.Info("Rolling back last migration...")
	if err := s.setupGoose(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := goose.DownContext(ctx, s.db.DB, migrationsDir); err != nil {
		return fmt.Errorf("%s: failed to rollback migration: %w", operation, err)
	}
	s.logger.Info("Migration rollback completed")
	return nil
}

func (s *Storage) MigrationStatus(ctx context.Context) error {
	const operation = "storage.MigrationStatus"

	if err := s.setupGoose(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if err := goose.StatusContext(ctx, s.db.DB, migrationsDir); err != nil {
		return fmt.Errorf("%s: failed to check migration status: %w", operation, err)
	}

	version, err := goose.GetDBVersionContext(ctx, s.db.DB)
	if err != nil {
		return fmt.Errorf("%s: failed to read version: %w", operation, err)
	}
	s.logger.Info("Migration status", zap.Int64("version", version))
	return nil
}
