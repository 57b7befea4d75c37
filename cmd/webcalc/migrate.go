package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webcalc/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the lead database schema",
	}
	cmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", (*storage.Storage).Migrate),
		migrateAction("down", "Roll back the last migration", (*storage.Storage).Rollback),
		migrateAction("status", "Print the migration status", (*storage.Storage).MigrationStatus),
	)
	return cmd
}

func migrateAction(use, short string, run func(*storage.Storage, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := storage.New(cmd.Context(), cfg.Database, nil, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := run(store, cmd.Context()); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			log.Info("Migration command finished", zap.String("command", use))
			return nil
		},
	}
}
