package main

import (
	"context"
	"fmt"

	"github.com/Doe880/telegram-feedback-bot1/internal/config"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/postgres"
	"github.com/Doe880/telegram-feedback-bot1/pkg/adapters/sqlite"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the record schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		msg, err := migrate(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		logger.Info("Migration finished", "driver", cfg.Storage.Driver)
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func migrate(ctx context.Context, cfg config.StorageConfig) (string, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(cfg.DSN)
		if err != nil {
			return "", err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			return "", err
		}
		return "postgres schema is up to date", nil
	case "sqlite":
		// Open applies pending migrations.
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return "", err
		}
		defer db.Close()
		version, err := sqlite.SchemaVersion(ctx, db)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("sqlite schema at version %d (%s)", version, cfg.DSN), nil
	default:
		return "", fmt.Errorf("storage driver %q has no schema", cfg.Driver)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
