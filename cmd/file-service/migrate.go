package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/file-service/internal/config"
	"github.com/bigkaa/goartstore/file-service/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции PostgreSQL и выйти",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("загрузка конфигурации: %w", err)
			}
			if cfg.DBDriver != config.DriverPostgres {
				return errors.New("миграции применяются только для FS_DB_DRIVER=postgres, схема SQLite создаётся при старте")
			}

			logger := config.SetupLogger(cfg)
			if err := database.Migrate(cfg, logger); err != nil {
				return fmt.Errorf("миграции БД: %w", err)
			}
			logger.Info("Миграции применены", slog.String("db", cfg.DBName))
			return nil
		},
	}
}
