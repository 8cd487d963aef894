package main

import (
	"context"
	"fmt"

	"github.com/org-chart-api/internal/config"
	"github.com/org-chart-api/internal/database"
	"github.com/org-chart-api/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app - общие зависимости подкоманд
type app struct {
	envFiles []string
	cfg      *config.Config
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "orgchart",
		Short:         "Org chart hierarchy service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env", ".env.local"}, "env files to load before reading the environment")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	cmd.AddCommand(newBootstrapRootCmd(a))
	return cmd
}

// openDB подключается к БД. Для SQLite схема создаётся сразу,
// PostgreSQL ведётся миграциями goose.
func (a *app) openDB(ctx context.Context) (*gorm.DB, func(), error) {
	db, err := database.Open(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}

	if a.cfg.Database.Driver == config.DriverSQLite {
		if err := database.AutoMigrate(db); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return db, closeFn, nil
}
