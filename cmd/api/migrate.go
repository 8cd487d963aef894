package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/org-chart-api/internal/config"
	"github.com/org-chart-api/internal/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	steps := []struct {
		use, short string
		run        func(ctx context.Context, db *sql.DB) error
	}{
		{"up", "Apply all pending migrations", migrations.Up},
		{"down", "Roll back the latest migration", migrations.Down},
		{"status", "Print migration status", migrations.Status},
	}

	for _, step := range steps {
		cmd.AddCommand(&cobra.Command{
			Use:   step.use,
			Short: step.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.cfg.Database.Driver != config.DriverPostgres {
					return fmt.Errorf("migrations apply to %q only, %q schema is created on start",
						config.DriverPostgres, a.cfg.Database.Driver)
				}

				db, closeDB, err := a.openDB(cmd.Context())
				if err != nil {
					return err
				}
				defer closeDB()

				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return step.run(cmd.Context(), sqlDB)
			},
		})
	}

	return cmd
}
