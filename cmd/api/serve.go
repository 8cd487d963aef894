package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/org-chart-api/internal/config"
	"github.com/org-chart-api/internal/handler"
	"github.com/org-chart-api/internal/migrations"
	"github.com/org-chart-api/internal/repository"
	"github.com/org-chart-api/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before start")
	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg := a.cfg
	logger := a.logger

	db, closeDB, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	// Запуск миграций
	if migrate && cfg.Database.Driver == config.DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := migrations.Up(ctx, sqlDB); err != nil {
			return err
		}
	}

	store := repository.NewStore(db,
		repository.WithMaxDepth(cfg.Hierarchy.MaxDepth),
		repository.WithTxRetries(cfg.Database.TxRetries),
	)

	// Инициализация сервисов
	empService := service.NewEmployeeService(store, logger)
	deptService := service.NewDepartmentService(store.Departments(), cfg.Hierarchy.CapacityBuffer, logger)
	hierarchyService := service.NewHierarchyService(store, logger)
	queryService := service.NewQueryService(store)

	// Настройка роутера
	router := handler.NewRouter(
		handler.NewHierarchyHandler(hierarchyService, queryService, logger),
		handler.NewEmployeeHandler(empService, queryService, logger),
		handler.NewDepartmentHandler(deptService, queryService, logger),
		handler.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPath:    cfg.Metrics.Path,
		},
		logger.Named("http"),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		select {
		case <-quit:
		case <-ctx.Done():
		}
		logger.Info("server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("could not gracefully shutdown the server", zap.Error(err))
		}
		close(done)
	}()

	logger.Info("server is starting",
		zap.String("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("could not listen on port", zap.String("port", cfg.Server.Port), zap.Error(err))
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
