package main

import (
	"context"
	"database/sql"
	"fmt"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/infra/config"
	idb "project_cycle_service/internal/infra/database"
	applogger "project_cycle_service/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

// runtime holds what every command needs: config, logger and the database.
type runtime struct {
	cfg    *config.AppConfig
	logger *logrus.Logger
	db     *sql.DB
	repo   *idb.PostgresProjectRepository
}

// openRuntime loads configuration and connects to the database. Pending
// migrations are applied when migrate is set and MIGRATE_ON_START allows it.
func openRuntime(ctx context.Context, migrate bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}

	logger := applogger.New(cfg)
	logger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Debug("Configuration loaded")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if migrate && cfg.MigrateOnStart {
		if err := idb.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		db:     db,
		repo:   idb.NewPostgresProjectRepository(db),
	}, nil
}

func (r *runtime) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.WithError(err).Warn("Failed to close database connection")
	}
}

func (r *runtime) cycleManager(notifier app.CycleNotifier) *app.CycleManager {
	return app.NewCycleManager(r.repo, r.logger, app.CycleManagerOptions{
		IsolateFailures: r.cfg.IsolateFailures,
		Notifier:        notifier,
	})
}
