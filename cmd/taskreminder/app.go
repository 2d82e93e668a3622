package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"task-reminder/internal/config"
	"task-reminder/internal/repository"
	"task-reminder/internal/service"
)

// app holds what every command needs: settings, a logger and a loaded store.
type app struct {
	cfg   config.Config
	log   *slog.Logger
	loc   *time.Location
	store *service.TaskService
	close func() error
}

func openApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := cfg.Log.NewLogger(logOut)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	gw, closeStorage, err := openGateway(cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	store := service.NewTaskService(gw, log, loc)
	if err := store.Load(ctx); err != nil {
		_ = closeStorage()
		return nil, fmt.Errorf("load tasks from %s: %w", cfg.Storage.Path, err)
	}

	return &app{cfg: cfg, log: log, loc: loc, store: store, close: closeStorage}, nil
}

// openGateway selects the storage backend and wraps it with retries.
func openGateway(cfg config.StorageConfig, log *slog.Logger) (repository.Gateway, func() error, error) {
	var next repository.Gateway
	closeStorage := func() error { return nil }

	switch cfg.Driver {
	case "sqlite":
		db, err := repository.NewDB(cfg.Path, log)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err == nil {
			closeStorage = sqlDB.Close
		}
		next = repository.NewSQLiteGateway(db)
	default:
		next = repository.NewJSONFileGateway(cfg.Path)
	}

	log.Info("storage opened", "driver", cfg.Driver, "path", cfg.Path)
	return repository.RetryingGateway{
		Next:     next,
		Attempts: 3,
		Delay:    200 * time.Millisecond,
		Timeout:  10 * time.Second,
	}, closeStorage, nil
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}
