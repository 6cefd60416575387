package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales/internal/config"
	"github.com/diewo77/go-sales/internal/db"
	"github.com/diewo77/go-sales/internal/server"
	"github.com/diewo77/go-sales/internal/store"
)

// App owns the database handle and the HTTP server.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	server *http.Server
}

// NewApp migrates the schema when asked to and builds the HTTP server.
func NewApp(cfg *config.Config, log *zap.Logger, dbConn *gorm.DB) (*App, error) {
	if err := migrateSchema(cfg, dbConn); err != nil {
		return nil, err
	}

	st := store.New(dbConn,
		store.WithTxTimeout(cfg.Database.TxTimeout),
		store.WithRetries(cfg.Database.TxRetries),
	)
	handler := server.New(server.NewRouterConfig(st, log))

	return &App{
		cfg: cfg,
		log: log,
		db:  dbConn,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}, nil
}

// Handler returns the root handler, for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("port", a.cfg.Server.Port), zap.Bool("dev", a.cfg.App.Dev))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("server stopped gracefully")
	return nil
}

// migrateSchema applies the embedded SQL migrations when MIGRATIONS is set
// and falls back to AutoMigrate otherwise.
func migrateSchema(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.App.Migrations {
		if err := db.RunSQLMigrations(cfg.Database.URL()); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		return nil
	}
	return db.Migrate(dbConn)
}
