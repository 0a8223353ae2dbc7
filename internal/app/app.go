// Package app wires configuration, storage and services into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rusl-cricket/attendance/internal/api"
	"github.com/rusl-cricket/attendance/internal/attendance"
	"github.com/rusl-cricket/attendance/internal/auth"
	"github.com/rusl-cricket/attendance/internal/config"
	"github.com/rusl-cricket/attendance/internal/httpmiddleware"
	"github.com/rusl-cricket/attendance/internal/roster"
	"github.com/rusl-cricket/attendance/internal/store"
	"github.com/rusl-cricket/attendance/internal/store/memory"
	"github.com/rusl-cricket/attendance/internal/store/sqlstore"
)

// OpenLedger connects the configured store backend. SQL backends are
// migrated before they are returned.
func OpenLedger(ctx context.Context, cfg config.App, log *slog.Logger) (store.Ledger, error) {
	var driver, dsn string
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	case config.BackendSQLite:
		driver, dsn = store.DriverSQLite, cfg.SQLitePath
	case config.BackendPostgres:
		driver, dsn = store.DriverPostgres, cfg.DatabaseURL
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	db, err := store.NewDB(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	s, err := sqlstore.New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Info("store ready", slog.String("backend", cfg.StoreBackend))
	return s, nil
}

// App is the assembled API server.
type App struct {
	cfg    config.App
	log    *slog.Logger
	ledger store.Ledger
	redis  *store.Redis
	router *gin.Engine
}

// New builds the services and router on top of ledger.
func New(cfg config.App, ledger store.Ledger, log *slog.Logger) *App {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{cfg: cfg, log: log, ledger: ledger}
	health := map[string]api.Pinger{"db": ledger}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		a.redis = store.NewRedis(cfg.RedisAddr)
		limiter = httpmiddleware.NewRedisWindow(a.redis.Client, cfg.RateLimitPerMin)
		health["redis"] = a.redis
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	a.router = api.NewRouter(api.Deps{
		Attendance: attendance.NewService(ledger, log),
		Auth: auth.NewService(ledger, auth.Config{
			Tokens: auth.TokenConfig{
				Issuer:     cfg.JWTIssuer,
				SigningKey: cfg.JWTSigningKey,
				AccessTTL:  cfg.AccessTTL,
				RefreshTTL: cfg.RefreshTTL,
			},
			StudentDomain: cfg.StudentEmailDomain,
		}, log),
		Roster:      roster.NewService(ledger, log),
		Limiter:     limiter,
		Logger:      log,
		RecentLimit: cfg.RecentSessionsLimit,
		Health:      health,
	})
	return a
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.router }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.cfg.HTTPPort,
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	a.log.Info("server exited")
	return nil
}

// Close releases the store and redis connections.
func (a *App) Close() error {
	return errors.Join(a.redis.Close(), a.ledger.Close())
}
