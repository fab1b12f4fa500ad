// Command api serves the eventcore HTTP API.
//
// @title eventcore API
// @version 1.0
// @description Events, participants and attendances with capacity-safe registration.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"eventcore/config"
	_ "eventcore/docs"
	"eventcore/internal/adapters/cache"
	deliveryhttp "eventcore/internal/delivery/http"
	"eventcore/internal/delivery/http/controllers"
	"eventcore/internal/delivery/http/helpers"
	"eventcore/internal/delivery/http/middleware"
	"eventcore/internal/domain"
	"eventcore/internal/repository/memory"
	"eventcore/internal/repository/postgres"
	"eventcore/internal/services"
)

const cachePurgeInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	repos, tx, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Cache
	var cacheStore domain.CacheStore
	var sqliteCache *cache.Store
	if cfg.CachePath != "" {
		sqliteCache, err = cache.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer sqliteCache.Close()
		cacheStore = sqliteCache
		logger.Info("response cache enabled", "path", cfg.CachePath)
	}
	respCache := helpers.NewResponseCache(cacheStore, logger, cfg.CacheTTL, cfg.StatsCacheTTL)

	// Services
	eventSvc := services.NewEventService(repos, tx, logger, cfg.RegisterMaxAttempts, cfg.ContextTimeout)
	participantSvc := services.NewParticipantService(repos, tx, logger, cfg.RegisterMaxAttempts, cfg.ContextTimeout)
	attendanceSvc := services.NewAttendanceService(repos, tx, logger, cfg.RegisterMaxAttempts, cfg.ContextTimeout)
	reconciler := services.NewReconciler(repos.Events, attendanceSvc, func(ctx context.Context, keys []string) {
		respCache.Invalidate(ctx, keys...)
	}, cfg.ReconcileInterval, logger)

	// HTTP
	mux := deliveryhttp.NewRouter(
		controllers.NewEventController(logger, eventSvc, respCache),
		controllers.NewParticipantController(logger, participantSvc, respCache),
		controllers.NewAttendanceController(logger, attendanceSvc, respCache),
	)
	var handler http.Handler = middleware.CORS(cfg.CORSAllowedOrigins, mux)
	handler = chimiddleware.Recoverer(handler)
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = chimiddleware.RealIP(handler)
	handler = chimiddleware.RequestID(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return reconciler.Run(gctx)
	})
	if sqliteCache != nil {
		g.Go(func() error {
			sqliteCache.RunJanitor(gctx, cachePurgeInterval, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStorage returns the repositories and transaction manager for the
// configured driver, plus a func releasing their resources.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Repositories, domain.TxManager, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		return store.Repositories(), store, func() {}, nil
	default:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return domain.Repositories{}, nil, nil, fmt.Errorf("database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ContextTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return domain.Repositories{}, nil, nil, fmt.Errorf("database ping: %w", err)
		}
		if err := postgres.Migrate(pingCtx, db); err != nil {
			_ = db.Close()
			return domain.Repositories{}, nil, nil, fmt.Errorf("database migrate: %w", err)
		}
		logger.Info("connected to postgres")
		return postgres.Repositories(db), postgres.NewTxManager(db), func() { _ = db.Close() }, nil
	}
}
