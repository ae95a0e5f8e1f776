// Package main provides the entry point for the locking-system server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ideaboard-hq/locking-system/internal/api"
	"github.com/ideaboard-hq/locking-system/internal/clock"
	"github.com/ideaboard-hq/locking-system/internal/config"
	"github.com/ideaboard-hq/locking-system/internal/idea"
	"github.com/ideaboard-hq/locking-system/internal/lock"
	"github.com/ideaboard-hq/locking-system/internal/logging"
	"github.com/ideaboard-hq/locking-system/internal/metrics"
	"github.com/ideaboard-hq/locking-system/internal/middleware"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger("locking-system", cfg.LogLevel)

	ideaStore, lockStore, closeStores, err := buildStores(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to initialize stores")
	}
	defer closeStores()

	clk := clock.Real()
	manager := lock.NewManager(lockStore, ideaStore, clk, logger, lock.WithTTL(cfg.LockTTL))
	sweeper := lock.NewSweeper(lockStore, clk, logger)

	if cfg.SweepInterval > 0 {
		job := lock.NewSweepJob(sweeper, cfg.SweepInterval, logger)
		job.Start()
		defer job.Stop()
	}

	// Setup Gin router
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))
	router.Use(metrics.HTTPMetrics())
	router.Use(middleware.PayloadLimitErrorHandler(logger))
	router.Use(middleware.PayloadLimit(cfg.MaxPayloadSize, logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	metrics.RegisterMetricsEndpoint(router)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	handler := api.NewHandler(ideaStore, manager, sweeper, logger)
	handler.RegisterRoutes(apiV1)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("storeBackend", cfg.StoreBackend).
			Dur("lockTTL", cfg.LockTTL).
			Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited properly")
}

// buildStores creates the idea registry and lock store for the
// configured backend. The redis backend keeps the idea registry in
// memory: redis only holds the lock records.
func buildStores(cfg *config.Config, logger zerolog.Logger) (idea.Store, lock.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return idea.NewPostgresStore(pool), lock.NewPostgresStore(pool, cfg.LockTTL), pool.Close, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		lockStore := lock.NewRedisStore(client, cfg.LockTTL)
		if err := lockStore.Ping(context.Background()); err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis client")
			}
		}
		return idea.NewInMemoryStore(), lockStore, closeFn, nil

	default:
		return idea.NewInMemoryStore(), lock.NewMemoryStore(cfg.LockTTL), func() {}, nil
	}
}
