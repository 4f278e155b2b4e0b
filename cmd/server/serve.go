package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workmatch/internal/events"
	"workmatch/internal/httpserver"
	"workmatch/internal/ratelimit"
	"workmatch/internal/security"
	"workmatch/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Security components
	tokens := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)
	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey), cfg.LegacyEncryptKeys)
	if err != nil {
		return fmt.Errorf("initialize encryptor: %w", err)
	}

	publisher := newPublisher()
	defer publisher.Close()

	limiter, closeLimiter, err := newLimiter(ctx)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := httpserver.NewRouter(httpserver.Deps{
		Config:    cfg,
		Repos:     st.Repositories,
		Tokens:    tokens,
		Cipher:    encryptor,
		Publisher: publisher,
		Limiter:   limiter,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.HTTPAddr()),
			zap.String("env", cfg.Env),
			zap.String("database", st.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func newPublisher() events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, domain events are discarded")
		return events.Nop{}
	}
	logger.Info("publishing domain events",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// newLimiter prefers the shared Redis limiter and falls back to an
// in-process one when Redis is not configured.
func newLimiter(ctx context.Context) (ratelimit.Limiter, func(), error) {
	if cfg.RedisAddr == "" {
		local := ratelimit.NewLocalLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute)
		go local.Run(ctx, time.Minute, 5*time.Minute)
		logger.Info("using in-process rate limiter", zap.Int("per_minute", cfg.RateLimitPerMinute))
		return local, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis rate limiter", zap.String("addr", cfg.RedisAddr), zap.Int("per_minute", cfg.RateLimitPerMinute))
	limiter := ratelimit.NewRedisLimiter(rdb, "workmatch:ratelimit", cfg.RateLimitPerMinute, time.Minute)
	return limiter, func() { _ = rdb.Close() }, nil
}
