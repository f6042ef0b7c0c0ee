/**
 * @description
 * Entry point for the WishChain backend.
 *
 * @dependencies
 * - github.com/joho/godotenv: loads .env files during local development.
 * - github.com/jackc/pgx/v5: PostgreSQL connection pool.
 * - github.com/redis/go-redis/v9: grant rate limiting (optional).
 * - github.com/rabbitmq/amqp091-go: event publishing via the outbox (optional).
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wishchain/wishchain-backend/internal/api"
	"github.com/wishchain/wishchain-backend/internal/app"
	"github.com/wishchain/wishchain-backend/internal/config"
	"github.com/wishchain/wishchain-backend/internal/store"
	"github.com/wishchain/wishchain-backend/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 25
	pgConfig.MinConns = 2
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewPostgresRepository(dbpool)
	if err := repository.EnsureSchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	if err := repository.SeedGeography(ctx); err != nil {
		logger.Error("failed to seed geography", "error", err)
		os.Exit(1)
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			logger.Info("rabbitmq connected")
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	} else {
		logger.Warn("rabbitmq url missing; events will be logged only", "env", "RABBITMQ_URL")
	}
	defer publisher.Close()

	sessions := app.NewSessionManager(
		cfg.SessionSigningKey,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		time.Duration(cfg.SessionShortTTLHours)*time.Hour,
	)
	service := app.NewService(repository, sessions, logger, cfg.EventsExchange)

	if redisClient := connectRedis(logger, cfg.RedisURL); redisClient != nil {
		defer redisClient.Close()
		service.SetGrantRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.GrantRateLimitPerMinute,
		)
	}

	var workers sync.WaitGroup
	dispatcher := app.NewOutboxDispatcher(
		repository,
		publisher,
		logger,
		time.Duration(cfg.OutboxPollIntervalMS)*time.Millisecond,
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		dispatcher.Run(ctx)
	}()

	scheduler := app.NewScheduler(service, logger, cfg.WishExpirySchedule, cfg.WishExpiryDays)
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(service, logger)
	router := api.NewRouter(handler, sessions, cfg.AllowedOrigins())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	<-scheduler.Stop().Done()
	cancel()
	workers.Wait()

	logger.Info("server stopped")
}

// connectRedis returns nil when Redis is not configured or unreachable; grant
// rate limiting is then disabled.
func connectRedis(logger *slog.Logger, redisURL string) *redis.Client {
	if redisURL == "" {
		logger.Warn("redis url missing; grant rate limiting disabled", "env", "REDIS_URL")
		return nil
	}
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("redis url parse failed; grant rate limiting disabled", "error", err)
		return nil
	}
	client := redis.NewClient(options)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed; grant rate limiting disabled", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}
