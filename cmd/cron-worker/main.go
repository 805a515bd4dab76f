package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/memalerts/memalerts-backend/internal/cron"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/db"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/metrics"
	"github.com/memalerts/memalerts-backend/pkg/migrate"
	"github.com/memalerts/memalerts-backend/pkg/outbox"
	"github.com/memalerts/memalerts-backend/pkg/redis"
)

const lockKeyFormat = "ma:cron-worker:lock:%s"

const chatOutboxRetentionDays = 7

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	rewardMetrics := metrics.NewRewardMetrics(prometheus.DefaultRegisterer)

	// Cross-instance exclusivity: one advisory lock for the whole cycle,
	// plus a per-job lock for the sweeps that must never run twice.
	cycleLock, err := buildCycleLock(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	grantLock, err := cron.NewAdvisoryLock(gormDB, cron.AdvisoryKeyPendingGrantSweep)
	if err != nil {
		logg.Error(context.Background(), "failed to create grant monitor lock", err)
		os.Exit(1)
	}
	rollupLock, err := cron.NewAdvisoryLock(gormDB, cron.AdvisoryKeyRewardRollup)
	if err != nil {
		logg.Error(context.Background(), "failed to create rollup lock", err)
		os.Exit(1)
	}

	grantMonitor, err := cron.NewPendingGrantMonitorJob(cron.PendingGrantMonitorJobParams{
		Logger:   logg,
		Grants:   rewards.NewGrantRepository(gormDB),
		Metrics:  rewardMetrics,
		StaleAge: cfg.Cron.StaleAfter(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending grant monitor", err)
		os.Exit(1)
	}

	rewardRollup, err := cron.NewRewardRollupJob(cron.RewardRollupJobParams{
		Logger:  logg,
		Rollups: rewards.NewRollupRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reward rollup job", err)
		os.Exit(1)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(gormDB),
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	chatOutboxCleanup, err := cron.NewChatOutboxCleanupJob(cron.ChatOutboxCleanupJobParams{
		Logger:    logg,
		DB:        dbClient,
		Retention: chatOutboxRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chat outbox cleanup job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		cron.WithLock(grantMonitor, grantLock),
		cron.WithLock(rewardRollup, rollupLock),
		outboxRetention,
		chatOutboxCleanup,
	)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     cycleLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildCycleLock prefers the redis lock when redis is configured, and
// falls back to a Postgres advisory lock otherwise.
func buildCycleLock(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (cron.Lock, error) {
	if !cfg.Redis.Configured() {
		return cron.NewAdvisoryLock(dbClient.DB(), cron.AdvisoryKeyScheduledRun)
	}
	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return nil, err
	}
	return cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
