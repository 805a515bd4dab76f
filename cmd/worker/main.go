package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
	"github.com/memalerts/memalerts-backend/internal/queue"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/db"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/migrate"
	"github.com/memalerts/memalerts-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Redis.Configured() {
		logg.Error(context.Background(), "worker requires redis", nil)
		os.Exit(1)
	}

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	connOpt, err := queue.RedisConnOpt(cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to derive queue connection", err)
		os.Exit(1)
	}

	var sender chatoutbox.Sender
	if cfg.ChatOutbox.RelayURL != "" {
		relay, err := chatoutbox.NewRelaySender(cfg.ChatOutbox.RelayURL)
		if err != nil {
			logg.Error(context.Background(), "failed to build chat relay sender", err)
			os.Exit(1)
		}
		sender = relay
	}

	var outboxWorker *chatoutbox.Worker
	if sender != nil {
		outboxWorker = chatoutbox.NewWorker(
			chatoutbox.NewMessageRepository(dbClient.DB()),
			chatoutbox.NewChannelLocker(redisClient, cfg.ChatOutbox.TTL()),
			sender,
			cfg.ChatOutbox.Attempts(),
			logg,
		)
	} else {
		logg.Warn(context.Background(), "chat relay url not set, chat outbox handler disabled")
	}

	dlqHandler := queue.NewDeadLetterHandler(queue.NewDLQRepository(dbClient.DB()), logg)

	srv := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: cfg.Queue.Concurrency(),
		Queues: map[string]int{
			queue.QueueAI:         3,
			queue.QueueChatOutbox: 5,
			queue.QueueTranscode:  2,
		},
		RetryDelayFunc:  queue.RetryDelay,
		ErrorHandler:    dlqHandler,
		ShutdownTimeout: time.Duration(cfg.Queue.ShutdownGracePeriod) * time.Second,
	})

	mux := asynq.NewServeMux()
	queue.NewHandlers(outboxWorker, nil, nil).Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"concurrency": cfg.Queue.Concurrency(),
	})
	logg.Info(ctx, "starting queue worker")

	if err := srv.Start(mux); err != nil {
		logg.Error(ctx, "queue worker failed to start", err)
		os.Exit(1)
	}

	<-ctx.Done()
	srv.Shutdown()
	logg.Info(ctx, "queue worker shutting down gracefully")
}
