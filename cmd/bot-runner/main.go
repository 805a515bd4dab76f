package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/bots"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
	"github.com/memalerts/memalerts-backend/internal/providers/trovo"
	"github.com/memalerts/memalerts-backend/internal/providers/vkvideo"
	"github.com/memalerts/memalerts-backend/internal/queue"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/db"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/metrics"
	"github.com/memalerts/memalerts-backend/pkg/migrate"
	"github.com/memalerts/memalerts-backend/pkg/outbox"
	"github.com/memalerts/memalerts-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot-runner"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "bot-runner"

	logg = logger.New(logger.Options{
		ServiceName: "bot-runner",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Bots.GatewayURL == "" {
		logg.Error(context.Background(), "bot runner requires a gateway url", nil)
		os.Exit(1)
	}
	if !cfg.Bots.TrovoEnabled && !cfg.Bots.VKVideoEnabled {
		logg.Error(context.Background(), "no chat bot enabled, nothing to run", nil)
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

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	queueClient, err := queue.NewClient(cfg.Redis, cfg.Queue, cfg.ChatOutbox, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue client", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing queue client", err)
		}
	}()

	gormDB := dbClient.DB()
	rewardService, err := rewards.NewService(
		rewards.NewEventRepository(gormDB),
		rewards.NewGrantRepository(gormDB),
		rewards.NewWalletRepository(gormDB),
		outbox.NewService(outbox.NewRepository(gormDB), logg),
		metrics.NewRewardMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reward service", err)
		os.Exit(1)
	}

	links := accounts.NewLinkRepository(gormDB)
	settings := channels.NewSettingsRepository(gormDB)
	chatProducer := chatoutbox.NewProducer(
		chatoutbox.NewMessageRepository(gormDB),
		chatoutbox.NewDeduper(redisClient, cfg.ChatOutbox.Window()),
		queueClient,
		logg,
	)

	var runners []*bots.Runner

	if cfg.Bots.TrovoEnabled {
		processor, err := trovo.NewProcessor(dbClient, settings, links, rewardService, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create trovo processor", err)
			os.Exit(1)
		}
		runner, err := newRunner(cfg, logg, enums.ProviderTrovo, processor.ProcessChatMessage, chatProducer)
		if err != nil {
			logg.Error(context.Background(), "failed to create trovo runner", err)
			os.Exit(1)
		}
		runners = append(runners, runner)
	}

	if cfg.Bots.VKVideoEnabled {
		processor, err := vkvideo.NewProcessor(dbClient, settings, links, rewardService, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create vkvideo processor", err)
			os.Exit(1)
		}
		runner, err := newRunner(cfg, logg, enums.ProviderVKVideo, processor.ProcessPush, chatProducer)
		if err != nil {
			logg.Error(context.Background(), "failed to create vkvideo runner", err)
			os.Exit(1)
		}
		runners = append(runners, runner)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"runners":     len(runners),
	})
	logg.Info(ctx, "starting bot runner")

	var wg sync.WaitGroup
	for _, runner := range runners {
		wg.Add(1)
		go func(r *bots.Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "bot runner stopped unexpectedly", err)
			}
		}(runner)
	}
	wg.Wait()

	logg.Info(ctx, "bot runner shutting down gracefully")
}

func newRunner(cfg *config.Config, logg *logger.Logger, platform enums.Provider, process bots.ProcessFunc, producer *chatoutbox.Producer) (*bots.Runner, error) {
	source, err := bots.NewGatewaySource(cfg.Bots.GatewayURL, platform)
	if err != nil {
		return nil, err
	}
	return bots.NewRunner(bots.RunnerParams{
		Source:  source,
		Handler: bots.NewRewardChatHandler(platform, process, producer),
		Logger:  logg,
		Bots:    cfg.Bots,
	})
}
