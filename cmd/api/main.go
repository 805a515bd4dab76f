package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/memalerts/memalerts-backend/api/routes"
	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/bots"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
	"github.com/memalerts/memalerts-backend/internal/providers/kick"
	"github.com/memalerts/memalerts-backend/internal/providers/twitch"
	"github.com/memalerts/memalerts-backend/internal/queue"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	kickwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/kick"
	twitchwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/twitch"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	} else {
		logg.Warn(context.Background(), "redis not configured, webhook dedup and queues degraded")
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
	rewardMetrics := metrics.NewRewardMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	rewardService, err := rewards.NewService(
		rewards.NewEventRepository(gormDB),
		rewards.NewGrantRepository(gormDB),
		rewards.NewWalletRepository(gormDB),
		outboxService,
		rewardMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reward service", err)
		os.Exit(1)
	}

	links := accounts.NewLinkRepository(gormDB)
	settings := channels.NewSettingsRepository(gormDB)

	resolver, err := accounts.NewChannelResolver(links)
	if err != nil {
		logg.Error(context.Background(), "failed to create channel resolver", err)
		os.Exit(1)
	}

	accountLinker, err := accounts.NewService(dbClient, links, rewardService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create account link service", err)
		os.Exit(1)
	}

	chatProducer := chatoutbox.NewProducer(
		chatoutbox.NewMessageRepository(gormDB),
		chatoutbox.NewDeduper(redisClient, cfg.ChatOutbox.Window()),
		queueClient,
		logg,
	)

	params := routes.RouterParams{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		ChannelResolver: resolver,
		AccountLinker:   accountLinker,
	}
	if redisClient != nil {
		params.Redis = redisClient
	}

	if secret := cfg.Webhooks.TwitchEventSubSecret; secret != "" {
		verifier, err := twitchwebhook.NewVerifier(secret)
		if err != nil {
			logg.Error(context.Background(), "failed to create twitch verifier", err)
			os.Exit(1)
		}
		params.TwitchVerifier = verifier

		if redisClient != nil {
			guard, err := twitchwebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "twitch-eventsub")
			if err != nil {
				logg.Error(context.Background(), "failed to create twitch idempotency guard", err)
				os.Exit(1)
			}
			params.TwitchGuard = guard
		}

		twitchProcessor, err := twitch.NewProcessor(dbClient, settings, links, rewardService, twitch.NewRedemptionRepository(gormDB), nil, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create twitch processor", err)
			os.Exit(1)
		}
		params.TwitchHandler = bots.NewRewardChatHandler(enums.ProviderTwitch, twitchProcessor.ProcessRedemption, chatProducer).HandleMessage
	}

	if secret := cfg.Webhooks.KickWebhookSecret; secret != "" {
		verifier, err := kickwebhook.NewVerifier(secret)
		if err != nil {
			logg.Error(context.Background(), "failed to create kick verifier", err)
			os.Exit(1)
		}
		params.KickVerifier = verifier

		kickProcessor, err := kick.NewProcessor(dbClient, settings, links, rewardService, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create kick processor", err)
			os.Exit(1)
		}
		params.KickHandler = bots.NewRewardChatHandler(enums.ProviderKick, kickProcessor.ProcessSubscription, chatProducer).HandleMessage
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(params),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
