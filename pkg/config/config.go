package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Bots         BotsConfig
	Queue        QueueConfig
	ChatOutbox   ChatOutboxConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	Webhooks     WebhooksConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEMALERTS_APP_ENV" required:"true"`
	Port         string `envconfig:"MEMALERTS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MEMALERTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEMALERTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEMALERTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEMALERTS_DB_DSN"`
	Driver string `envconfig:"MEMALERTS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MEMALERTS_DB_HOST"`
	Port     int    `envconfig:"MEMALERTS_DB_PORT" default:"5432"`
	User     string `envconfig:"MEMALERTS_DB_USER"`
	Password string `envconfig:"MEMALERTS_DB_PASSWORD"`
	Name     string `envconfig:"MEMALERTS_DB_NAME"`
	SSLMode  string `envconfig:"MEMALERTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEMALERTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEMALERTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEMALERTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEMALERTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig tolerates an empty URL: running without Redis is a supported
// configuration and degrades queue-backed features to direct processing.
type RedisConfig struct {
	URL          string        `envconfig:"MEMALERTS_REDIS_URL"`
	Address      string        `envconfig:"MEMALERTS_REDIS_ADDR"`
	Password     string        `envconfig:"MEMALERTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEMALERTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEMALERTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEMALERTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEMALERTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEMALERTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEMALERTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was provided at all.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEMALERTS_AUTO_MIGRATE" default:"false"`
}

// BotsConfig gates the per-provider chat-bot runners. Kick has no runner:
// its reward events arrive over the webhook ingress.
type BotsConfig struct {
	GatewayURL      string        `envconfig:"MEMALERTS_BOT_GATEWAY_URL"`
	TrovoEnabled    bool          `envconfig:"MEMALERTS_TROVO_CHAT_BOT_ENABLED" default:"false"`
	VKVideoEnabled  bool          `envconfig:"MEMALERTS_VKVIDEO_CHAT_BOT_ENABLED" default:"false"`
	PollInterval    time.Duration `envconfig:"MEMALERTS_BOT_POLL_INTERVAL" default:"3s"`
	ChannelParallel int           `envconfig:"MEMALERTS_BOT_CHANNEL_PARALLELISM" default:"4"`
}

// PollEvery returns the poll cadence clamped to a safe range.
func (b BotsConfig) PollEvery() time.Duration {
	return clampDuration(b.PollInterval, time.Second, time.Minute, 3*time.Second)
}

// Parallelism returns the per-cycle channel fan-out clamped to a safe range.
func (b BotsConfig) Parallelism() int {
	return clampInt(b.ChannelParallel, 1, 32, 4)
}

// QueueConfig gates the asynq-backed job queues. Each queue requires both its
// flag and a reachable Redis; otherwise enqueues degrade to logged no-ops.
type QueueConfig struct {
	AIEnabled           bool `envconfig:"MEMALERTS_AI_QUEUE_ENABLED" default:"false"`
	AIMaxAttempts       int  `envconfig:"MEMALERTS_AI_MAX_ATTEMPTS" default:"5"`
	TranscodeEnabled    bool `envconfig:"MEMALERTS_TRANSCODE_QUEUE_ENABLED" default:"false"`
	TranscodeAttempts   int  `envconfig:"MEMALERTS_TRANSCODE_MAX_ATTEMPTS" default:"3"`
	WorkerConcurrency   int  `envconfig:"MEMALERTS_QUEUE_WORKER_CONCURRENCY" default:"10"`
	ShutdownGracePeriod int  `envconfig:"MEMALERTS_QUEUE_SHUTDOWN_GRACE_SECONDS" default:"20"`
}

// AIAttempts returns the moderation retry budget clamped to a safe range.
func (q QueueConfig) AIAttempts() int {
	return clampInt(q.AIMaxAttempts, 1, 10, 5)
}

// TranscodeRetries returns the transcode retry budget clamped to a safe range.
func (q QueueConfig) TranscodeRetries() int {
	return clampInt(q.TranscodeAttempts, 1, 10, 3)
}

// Concurrency returns the worker concurrency clamped to a safe range.
func (q QueueConfig) Concurrency() int {
	return clampInt(q.WorkerConcurrency, 1, 64, 10)
}

type ChatOutboxConfig struct {
	Enabled     bool          `envconfig:"MEMALERTS_CHAT_OUTBOX_QUEUE_ENABLED" default:"false"`
	RelayURL    string        `envconfig:"MEMALERTS_CHAT_RELAY_URL"`
	MaxAttempts int           `envconfig:"MEMALERTS_CHAT_OUTBOX_MAX_ATTEMPTS" default:"5"`
	DedupWindow time.Duration `envconfig:"MEMALERTS_CHAT_OUTBOX_DEDUP_WINDOW" default:"30s"`
	LockTTL     time.Duration `envconfig:"MEMALERTS_CHAT_OUTBOX_LOCK_TTL" default:"15s"`
}

// Attempts returns the chat outbox retry budget clamped to a safe range.
func (c ChatOutboxConfig) Attempts() int {
	return clampInt(c.MaxAttempts, 1, 10, 5)
}

// Window returns the dedup window clamped to a safe range.
func (c ChatOutboxConfig) Window() time.Duration {
	return clampDuration(c.DedupWindow, time.Second, 10*time.Minute, 30*time.Second)
}

// TTL returns the channel lock TTL clamped to a safe range.
func (c ChatOutboxConfig) TTL() time.Duration {
	return clampDuration(c.LockTTL, time.Second, 5*time.Minute, 15*time.Second)
}

type CronConfig struct {
	Interval               time.Duration `envconfig:"MEMALERTS_CRON_INTERVAL" default:"1h"`
	PendingGrantStaleAfter time.Duration `envconfig:"MEMALERTS_PENDING_GRANT_STALE_AFTER" default:"720h"`
	OutboxRetentionDays    int           `envconfig:"MEMALERTS_OUTBOX_RETENTION_DAYS" default:"30"`
}

// StaleAfter returns the unclaimed-grant alert threshold clamped to a safe range.
func (c CronConfig) StaleAfter() time.Duration {
	return clampDuration(c.PendingGrantStaleAfter, time.Hour, 24*365*time.Hour, 720*time.Hour)
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MEMALERTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MEMALERTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MEMALERTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// WebhooksConfig carries the per-provider webhook secrets. An empty
// secret leaves that provider's ingress route unregistered.
type WebhooksConfig struct {
	TwitchEventSubSecret string        `envconfig:"MEMALERTS_TWITCH_EVENTSUB_SECRET"`
	KickWebhookSecret    string        `envconfig:"MEMALERTS_KICK_WEBHOOK_SECRET"`
	IdempotencyTTL       time.Duration `envconfig:"MEMALERTS_WEBHOOK_IDEMPOTENCY_TTL" default:"10m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MEMALERTS_GCP_PROJECT_ID"`
}

// PubSubConfig names the topics the realtime bridge publishes wallet and
// reward events to. Subscriptions are owned by the downstream socket layer.
type PubSubConfig struct {
	WalletTopic        string `envconfig:"MEMALERTS_PUBSUB_WALLET_TOPIC" default:"ma-wallet-events"`
	RewardTopic        string `envconfig:"MEMALERTS_PUBSUB_REWARD_TOPIC" default:"ma-reward-events"`
	WalletSubscription string `envconfig:"MEMALERTS_PUBSUB_WALLET_SUBSCRIPTION"`
	RewardSubscription string `envconfig:"MEMALERTS_PUBSUB_REWARD_SUBSCRIPTION"`
}

func clampInt(value, min, max, fallback int) int {
	if value <= 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampDuration(value, min, max, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
