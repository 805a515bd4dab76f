package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// EnqueueResult reports whether a job actually reached the broker.
type EnqueueResult struct {
	Enqueued bool
	JobID    string
}

// Client gates enqueues behind per-queue env flags and broker
// availability. When either is missing, enqueues degrade to no-ops that
// log once per queue, and callers fall back to direct processing.
type Client struct {
	broker     *asynq.Client
	queueCfg   config.QueueConfig
	chatCfg    config.ChatOutboxConfig
	logg       *logger.Logger
	noopLogged sync.Map
}

// NewClient builds a queue client. Returns a degraded (never-enqueue)
// client rather than an error when Redis is not configured.
func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig, chatCfg config.ChatOutboxConfig, logg *logger.Logger) (*Client, error) {
	c := &Client{queueCfg: queueCfg, chatCfg: chatCfg, logg: logg}
	if !redisCfg.Configured() {
		return c, nil
	}
	opt, err := redisConnOpt(redisCfg)
	if err != nil {
		return nil, err
	}
	c.broker = asynq.NewClient(opt)
	return c, nil
}

// RedisConnOpt derives the asynq connection options from env config.
// The worker binary uses the same derivation for its server side.
func RedisConnOpt(cfg config.RedisConfig) (asynq.RedisConnOpt, error) {
	return redisConnOpt(cfg)
}

func redisConnOpt(cfg config.RedisConfig) (asynq.RedisConnOpt, error) {
	if cfg.URL != "" {
		opt, err := asynq.ParseRedisURI(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url for queue: %w", err)
		}
		return opt, nil
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// Close releases the broker connection.
func (c *Client) Close() error {
	if c == nil || c.broker == nil {
		return nil
	}
	return c.broker.Close()
}

// EnqueueAIModeration schedules AI moderation for a submission.
func (c *Client) EnqueueAIModeration(ctx context.Context, submissionID uuid.UUID) (EnqueueResult, error) {
	if !c.queueCfg.AIEnabled || c.broker == nil {
		c.logDisabledOnce(ctx, QueueAI)
		return EnqueueResult{}, nil
	}
	payload, err := json.Marshal(AIModerationPayload{SubmissionID: submissionID})
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("marshaling moderation payload: %w", err)
	}
	return c.enqueue(ctx, asynq.NewTask(TypeAIModeration, payload),
		asynq.TaskID(AIModerationJobID(submissionID)),
		asynq.Queue(QueueAI),
		asynq.MaxRetry(c.queueCfg.AIAttempts()-1),
	)
}

// EnqueueChatOutbox schedules delivery of a stored chat message. The
// signature satisfies chatoutbox.Enqueuer.
func (c *Client) EnqueueChatOutbox(ctx context.Context, platform enums.Provider, channelID, messageID uuid.UUID) (bool, error) {
	if !c.chatCfg.Enabled || c.broker == nil {
		c.logDisabledOnce(ctx, QueueChatOutbox)
		return false, nil
	}
	payload, err := json.Marshal(ChatOutboxPayload{Platform: platform, ChannelID: channelID, MessageID: messageID})
	if err != nil {
		return false, fmt.Errorf("marshaling chat outbox payload: %w", err)
	}
	res, err := c.enqueue(ctx, asynq.NewTask(TypeChatOutbox, payload),
		asynq.TaskID(ChatOutboxJobID(platform, messageID)),
		asynq.Queue(QueueChatOutbox),
		asynq.MaxRetry(c.chatCfg.Attempts()-1),
	)
	return res.Enqueued, err
}

// EnqueueTranscode schedules one format conversion for a media asset.
func (c *Client) EnqueueTranscode(ctx context.Context, format string, assetID uuid.UUID) (EnqueueResult, error) {
	if !c.queueCfg.TranscodeEnabled || c.broker == nil {
		c.logDisabledOnce(ctx, QueueTranscode)
		return EnqueueResult{}, nil
	}
	payload, err := json.Marshal(TranscodePayload{Format: format, AssetID: assetID})
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("marshaling transcode payload: %w", err)
	}
	return c.enqueue(ctx, asynq.NewTask(TypeTranscode, payload),
		asynq.TaskID(TranscodeJobID(format, assetID)),
		asynq.Queue(QueueTranscode),
		asynq.MaxRetry(c.queueCfg.TranscodeRetries()-1),
	)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (EnqueueResult, error) {
	info, err := c.broker.EnqueueContext(ctx, task, opts...)
	if err != nil {
		// An in-flight job with the same id already covers this work.
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			if c.logg != nil {
				c.logg.Info(c.logg.WithField(ctx, "task_type", task.Type()), "duplicate job id, already enqueued")
			}
			return EnqueueResult{}, nil
		}
		return EnqueueResult{}, fmt.Errorf("enqueuing %s: %w", task.Type(), err)
	}
	return EnqueueResult{Enqueued: true, JobID: info.ID}, nil
}

// logDisabledOnce logs the degraded mode once per queue per process to
// avoid flooding logs on every enqueue attempt.
func (c *Client) logDisabledOnce(ctx context.Context, queueName string) {
	if c.logg == nil {
		return
	}
	if _, logged := c.noopLogged.LoadOrStore(queueName, struct{}{}); logged {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "queue", queueName), "queue disabled or redis absent, enqueues are no-ops")
}
