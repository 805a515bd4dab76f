package chatoutbox

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// Enqueuer schedules delivery of a stored message. Implementations may
// no-op when the broker is unavailable; the worker poll loop then picks
// the message up directly.
type Enqueuer interface {
	EnqueueChatOutbox(ctx context.Context, platform enums.Provider, channelID, messageID uuid.UUID) (bool, error)
}

// Producer writes outbound chat messages, dropping short-window
// duplicates before they hit storage.
type Producer struct {
	repo  MessageRepository
	dedup *Deduper
	queue Enqueuer
	logg  *logger.Logger
}

// NewProducer wires a producer. The enqueuer may be nil for direct mode.
func NewProducer(repo MessageRepository, dedup *Deduper, queue Enqueuer, logg *logger.Logger) *Producer {
	return &Producer{repo: repo, dedup: dedup, queue: queue, logg: logg}
}

// Enqueue stores the message and schedules delivery. Returns nil, nil
// when the body is a duplicate within the dedup window.
func (p *Producer) Enqueue(ctx context.Context, platform enums.Provider, channelID uuid.UUID, body string) (*models.ChatOutboxMessage, error) {
	if body == "" {
		return nil, errors.New("chat outbox body is required")
	}
	if !platform.IsValid() {
		return nil, errors.New("chat outbox platform is invalid")
	}
	if channelID == uuid.Nil {
		return nil, errors.New("chat outbox channel id is required")
	}

	fresh, err := p.dedup.FirstSeen(ctx, string(platform), channelID.String(), body)
	if err != nil {
		// Dedup is best-effort; a cache outage must not block sends.
		p.logWarn(ctx, platform, channelID, "chat outbox dedup check failed, proceeding")
		fresh = true
	}
	if !fresh {
		p.logInfo(ctx, platform, channelID, "duplicate chat outbox message skipped")
		return nil, nil
	}

	msg := &models.ChatOutboxMessage{
		Platform:  platform,
		ChannelID: channelID,
		Body:      body,
		Status:    enums.ChatOutboxPending,
	}
	if err := p.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if p.queue != nil {
		enqueued, err := p.queue.EnqueueChatOutbox(ctx, platform, channelID, msg.ID)
		if err != nil {
			p.logWarn(ctx, platform, channelID, "chat outbox enqueue failed, message stays pending")
		} else if !enqueued {
			p.logInfo(ctx, platform, channelID, "chat outbox queue disabled, message stays pending")
		}
	}
	return msg, nil
}

func (p *Producer) logInfo(ctx context.Context, platform enums.Provider, channelID uuid.UUID, msg string) {
	if p.logg == nil {
		return
	}
	p.logg.Info(p.logCtx(ctx, platform, channelID), msg)
}

func (p *Producer) logWarn(ctx context.Context, platform enums.Provider, channelID uuid.UUID, msg string) {
	if p.logg == nil {
		return
	}
	p.logg.Warn(p.logCtx(ctx, platform, channelID), msg)
}

func (p *Producer) logCtx(ctx context.Context, platform enums.Provider, channelID uuid.UUID) context.Context {
	return p.logg.WithFields(ctx, map[string]any{
		"platform":   string(platform),
		"channel_id": channelID.String(),
	})
}
