package chatoutbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

const drainBatchSize = 50

// Sender delivers a chat message to the provider's chat API.
type Sender interface {
	Send(ctx context.Context, platform enums.Provider, channelID uuid.UUID, body string) error
}

// Worker drains pending outbox messages for a channel under the
// per-channel lock, delivering at-least-once and recording attempts.
type Worker struct {
	repo        MessageRepository
	locker      *ChannelLocker
	sender      Sender
	maxAttempts int
	logg        *logger.Logger
	now         func() time.Time
}

// NewWorker wires a delivery worker.
func NewWorker(repo MessageRepository, locker *ChannelLocker, sender Sender, maxAttempts int, logg *logger.Logger) *Worker {
	return &Worker{
		repo:        repo,
		locker:      locker,
		sender:      sender,
		maxAttempts: maxAttempts,
		logg:        logg,
		now:         time.Now,
	}
}

// DrainChannel sends the channel's pending messages oldest-first.
// Returns the number of messages delivered. When the channel lock is
// held elsewhere the call is a no-op.
func (w *Worker) DrainChannel(ctx context.Context, platform enums.Provider, channelID uuid.UUID) (int, error) {
	token, err := w.locker.Acquire(ctx, string(platform), channelID.String())
	if err != nil {
		return 0, err
	}
	if token == "" {
		return 0, nil
	}
	defer func() {
		if err := w.locker.Release(ctx, string(platform), channelID.String(), token); err != nil {
			w.logWarn(ctx, platform, channelID, "failed to release chat outbox channel lock")
		}
	}()

	msgs, err := w.repo.FetchPending(ctx, platform, channelID, drainBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range msgs {
		outcome, err := w.deliver(ctx, msg.ID)
		if err != nil {
			return sent, err
		}
		if outcome == deliveredOK {
			sent++
		}
	}
	return sent, nil
}

// ProcessMessage delivers one stored message by id, for queue-driven
// consumption. A retryable failure returns an error so the broker can
// apply its backoff; a terminal failure returns nil.
func (w *Worker) ProcessMessage(ctx context.Context, id uuid.UUID) error {
	msg, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.Status == enums.ChatOutboxSent || msg.Status == enums.ChatOutboxFailed {
		return nil
	}

	token, err := w.locker.Acquire(ctx, string(msg.Platform), msg.ChannelID.String())
	if err != nil {
		return err
	}
	if token == "" {
		return errChannelBusy
	}
	defer func() {
		if err := w.locker.Release(ctx, string(msg.Platform), msg.ChannelID.String(), token); err != nil {
			w.logWarn(ctx, msg.Platform, msg.ChannelID, "failed to release chat outbox channel lock")
		}
	}()

	outcome, err := w.deliver(ctx, id)
	if err != nil {
		return err
	}
	if outcome == deliveryRetryable {
		return errDeliveryFailed
	}
	return nil
}

type deliveryOutcome int

const (
	deliveredOK deliveryOutcome = iota
	deliverySkipped
	deliveryRetryable
	deliveryTerminal
)

func (w *Worker) deliver(ctx context.Context, id uuid.UUID) (deliveryOutcome, error) {
	claimed, err := w.repo.MarkProcessing(ctx, id)
	if err != nil {
		return deliverySkipped, err
	}
	if !claimed {
		return deliverySkipped, nil
	}

	msg, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return deliverySkipped, err
	}

	if sendErr := w.sender.Send(ctx, msg.Platform, msg.ChannelID, msg.Body); sendErr != nil {
		terminal, markErr := w.repo.MarkFailedAttempt(ctx, id, sendErr.Error(), w.maxAttempts)
		if markErr != nil {
			return deliverySkipped, markErr
		}
		if terminal {
			w.logError(ctx, msg.Platform, msg.ChannelID, "chat outbox message failed permanently", sendErr)
			return deliveryTerminal, nil
		}
		w.logWarn(ctx, msg.Platform, msg.ChannelID, "chat outbox send failed, will retry")
		return deliveryRetryable, nil
	}

	if err := w.repo.MarkSent(ctx, id, w.now()); err != nil {
		return deliverySkipped, err
	}
	return deliveredOK, nil
}

func (w *Worker) logWarn(ctx context.Context, platform enums.Provider, channelID uuid.UUID, msg string) {
	if w.logg == nil {
		return
	}
	w.logg.Warn(w.logCtx(ctx, platform, channelID), msg)
}

func (w *Worker) logError(ctx context.Context, platform enums.Provider, channelID uuid.UUID, msg string, err error) {
	if w.logg == nil {
		return
	}
	w.logg.Error(w.logCtx(ctx, platform, channelID), msg, err)
}

func (w *Worker) logCtx(ctx context.Context, platform enums.Provider, channelID uuid.UUID) context.Context {
	return w.logg.WithFields(ctx, map[string]any{
		"platform":   string(platform),
		"channel_id": channelID.String(),
	})
}
