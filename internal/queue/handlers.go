package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/memalerts/memalerts-backend/internal/chatoutbox"
)

// Moderator runs AI moderation for a submission. External collaborator.
type Moderator interface {
	Moderate(ctx context.Context, submissionID uuid.UUID) error
}

// Transcoder converts a media asset into one output format.
type Transcoder interface {
	Transcode(ctx context.Context, format string, assetID uuid.UUID) error
}

// Handlers bundles the worker-side task handlers for the mux.
type Handlers struct {
	outbox    *chatoutbox.Worker
	moderator Moderator
	transcode Transcoder
}

func NewHandlers(outbox *chatoutbox.Worker, moderator Moderator, transcode Transcoder) *Handlers {
	return &Handlers{outbox: outbox, moderator: moderator, transcode: transcode}
}

// Register attaches the handlers to an asynq mux. Handlers whose
// collaborator is not wired stay unregistered; the matching queue flag
// must stay off in that deployment.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	if h.outbox != nil {
		mux.HandleFunc(TypeChatOutbox, h.HandleChatOutbox)
	}
	if h.moderator != nil {
		mux.HandleFunc(TypeAIModeration, h.HandleAIModeration)
	}
	if h.transcode != nil {
		mux.HandleFunc(TypeTranscode, h.HandleTranscode)
	}
}

func (h *Handlers) HandleChatOutbox(ctx context.Context, task *asynq.Task) error {
	var payload ChatOutboxPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling chat outbox payload: %w", asynq.SkipRetry)
	}
	return h.outbox.ProcessMessage(ctx, payload.MessageID)
}

func (h *Handlers) HandleAIModeration(ctx context.Context, task *asynq.Task) error {
	var payload AIModerationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling moderation payload: %w", asynq.SkipRetry)
	}
	return h.moderator.Moderate(ctx, payload.SubmissionID)
}

func (h *Handlers) HandleTranscode(ctx context.Context, task *asynq.Task) error {
	var payload TranscodePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling transcode payload: %w", asynq.SkipRetry)
	}
	return h.transcode.Transcode(ctx, payload.Format, payload.AssetID)
}
