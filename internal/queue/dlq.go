package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// DLQRepository appends terminal moderation failures for inspection and
// replay. Rows are never deduplicated: repeated failures of the same
// submission at different times are distinct entries.
type DLQRepository interface {
	Create(ctx context.Context, entry *models.ModerationDLQ) error
}

type dlqRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) DLQRepository {
	return &dlqRepository{db: db}
}

func (r *dlqRepository) Create(ctx context.Context, entry *models.ModerationDLQ) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("creating moderation dlq entry: %w", err)
	}
	return nil
}

// DeadLetterHandler mirrors exhausted AI moderation jobs into the DLQ
// table. Wired as the asynq server's error handler.
type DeadLetterHandler struct {
	dlq  DLQRepository
	logg *logger.Logger
	now  func() time.Time
}

func NewDeadLetterHandler(dlq DLQRepository, logg *logger.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{dlq: dlq, logg: logg, now: time.Now}
}

// HandleError implements asynq.ErrorHandler. Only the final attempt of
// a moderation job produces a DLQ row; earlier attempts retry.
func (h *DeadLetterHandler) HandleError(ctx context.Context, task *asynq.Task, err error) {
	if task.Type() != TypeAIModeration {
		return
	}
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		return
	}

	var payload AIModerationPayload
	if unmarshalErr := json.Unmarshal(task.Payload(), &payload); unmarshalErr != nil {
		if h.logg != nil {
			h.logg.Error(ctx, "dead-lettered moderation job has malformed payload", unmarshalErr)
		}
		return
	}

	jobID, _ := asynq.GetTaskID(ctx)
	msg := err.Error()
	entry := &models.ModerationDLQ{
		SubmissionID: payload.SubmissionID,
		JobID:        jobID,
		ErrorMessage: &msg,
		AttemptsMade: retried + 1,
		FailedAt:     h.now(),
	}
	if createErr := h.dlq.Create(ctx, entry); createErr != nil {
		if h.logg != nil {
			h.logg.Error(ctx, "failed to append moderation dlq entry", createErr)
		}
		return
	}
	if h.logg != nil {
		logCtx := h.logg.WithFields(ctx, map[string]any{
			"submission_id": payload.SubmissionID.String(),
			"job_id":        jobID,
		})
		h.logg.Warn(logCtx, "moderation job dead-lettered after exhausting attempts")
	}
}
