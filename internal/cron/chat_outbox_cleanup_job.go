package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

const chatOutboxRetentionDays = 7

type ChatOutboxCleanupJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Retention int
}

// NewChatOutboxCleanupJob builds the retention sweep for delivered and
// dead chat messages. Pending and in-flight rows are never touched.
func NewChatOutboxCleanupJob(params ChatOutboxCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = chatOutboxRetentionDays
	}
	return &chatOutboxCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		retention: retention,
		now:       time.Now,
	}, nil
}

type chatOutboxCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	retention int
	now       func() time.Time
}

func (j *chatOutboxCleanupJob) Name() string { return "chat-outbox-cleanup" }

func (j *chatOutboxCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Exec(
			"DELETE FROM chat_outbox_messages WHERE status IN (?, ?) AND created_at < ?",
			enums.ChatOutboxSent, enums.ChatOutboxFailed, cutoff,
		)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat outbox cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "chat outbox cleanup complete")
	return nil
}
