package chatoutbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// MessageRepository persists outbound chat messages and moves them
// through the delivery state machine.
type MessageRepository interface {
	WithTx(tx *gorm.DB) MessageRepository
	Create(ctx context.Context, msg *models.ChatOutboxMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatOutboxMessage, error)
	FetchPending(ctx context.Context, platform enums.Provider, channelID uuid.UUID, limit int) ([]models.ChatOutboxMessage, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailedAttempt(ctx context.Context, id uuid.UUID, attemptErr string, maxAttempts int) (terminal bool, err error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository builds a gorm-backed message repository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &messageRepository{db: tx}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.ChatOutboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Status == "" {
		msg.Status = enums.ChatOutboxPending
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("creating chat outbox message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatOutboxMessage, error) {
	var msg models.ChatOutboxMessage
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("fetching chat outbox message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) FetchPending(ctx context.Context, platform enums.Provider, channelID uuid.UUID, limit int) ([]models.ChatOutboxMessage, error) {
	var msgs []models.ChatOutboxMessage
	err := r.db.WithContext(ctx).
		Where("platform = ? AND channel_id = ? AND status = ?", platform, channelID, enums.ChatOutboxPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending chat outbox messages: %w", err)
	}
	return msgs, nil
}

// MarkProcessing claims a pending message. Returns false when another
// worker already moved it along.
func (r *messageRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ChatOutboxMessage{}).
		Where("id = ? AND status = ?", id, enums.ChatOutboxPending).
		Update("status", enums.ChatOutboxProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("marking chat outbox message processing: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *messageRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.ChatOutboxMessage{}).
		Where("id = ? AND status IN ?", id, []enums.ChatOutboxStatus{enums.ChatOutboxPending, enums.ChatOutboxProcessing}).
		Updates(map[string]any{
			"status":  enums.ChatOutboxSent,
			"sent_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("marking chat outbox message sent: %w", err)
	}
	return nil
}

// MarkFailedAttempt bumps the attempt counter and records the error.
// The message goes terminal (failed) once attempts reach maxAttempts;
// otherwise it returns to pending for the next retry.
func (r *messageRepository) MarkFailedAttempt(ctx context.Context, id uuid.UUID, attemptErr string, maxAttempts int) (bool, error) {
	msg, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	attempts := msg.Attempts + 1
	next := enums.ChatOutboxPending
	terminal := attempts >= maxAttempts
	if terminal {
		next = enums.ChatOutboxFailed
	}
	err = r.db.WithContext(ctx).
		Model(&models.ChatOutboxMessage{}).
		Where("id = ? AND status IN ?", id, []enums.ChatOutboxStatus{enums.ChatOutboxPending, enums.ChatOutboxProcessing}).
		Updates(map[string]any{
			"status":     next,
			"attempts":   attempts,
			"last_error": attemptErr,
		}).Error
	if err != nil {
		return false, fmt.Errorf("marking chat outbox attempt failed: %w", err)
	}
	return terminal, nil
}
