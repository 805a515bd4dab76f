package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// ChatOutboxMessage is a durable outbound chat message awaiting delivery to a
// provider's chat API. Status transitions move forward only; a message reaches
// the failed terminal state once attempts >= the configured maximum.
type ChatOutboxMessage struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Platform  enums.Provider         `gorm:"column:platform;type:provider_enum;not null;index:ix_chat_outbox_platform_status"`
	ChannelID uuid.UUID              `gorm:"column:channel_id;type:uuid;not null;index"`
	Body      string                 `gorm:"column:body;not null"`
	Status    enums.ChatOutboxStatus `gorm:"column:status;type:chat_outbox_status_enum;not null;default:'pending';index:ix_chat_outbox_platform_status"`
	Attempts  int                    `gorm:"column:attempts;not null;default:0"`
	LastError *string                `gorm:"column:last_error"`
	SentAt    *time.Time             `gorm:"column:sent_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (ChatOutboxMessage) TableName() string { return "chat_outbox_messages" }
