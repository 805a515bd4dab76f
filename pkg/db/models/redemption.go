package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// Redemption is the legacy audit row written alongside Twitch channel-points
// redemptions. Inserts are best-effort; failures are logged and swallowed
// because the external_reward_events ledger is the source of truth.
type Redemption struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChannelID         uuid.UUID      `gorm:"column:channel_id;type:uuid;not null;index"`
	UserID            *uuid.UUID     `gorm:"column:user_id;type:uuid"`
	Provider          enums.Provider `gorm:"column:provider;type:provider_enum;not null"`
	ProviderAccountID string         `gorm:"column:provider_account_id;not null"`
	RewardID          string         `gorm:"column:reward_id;not null"`
	Cost              int64          `gorm:"column:cost;not null"`
	RedeemedAt        *time.Time     `gorm:"column:redeemed_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Redemption) TableName() string { return "redemptions" }
