package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// RewardRollup aggregates coins granted per channel/provider/day. Rows are
// produced by the cron rollup job and are idempotent on the composite key.
type RewardRollup struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChannelID    uuid.UUID      `gorm:"column:channel_id;type:uuid;not null;uniqueIndex:ux_reward_rollups_day"`
	Provider     enums.Provider `gorm:"column:provider;type:provider_enum;not null;uniqueIndex:ux_reward_rollups_day"`
	Day          time.Time      `gorm:"column:day;type:date;not null;uniqueIndex:ux_reward_rollups_day"`
	EventCount   int64          `gorm:"column:event_count;not null;default:0"`
	CoinsGranted int64          `gorm:"column:coins_granted;not null;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (RewardRollup) TableName() string { return "reward_rollups" }
