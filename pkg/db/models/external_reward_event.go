package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// ExternalRewardEvent is the append-only idempotency ledger row for every
// externally observed reward-eligible event. The (provider, provider_event_id)
// pair is written at most once; re-deliveries must upsert-or-skip.
type ExternalRewardEvent struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider          enums.Provider          `gorm:"column:provider;type:provider_enum;not null;uniqueIndex:ux_external_reward_events_provider_event"`
	ProviderEventID   string                  `gorm:"column:provider_event_id;not null;uniqueIndex:ux_external_reward_events_provider_event"`
	ChannelID         uuid.UUID               `gorm:"column:channel_id;type:uuid;not null;index"`
	ProviderAccountID string                  `gorm:"column:provider_account_id;not null;index"`
	EventType         enums.RewardEventType   `gorm:"column:event_type;type:reward_event_type_enum;not null"`
	Currency          enums.RewardCurrency    `gorm:"column:currency;type:reward_currency_enum;not null"`
	Amount            int64                   `gorm:"column:amount;not null"`
	CoinsToGrant      int64                   `gorm:"column:coins_to_grant;not null"`
	Status            enums.RewardEventStatus `gorm:"column:status;type:reward_event_status_enum;not null;default:'eligible'"`
	Reason            *string                 `gorm:"column:reason"`
	EventAt           *time.Time              `gorm:"column:event_at"`
	RawPayload        json.RawMessage         `gorm:"column:raw_payload_json;type:jsonb"`
	LinkedUserID      *uuid.UUID              `gorm:"column:linked_user_id;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (ExternalRewardEvent) TableName() string { return "external_reward_events" }
