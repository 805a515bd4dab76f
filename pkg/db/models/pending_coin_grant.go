package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// PendingCoinGrant escrows a coin credit against a provider account id whose
// memalerts identity is not yet known. Claiming stamps claimed_at via a
// conditional update so concurrent link flows can only succeed once.
type PendingCoinGrant struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChannelID         uuid.UUID      `gorm:"column:channel_id;type:uuid;not null;index"`
	ExternalEventID   uuid.UUID      `gorm:"column:external_event_id;type:uuid;not null;unique"`
	Provider          enums.Provider `gorm:"column:provider;type:provider_enum;not null;index:ix_pending_coin_grants_account"`
	ProviderAccountID string         `gorm:"column:provider_account_id;not null;index:ix_pending_coin_grants_account"`
	CoinsToGrant      int64          `gorm:"column:coins_to_grant;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	ClaimedAt         *time.Time     `gorm:"column:claimed_at"`
	ClaimedByUserID   *uuid.UUID     `gorm:"column:claimed_by_user_id;type:uuid"`
}

func (PendingCoinGrant) TableName() string { return "pending_coin_grants" }

// Claimed reports whether this grant has already been swept into a wallet.
func (g PendingCoinGrant) Claimed() bool { return g.ClaimedAt != nil }
