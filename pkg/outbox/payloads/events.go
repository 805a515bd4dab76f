package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// WalletUpdatedEvent is emitted after a wallet balance changes.
type WalletUpdatedEvent struct {
	UserID    uuid.UUID `json:"userId"`
	ChannelID uuid.UUID `json:"channelId"`
	Balance   int64     `json:"balance"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
}

// RewardRecordedEvent signals a new ledger row for an external reward.
type RewardRecordedEvent struct {
	EventID      uuid.UUID             `json:"eventId"`
	ChannelID    uuid.UUID             `json:"channelId"`
	Provider     enums.Provider        `json:"provider"`
	EventType    enums.RewardEventType `json:"eventType"`
	Currency     enums.RewardCurrency  `json:"currency"`
	Amount       int64                 `json:"amount"`
	CoinsToGrant int64                 `json:"coinsToGrant"`
	EventAt      time.Time             `json:"eventAt"`
}

// RewardIgnoredEvent is emitted when an event is recorded but not credited.
type RewardIgnoredEvent struct {
	EventID   uuid.UUID             `json:"eventId"`
	ChannelID uuid.UUID             `json:"channelId"`
	Provider  enums.Provider        `json:"provider"`
	EventType enums.RewardEventType `json:"eventType"`
	Reason    string                `json:"reason"`
}

// PendingGrantCreatedEvent signals coins escrowed for an unlinked viewer.
type PendingGrantCreatedEvent struct {
	GrantID           uuid.UUID      `json:"grantId"`
	ChannelID         uuid.UUID      `json:"channelId"`
	Provider          enums.Provider `json:"provider"`
	ProviderAccountID string         `json:"providerAccountId"`
	Coins             int64          `json:"coins"`
}

// PendingGrantClaimedEvent reports escrowed coins swept into a wallet.
type PendingGrantClaimedEvent struct {
	GrantID   uuid.UUID      `json:"grantId"`
	ChannelID uuid.UUID      `json:"channelId"`
	Provider  enums.Provider `json:"provider"`
	UserID    uuid.UUID      `json:"userId"`
	Coins     int64          `json:"coins"`
	ClaimedAt time.Time      `json:"claimedAt"`
}
