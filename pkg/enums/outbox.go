package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateWallet       OutboxAggregateType = "wallet"
	AggregateRewardEvent  OutboxAggregateType = "reward_event"
	AggregatePendingGrant OutboxAggregateType = "pending_grant"
	AggregateChatOutbox   OutboxAggregateType = "chat_outbox"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWallet,
	AggregateRewardEvent,
	AggregatePendingGrant,
	AggregateChatOutbox,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventWalletUpdated       OutboxEventType = "wallet_updated"
	EventRewardRecorded      OutboxEventType = "reward_recorded"
	EventRewardIgnored       OutboxEventType = "reward_ignored"
	EventPendingGrantCreated OutboxEventType = "pending_grant_created"
	EventPendingGrantClaimed OutboxEventType = "pending_grant_claimed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventWalletUpdated,
	EventRewardRecorded,
	EventRewardIgnored,
	EventPendingGrantCreated,
	EventPendingGrantClaimed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
