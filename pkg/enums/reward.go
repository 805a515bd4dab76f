package enums

import "fmt"

// RewardEventType maps to the reward_event_type enum in Postgres.
type RewardEventType string

const (
	RewardEventTrovoSpell         RewardEventType = "trovo_spell"
	RewardEventTwitchRedemption   RewardEventType = "twitch_channel_points_redemption"
	RewardEventVKVideoRedemption  RewardEventType = "vkvideo_channel_points_redemption"
	RewardEventKickSubscription   RewardEventType = "kick_subscription"
	RewardEventBoostySubscription RewardEventType = "boosty_subscription"
)

var validRewardEventTypes = []RewardEventType{
	RewardEventTrovoSpell,
	RewardEventTwitchRedemption,
	RewardEventVKVideoRedemption,
	RewardEventKickSubscription,
	RewardEventBoostySubscription,
}

// IsValid reports whether the value matches the canonical reward_event_type enum.
func (t RewardEventType) IsValid() bool {
	for _, candidate := range validRewardEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RewardEventStatus tracks the ledger lifecycle of an external reward event.
type RewardEventStatus string

const (
	RewardStatusEligible RewardEventStatus = "eligible"
	RewardStatusIgnored  RewardEventStatus = "ignored"
	RewardStatusClaimed  RewardEventStatus = "claimed"
)

var validRewardEventStatuses = []RewardEventStatus{
	RewardStatusEligible,
	RewardStatusIgnored,
	RewardStatusClaimed,
}

// IsValid reports whether the value matches the canonical reward_event_status enum.
func (s RewardEventStatus) IsValid() bool {
	for _, candidate := range validRewardEventStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRewardEventStatus converts raw input into a RewardEventStatus.
func ParseRewardEventStatus(raw string) (RewardEventStatus, error) {
	candidate := RewardEventStatus(raw)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid reward event status %q", raw)
	}
	return candidate, nil
}

// RewardCurrency identifies the provider-native unit the reward was paid in.
type RewardCurrency string

const (
	CurrencyTrovoMana           RewardCurrency = "trovo_mana"
	CurrencyTrovoElixir         RewardCurrency = "trovo_elixir"
	CurrencyTwitchChannelPoints RewardCurrency = "twitch_channel_points"
	CurrencyVKVideoPoints       RewardCurrency = "vkvideo_channel_points"
	CurrencyKickSubMonths       RewardCurrency = "kick_sub_months"
)

var validRewardCurrencies = []RewardCurrency{
	CurrencyTrovoMana,
	CurrencyTrovoElixir,
	CurrencyTwitchChannelPoints,
	CurrencyVKVideoPoints,
	CurrencyKickSubMonths,
}

// IsValid reports whether the value matches the canonical reward_currency enum.
func (c RewardCurrency) IsValid() bool {
	for _, candidate := range validRewardCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}
