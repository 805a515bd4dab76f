package twitch

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/providers"
	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

// ReasonOffline marks live-gated redemptions that arrived while offline.
const ReasonOffline = "offline"

// RedemptionReward is the reward block inside an EventSub redemption.
type RedemptionReward struct {
	ID    string `json:"id" validate:"required"`
	Title string `json:"title"`
	Cost  int64  `json:"cost" validate:"gte=0"`
}

// RedemptionEvent is the EventSub channel-points redemption payload subset
// the handler reads.
type RedemptionEvent struct {
	ID                string           `json:"id" validate:"required"`
	BroadcasterUserID string           `json:"broadcaster_user_id"`
	UserID            string           `json:"user_id" validate:"required"`
	UserLogin         string           `json:"user_login"`
	Reward            RedemptionReward `json:"reward"`
	RedeemedAt        time.Time        `json:"redeemed_at"`
}

// DecodeRedemptionEvent parses a raw EventSub redemption payload.
func DecodeRedemptionEvent(raw []byte) (RedemptionEvent, error) {
	var event RedemptionEvent
	if err := providers.DecodeAndValidate(raw, &event); err != nil {
		return RedemptionEvent{}, err
	}
	return event, nil
}

// CoinGrant is the resolved coin amount for a redemption.
type CoinGrant struct {
	Coins        int64
	OnlyWhenLive bool
}

// ResolveCoins maps a redemption to a coin amount using the channel's
// settings. The per-reward-id mapping takes priority over the legacy single
// reward id with a point ratio; unmapped rewards are not coin rewards.
func ResolveCoins(event RedemptionEvent, settings *models.ChannelBotSettings) (CoinGrant, bool) {
	if settings == nil {
		return CoinGrant{}, false
	}

	rules := channels.ParseTwitchAutoRewards(settings.TwitchAutoRewards)
	if rule, ok := rules.Rule(event.Reward.ID); ok {
		return CoinGrant{Coins: rule.Coins, OnlyWhenLive: rule.OnlyWhenLive}, true
	}

	if settings.TwitchRewardIDForCoins != nil && *settings.TwitchRewardIDForCoins == event.Reward.ID {
		coins := settings.TwitchCoinPerPointRatio.
			Mul(decimal.NewFromInt(event.Reward.Cost)).
			Floor().
			IntPart()
		if coins <= 0 {
			return CoinGrant{}, false
		}
		return CoinGrant{Coins: coins}, true
	}

	return CoinGrant{}, false
}
