package vkvideo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/memalerts/memalerts-backend/internal/providers"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// pushTypeChannelPoints is the only push type that carries a reward.
const pushTypeChannelPoints = "channel_points"

// ReasonUnconfigured marks point rewards on channels with no conversion rate.
const ReasonUnconfigured = "vkvideo_points_unconfigured"

// PushUser identifies the viewer inside a VK Video push payload.
type PushUser struct {
	ID string `json:"id" validate:"required"`
}

// PushReward identifies the redeemed reward.
type PushReward struct {
	ID string `json:"id"`
}

// PushEvent is the VK Video channel-points push payload subset the extractor reads.
type PushEvent struct {
	Type      string     `json:"type" validate:"required"`
	ID        string     `json:"id"`
	User      PushUser   `json:"user"`
	Amount    int64      `json:"amount" validate:"gte=0"`
	Reward    PushReward `json:"reward"`
	CreatedAt int64      `json:"created_at"`
}

// DecodePushEvent parses a raw VK Video push payload.
func DecodePushEvent(raw []byte) (PushEvent, error) {
	var event PushEvent
	if err := providers.DecodeAndValidate(raw, &event); err != nil {
		return PushEvent{}, err
	}
	return event, nil
}

// PointsIntent is the normalized reward intent extracted from a push event.
type PointsIntent struct {
	ProviderAccountID string
	Amount            int64
	CoinsToGrant      int64
	Status            enums.RewardEventStatus
	Reason            string
	EventAt           *time.Time
}

// ExtractChannelPoints turns a push event into a reward intent, or reports
// false when the push is not a channel-points reward.
func ExtractChannelPoints(event PushEvent, coinsPerPoint decimal.Decimal) (PointsIntent, bool) {
	if event.Type != pushTypeChannelPoints {
		return PointsIntent{}, false
	}
	if event.User.ID == "" || event.Amount <= 0 {
		return PointsIntent{}, false
	}

	coins := coinsPerPoint.Mul(decimal.NewFromInt(event.Amount)).Floor().IntPart()
	intent := PointsIntent{
		ProviderAccountID: event.User.ID,
		Amount:            event.Amount,
		CoinsToGrant:      coins,
		Status:            enums.RewardStatusEligible,
		EventAt:           eventTime(event.CreatedAt),
	}
	if coins <= 0 {
		intent.CoinsToGrant = 0
		intent.Status = enums.RewardStatusIgnored
		intent.Reason = ReasonUnconfigured
	}
	return intent, true
}

func eventTime(raw int64) *time.Time {
	if raw <= 0 {
		return nil
	}
	var t time.Time
	if raw < 1e12 {
		t = time.Unix(raw, 0).UTC()
	} else {
		t = time.UnixMilli(raw).UTC()
	}
	return &t
}
