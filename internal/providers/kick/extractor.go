package kick

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/memalerts/memalerts-backend/internal/providers"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// Subscription event types that carry a rewardable sub-month count.
const (
	eventTypeSubRenewal = "channel.subscription.renewal"
	eventTypeSubNew     = "channel.subscription.new"
	eventTypeSubGifts   = "channel.subscription.gifts"
)

// ReasonUnconfigured marks sub events on channels with no conversion rate.
const ReasonUnconfigured = "kick_subs_unconfigured"

// Subscriber identifies the paying viewer in a Kick webhook payload. For
// gifted subs this is the gifter, who earns the coins.
type Subscriber struct {
	ID string `json:"user_id" validate:"required"`
}

// SubscriptionEvent is the Kick webhook payload subset the extractor reads.
type SubscriptionEvent struct {
	Type       string     `json:"type" validate:"required"`
	ID         string     `json:"id"`
	Subscriber Subscriber `json:"subscriber"`
	Months     int64      `json:"months" validate:"gte=0"`
	Quantity   int64      `json:"quantity" validate:"gte=0"`
	CreatedAt  int64      `json:"created_at"`
}

// DecodeSubscriptionEvent parses a raw Kick webhook payload.
func DecodeSubscriptionEvent(raw []byte) (SubscriptionEvent, error) {
	var event SubscriptionEvent
	if err := providers.DecodeAndValidate(raw, &event); err != nil {
		return SubscriptionEvent{}, err
	}
	return event, nil
}

// SubIntent is the normalized reward intent extracted from a sub event.
type SubIntent struct {
	ProviderAccountID string
	Months            int64
	CoinsToGrant      int64
	Status            enums.RewardEventStatus
	Reason            string
	EventAt           *time.Time
}

// ExtractSubscription turns a Kick subscription event into a reward
// intent, or reports false when the event is not a rewardable sub.
// Gifted subs count quantity × months for the gifter.
func ExtractSubscription(event SubscriptionEvent, coinsPerSubMonth decimal.Decimal) (SubIntent, bool) {
	switch event.Type {
	case eventTypeSubNew, eventTypeSubRenewal, eventTypeSubGifts:
	default:
		return SubIntent{}, false
	}
	if event.Subscriber.ID == "" {
		return SubIntent{}, false
	}

	months := event.Months
	if months <= 0 {
		months = 1
	}
	if event.Type == eventTypeSubGifts {
		quantity := event.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		months *= quantity
	}

	coins := coinsPerSubMonth.Mul(decimal.NewFromInt(months)).Floor().IntPart()
	intent := SubIntent{
		ProviderAccountID: event.Subscriber.ID,
		Months:            months,
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
