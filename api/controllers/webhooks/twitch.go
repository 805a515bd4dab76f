package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/api/responses"
	twitchwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/twitch"
	pkgerrors "github.com/memalerts/memalerts-backend/pkg/errors"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// RedemptionHandler consumes one EventSub redemption payload for a
// channel. The underlying processor swallows its own errors.
type RedemptionHandler func(ctx context.Context, channelID uuid.UUID, raw []byte)

// ChannelResolver maps a provider broadcaster id to the streamer's
// channel id.
type ChannelResolver interface {
	ResolveChannelID(ctx context.Context, provider enums.Provider, providerChannelID string) (uuid.UUID, bool, error)
}

// eventSubEnvelope is the EventSub notification wrapper.
type eventSubEnvelope struct {
	Challenge    string `json:"challenge"`
	Subscription struct {
		Type      string `json:"type"`
		Condition struct {
			BroadcasterUserID string `json:"broadcaster_user_id"`
		} `json:"condition"`
	} `json:"subscription"`
	Event json.RawMessage `json:"event"`
}

const eventSubRedemptionType = "channel.channel_points_custom_reward_redemption.add"

// TwitchEventSub handles EventSub callbacks: signature verification,
// the subscribe-time challenge exchange, and redemption notifications.
// The guard may be nil when Redis is absent; the reward ledger's unique
// key still dedupes redeliveries.
func TwitchEventSub(verifier *twitchwebhook.Verifier, resolver ChannelResolver, handle RedemptionHandler, guard *twitchwebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "eventsub verifier unavailable"))
			return
		}
		if resolver == nil || handle == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		messageID := r.Header.Get(twitchwebhook.HeaderMessageID)
		timestamp := r.Header.Get(twitchwebhook.HeaderMessageTimestamp)
		signature := r.Header.Get(twitchwebhook.HeaderMessageSignature)
		if err := verifier.Verify(messageID, timestamp, body, signature); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify eventsub signature"))
			return
		}

		var envelope eventSubEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse eventsub envelope"))
			return
		}

		switch r.Header.Get(twitchwebhook.HeaderMessageType) {
		case twitchwebhook.MessageTypeVerification:
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(envelope.Challenge))
			return
		case twitchwebhook.MessageTypeRevocation:
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "subscription_type", envelope.Subscription.Type), "eventsub subscription revoked")
			}
			responses.WriteSuccess(w, nil)
			return
		case twitchwebhook.MessageTypeNotification:
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown eventsub message type"))
			return
		}

		if envelope.Subscription.Type != eventSubRedemptionType {
			responses.WriteSuccess(w, nil)
			return
		}

		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, messageID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if seen {
				responses.WriteSuccess(w, nil)
				return
			}
		}

		broadcasterID := envelope.Subscription.Condition.BroadcasterUserID
		channelID, found, err := resolver.ResolveChannelID(ctx, enums.ProviderTwitch, broadcasterID)
		if err != nil {
			if guard != nil {
				_ = guard.Delete(ctx, messageID)
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve channel"))
			return
		}
		if !found {
			if logg != nil {
				logg.Warn(logg.WithProvider(ctx, string(enums.ProviderTwitch)), "eventsub notification for unknown broadcaster")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		handle(ctx, channelID, envelope.Event)
		responses.WriteSuccess(w, nil)
	}
}
