package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/api/responses"
	kickwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/kick"
	pkgerrors "github.com/memalerts/memalerts-backend/pkg/errors"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// HeaderKickChannelID carries the broadcaster's Kick channel id.
const HeaderKickChannelID = "Kick-Channel-Id"

// SubscriptionHandler consumes one Kick subscription payload for a
// channel. The underlying processor swallows its own errors.
type SubscriptionHandler func(ctx context.Context, channelID uuid.UUID, raw []byte)

// KickWebhook handles Kick subscription events: shared-secret HMAC
// verification, channel resolution, then hand-off to the reward
// processor. Redeliveries are deduped by the ledger's unique key.
func KickWebhook(verifier *kickwebhook.Verifier, resolver ChannelResolver, handle SubscriptionHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "kick verifier unavailable"))
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

		if err := verifier.Verify(body, r.Header.Get(kickwebhook.HeaderSignature)); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify kick signature"))
			return
		}

		providerChannelID := r.Header.Get(HeaderKickChannelID)
		if providerChannelID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "kick channel id header missing"))
			return
		}

		channelID, found, err := resolver.ResolveChannelID(ctx, enums.ProviderKick, providerChannelID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve channel"))
			return
		}
		if !found {
			if logg != nil {
				logg.Warn(logg.WithProvider(ctx, string(enums.ProviderKick)), "kick webhook for unknown channel")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		handle(ctx, channelID, body)
		responses.WriteSuccess(w, nil)
	}
}
