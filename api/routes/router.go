package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memalerts/memalerts-backend/api/controllers"
	webhookcontrollers "github.com/memalerts/memalerts-backend/api/controllers/webhooks"
	"github.com/memalerts/memalerts-backend/api/middleware"
	"github.com/memalerts/memalerts-backend/internal/accounts"
	kickwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/kick"
	twitchwebhook "github.com/memalerts/memalerts-backend/internal/webhooks/twitch"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/db"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/redis"
)

// RouterParams carry the webhook ingress dependencies. Verifiers are
// per-provider secrets; a nil verifier leaves that provider's route
// unregistered so a half-configured deployment fails loudly at the
// edge instead of accepting unverifiable payloads.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    db.Pinger
	Redis redis.Pinger

	TwitchVerifier *twitchwebhook.Verifier
	TwitchGuard    *twitchwebhook.IdempotencyGuard
	KickVerifier   *kickwebhook.Verifier

	ChannelResolver webhookcontrollers.ChannelResolver
	TwitchHandler   webhookcontrollers.RedemptionHandler
	KickHandler     webhookcontrollers.SubscriptionHandler

	AccountLinker accounts.Service
}

// NewRouter assembles the ingress surface: health probes, prometheus
// metrics, and the provider webhook endpoints.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if p.TwitchVerifier != nil {
			r.Post("/twitch", webhookcontrollers.TwitchEventSub(p.TwitchVerifier, p.ChannelResolver, p.TwitchHandler, p.TwitchGuard, logg))
		}
		if p.KickVerifier != nil {
			r.Post("/kick", webhookcontrollers.KickWebhook(p.KickVerifier, p.ChannelResolver, p.KickHandler, logg))
		}
	})

	if p.AccountLinker != nil {
		r.Post("/internal/accounts/link", controllers.AccountLinkCompleted(p.AccountLinker, logg))
	}

	return r
}
