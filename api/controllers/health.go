package controllers

import (
	"net/http"

	"github.com/memalerts/memalerts-backend/api/responses"
	"github.com/memalerts/memalerts-backend/pkg/config"
	"github.com/memalerts/memalerts-backend/pkg/db"
	pkgerrors "github.com/memalerts/memalerts-backend/pkg/errors"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/redis"
)

const envHeader = "X-MemAlerts-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the database and Redis both
// answer. Redis is optional infrastructure, so a nil client is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
