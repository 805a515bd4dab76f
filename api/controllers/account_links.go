package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/memalerts/memalerts-backend/api/responses"
	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	pkgerrors "github.com/memalerts/memalerts-backend/pkg/errors"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

type accountLinkBody struct {
	UserID            string `json:"userId"`
	Provider          string `json:"provider"`
	ProviderAccountID string `json:"providerAccountId"`
}

// AccountLinkCompleted is the internal hook the identity service calls after
// an OAuth link flow finishes. It upserts the link row and sweeps any
// escrowed grants for the newly linked account.
func AccountLinkCompleted(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account link service unavailable"))
			return
		}

		var body accountLinkBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account link body"))
			return
		}

		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse user id"))
			return
		}
		provider, err := enums.ParseProvider(body.Provider)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse provider"))
			return
		}
		if body.ProviderAccountID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "provider account id is required"))
			return
		}

		updates, err := svc.LinkAccount(ctx, accounts.LinkInput{
			UserID:            userID,
			Provider:          provider,
			ProviderAccountID: body.ProviderAccountID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link account"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"linked":        true,
			"walletUpdates": updates,
		})
	}
}
