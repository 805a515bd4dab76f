package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service links provider accounts to users and sweeps escrowed grants on link.
type Service interface {
	LinkAccount(ctx context.Context, input LinkInput) ([]rewards.WalletUpdate, error)
}

// LinkInput identifies the account link established by the OAuth flow.
type LinkInput struct {
	UserID            uuid.UUID
	Provider          enums.Provider
	ProviderAccountID string
}

type service struct {
	tx      TxRunner
	links   LinkRepository
	rewards rewards.Service
	logg    *logger.Logger
}

// NewService wires the account-link service.
func NewService(tx TxRunner, links LinkRepository, rewardSvc rewards.Service, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if links == nil {
		return nil, fmt.Errorf("link repository required")
	}
	if rewardSvc == nil {
		return nil, fmt.Errorf("reward service required")
	}
	return &service{tx: tx, links: links, rewards: rewardSvc, logg: logg}, nil
}

// LinkAccount upserts the link row and, for chat-bot-capable providers,
// sweeps all matching pending grants into the user's wallets inside the same
// transaction. Returns the wallet updates for the caller to broadcast after
// commit.
func (s *service) LinkAccount(ctx context.Context, input LinkInput) ([]rewards.WalletUpdate, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Provider.IsValid() {
		return nil, fmt.Errorf("invalid provider %q", input.Provider)
	}
	if input.ProviderAccountID == "" {
		return nil, fmt.Errorf("provider account id is required")
	}

	var updates []rewards.WalletUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		link := &models.AccountLink{
			UserID:            input.UserID,
			Provider:          input.Provider,
			ProviderAccountID: input.ProviderAccountID,
		}
		if err := s.links.WithTx(tx).Upsert(ctx, link); err != nil {
			return err
		}
		if !input.Provider.IsChatBotCapable() {
			return nil
		}
		swept, err := s.rewards.ClaimPendingCoinGrantsTx(ctx, tx, rewards.ClaimInput{
			UserID:            input.UserID,
			Provider:          input.Provider,
			ProviderAccountID: input.ProviderAccountID,
		})
		if err != nil {
			return err
		}
		updates = swept
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"provider": string(input.Provider),
			"user_id":  input.UserID.String(),
			"grants":   len(updates),
		})
		s.logg.Info(logCtx, "swept pending coin grants on account link")
	}
	return updates, nil
}
