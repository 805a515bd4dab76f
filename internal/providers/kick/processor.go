package kick

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// Processor turns Kick subscription webhooks into ledger writes.
type Processor struct {
	tx       accounts.TxRunner
	settings channels.SettingsRepository
	links    accounts.LinkRepository
	rewards  rewards.Service
	logg     *logger.Logger
}

// NewProcessor wires the Kick subscription processor.
func NewProcessor(tx accounts.TxRunner, settings channels.SettingsRepository, links accounts.LinkRepository, rewardSvc rewards.Service, logg *logger.Logger) (*Processor, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if links == nil {
		return nil, fmt.Errorf("link repository required")
	}
	if rewardSvc == nil {
		return nil, fmt.Errorf("reward service required")
	}
	return &Processor{tx: tx, settings: settings, links: links, rewards: rewardSvc, logg: logg}, nil
}

// ProcessSubscription records a sub reward for one webhook payload.
// Errors are logged, never returned.
func (p *Processor) ProcessSubscription(ctx context.Context, channelID uuid.UUID, raw []byte) *rewards.WalletUpdate {
	update, err := p.process(ctx, channelID, raw)
	if err != nil {
		if p.logg != nil {
			logCtx := p.logg.WithChannelID(p.logg.WithProvider(ctx, string(enums.ProviderKick)), channelID.String())
			p.logg.Error(logCtx, "kick subscription processing failed", err)
		}
		return nil
	}
	return update
}

func (p *Processor) process(ctx context.Context, channelID uuid.UUID, raw []byte) (*rewards.WalletUpdate, error) {
	event, err := DecodeSubscriptionEvent(raw)
	if err != nil {
		return nil, err
	}

	settings, err := p.settings.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	coinsPerSubMonth := decimal.Zero
	if settings != nil {
		coinsPerSubMonth = settings.KickCoinsPerSubMonth
	}

	intent, ok := ExtractSubscription(event, coinsPerSubMonth)
	if !ok {
		return nil, nil
	}

	providerEventID := event.ID
	if providerEventID == "" {
		providerEventID = rewards.StableProviderEventID(enums.ProviderKick, raw, channelID.String(), intent.ProviderAccountID)
	}

	var update *rewards.WalletUpdate
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		linkedUserID, err := p.links.WithTx(tx).FindUserID(ctx, enums.ProviderKick, intent.ProviderAccountID)
		if err != nil {
			return err
		}
		update, err = p.rewards.RecordExternalRewardEventTx(ctx, tx, rewards.RecordRewardInput{
			Provider:          enums.ProviderKick,
			ProviderEventID:   providerEventID,
			ChannelID:         channelID,
			ProviderAccountID: intent.ProviderAccountID,
			EventType:         enums.RewardEventKickSubscription,
			Currency:          enums.CurrencyKickSubMonths,
			Amount:            intent.Months,
			CoinsToGrant:      intent.CoinsToGrant,
			Status:            intent.Status,
			Reason:            intent.Reason,
			EventAt:           intent.EventAt,
			RawPayload:        json.RawMessage(raw),
			LinkedUserID:      linkedUserID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}
