package trovo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// Processor turns raw Trovo chat payloads into ledger writes.
type Processor struct {
	tx       accounts.TxRunner
	settings channels.SettingsRepository
	links    accounts.LinkRepository
	rewards  rewards.Service
	logg     *logger.Logger
}

// NewProcessor wires the Trovo spell processor.
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

// ProcessChatMessage records a spell reward for one chat payload. Errors are
// logged, never returned: a malformed event must not halt the poll loop
// serving other channels.
func (p *Processor) ProcessChatMessage(ctx context.Context, channelID uuid.UUID, raw []byte) *rewards.WalletUpdate {
	update, err := p.process(ctx, channelID, raw)
	if err != nil {
		if p.logg != nil {
			logCtx := p.logg.WithChannelID(p.logg.WithProvider(ctx, string(enums.ProviderTrovo)), channelID.String())
			p.logg.Error(logCtx, "trovo spell processing failed", err)
		}
		return nil
	}
	return update
}

func (p *Processor) process(ctx context.Context, channelID uuid.UUID, raw []byte) (*rewards.WalletUpdate, error) {
	msg, err := DecodeChatMessage(raw)
	if err != nil {
		return nil, err
	}

	settings, err := p.settings.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	var rates Rates
	if settings != nil {
		rates = Rates{
			ManaCoinsPerUnit:   settings.TrovoManaCoinsPerUnit,
			ElixirCoinsPerUnit: settings.TrovoElixirCoinsPerUnit,
		}
	}

	intent, ok := ExtractSpellFromChat(msg, rates)
	if !ok {
		return nil, nil
	}

	providerEventID := msg.MsgID
	if providerEventID == "" {
		providerEventID = rewards.StableProviderEventID(enums.ProviderTrovo, raw, channelID.String(), msg.UID)
	}

	var update *rewards.WalletUpdate
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		linkedUserID, err := p.links.WithTx(tx).FindUserID(ctx, enums.ProviderTrovo, intent.ProviderAccountID)
		if err != nil {
			return err
		}
		update, err = p.rewards.RecordExternalRewardEventTx(ctx, tx, rewards.RecordRewardInput{
			Provider:          enums.ProviderTrovo,
			ProviderEventID:   providerEventID,
			ChannelID:         channelID,
			ProviderAccountID: intent.ProviderAccountID,
			EventType:         enums.RewardEventTrovoSpell,
			Currency:          intent.Currency,
			Amount:            intent.Amount,
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
