package twitch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

// Processor turns EventSub channel-points redemptions into ledger writes.
type Processor struct {
	tx          accounts.TxRunner
	settings    channels.SettingsRepository
	links       accounts.LinkRepository
	rewards     rewards.Service
	redemptions RedemptionRepository
	live        channels.LiveStatus
	logg        *logger.Logger
}

// NewProcessor wires the Twitch redemption processor. The redemption
// repository and live status are optional; without a live status every
// live-gated rule treats the channel as offline.
func NewProcessor(tx accounts.TxRunner, settings channels.SettingsRepository, links accounts.LinkRepository, rewardSvc rewards.Service, redemptions RedemptionRepository, live channels.LiveStatus, logg *logger.Logger) (*Processor, error) {
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
	return &Processor{
		tx:          tx,
		settings:    settings,
		links:       links,
		rewards:     rewardSvc,
		redemptions: redemptions,
		live:        live,
		logg:        logg,
	}, nil
}

// ProcessRedemption records one validated redemption payload. Errors are
// logged, never returned, so webhook delivery loops keep serving other events.
func (p *Processor) ProcessRedemption(ctx context.Context, channelID uuid.UUID, raw []byte) *rewards.WalletUpdate {
	update, err := p.process(ctx, channelID, raw)
	if err != nil {
		if p.logg != nil {
			logCtx := p.logg.WithChannelID(p.logg.WithProvider(ctx, string(enums.ProviderTwitch)), channelID.String())
			p.logg.Error(logCtx, "twitch redemption processing failed", err)
		}
		return nil
	}
	return update
}

func (p *Processor) process(ctx context.Context, channelID uuid.UUID, raw []byte) (*rewards.WalletUpdate, error) {
	event, err := DecodeRedemptionEvent(raw)
	if err != nil {
		return nil, err
	}

	settings, err := p.settings.GetByChannelID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	grant, ok := ResolveCoins(event, settings)
	if !ok {
		return nil, nil
	}

	status := enums.RewardStatusEligible
	reason := ""
	if grant.OnlyWhenLive {
		isLive := false
		if p.live != nil {
			isLive, err = p.live.IsLive(ctx, channelID)
			if err != nil {
				return nil, err
			}
		}
		if !isLive {
			status = enums.RewardStatusIgnored
			reason = ReasonOffline
		}
	}

	redeemedAt := event.RedeemedAt
	input := rewards.RecordRewardInput{
		Provider:          enums.ProviderTwitch,
		ProviderEventID:   event.ID,
		ChannelID:         channelID,
		ProviderAccountID: event.UserID,
		EventType:         enums.RewardEventTwitchRedemption,
		Currency:          enums.CurrencyTwitchChannelPoints,
		Amount:            event.Reward.Cost,
		CoinsToGrant:      grant.Coins,
		Status:            status,
		Reason:            reason,
		RawPayload:        json.RawMessage(raw),
	}
	if !redeemedAt.IsZero() {
		input.EventAt = &redeemedAt
	}

	var update *rewards.WalletUpdate
	err = p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		linkedUserID, err := p.links.WithTx(tx).FindUserID(ctx, enums.ProviderTwitch, event.UserID)
		if err != nil {
			return err
		}
		input.LinkedUserID = linkedUserID
		update, err = p.rewards.RecordExternalRewardEventTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.writeLegacyRedemption(ctx, channelID, event, input.LinkedUserID)
	return update, nil
}

// writeLegacyRedemption appends the audit row older dashboards still read.
// The ledger is the source of truth, so failures are logged and swallowed.
func (p *Processor) writeLegacyRedemption(ctx context.Context, channelID uuid.UUID, event RedemptionEvent, userID *uuid.UUID) {
	if p.redemptions == nil {
		return
	}
	redemption := &models.Redemption{
		ChannelID:         channelID,
		UserID:            userID,
		Provider:          enums.ProviderTwitch,
		ProviderAccountID: event.UserID,
		RewardID:          event.Reward.ID,
		Cost:              event.Reward.Cost,
	}
	if !event.RedeemedAt.IsZero() {
		redeemedAt := event.RedeemedAt
		redemption.RedeemedAt = &redeemedAt
	}
	if err := p.redemptions.Create(ctx, redemption); err != nil && p.logg != nil {
		logCtx := p.logg.WithChannelID(ctx, channelID.String())
		p.logg.Warn(logCtx, "legacy redemption insert failed: "+err.Error())
	}
}
