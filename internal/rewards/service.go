package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/metrics"
	"github.com/memalerts/memalerts-backend/pkg/outbox"
	"github.com/memalerts/memalerts-backend/pkg/outbox/payloads"
)

// WalletReasonExternalReward tags wallet deltas sourced from provider rewards.
const WalletReasonExternalReward = "external_reward"

// claimBatchLimit bounds how many escrowed grants a single sweep processes.
const claimBatchLimit = 100

// Service is the transactional write path for the reward ledger, escrow and
// wallets. All methods expect an ambient transaction so the caller controls
// commit/rollback.
type Service interface {
	RecordExternalRewardEventTx(ctx context.Context, tx *gorm.DB, input RecordRewardInput) (*WalletUpdate, error)
	ClaimPendingCoinGrantsTx(ctx context.Context, tx *gorm.DB, input ClaimInput) ([]WalletUpdate, error)
}

// RecordRewardInput carries one normalized provider event into the recorder.
type RecordRewardInput struct {
	Provider          enums.Provider
	ProviderEventID   string
	ChannelID         uuid.UUID
	ProviderAccountID string
	EventType         enums.RewardEventType
	Currency          enums.RewardCurrency
	Amount            int64
	CoinsToGrant      int64
	Status            enums.RewardEventStatus
	Reason            string
	EventAt           *time.Time
	RawPayload        json.RawMessage
	LinkedUserID      *uuid.UUID
}

// ClaimInput identifies the newly linked account whose escrow should be swept.
type ClaimInput struct {
	UserID            uuid.UUID
	Provider          enums.Provider
	ProviderAccountID string
}

// WalletUpdate is the hand-off descriptor the realtime bridge broadcasts
// after the owning transaction commits.
type WalletUpdate struct {
	UserID    uuid.UUID `json:"userId"`
	ChannelID uuid.UUID `json:"channelId"`
	Balance   int64     `json:"balance"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
}

type service struct {
	events  EventRepository
	grants  GrantRepository
	wallets WalletRepository
	outbox  *outbox.Service
	metrics *metrics.RewardMetrics
	logg    *logger.Logger
}

// NewService wires the reward write path with its repositories. The outbox
// service and metrics are optional.
func NewService(events EventRepository, grants GrantRepository, wallets WalletRepository, ob *outbox.Service, m *metrics.RewardMetrics, logg *logger.Logger) (Service, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if grants == nil {
		return nil, fmt.Errorf("grant repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{
		events:  events,
		grants:  grants,
		wallets: wallets,
		outbox:  ob,
		metrics: m,
		logg:    logg,
	}, nil
}

func (s *service) RecordExternalRewardEventTx(ctx context.Context, tx *gorm.DB, input RecordRewardInput) (*WalletUpdate, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = enums.RewardStatusEligible
	}
	creditable := status == enums.RewardStatusEligible && input.CoinsToGrant > 0
	if creditable && input.LinkedUserID != nil {
		status = enums.RewardStatusClaimed
	}

	event := &models.ExternalRewardEvent{
		Provider:          input.Provider,
		ProviderEventID:   input.ProviderEventID,
		ChannelID:         input.ChannelID,
		ProviderAccountID: input.ProviderAccountID,
		EventType:         input.EventType,
		Currency:          input.Currency,
		Amount:            input.Amount,
		CoinsToGrant:      input.CoinsToGrant,
		Status:            status,
		EventAt:           input.EventAt,
		RawPayload:        input.RawPayload,
		LinkedUserID:      input.LinkedUserID,
	}
	if input.Reason != "" {
		reason := input.Reason
		event.Reason = &reason
	}

	inserted, err := s.events.WithTx(tx).InsertIfAbsent(ctx, event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.metrics.IncDuplicate(string(input.Provider))
		s.logDebugEvent(ctx, input, "reward event already recorded")
		return nil, nil
	}

	if !creditable {
		s.metrics.IncIgnored(string(input.Provider), input.Reason)
		if err := s.emitRewardIgnored(ctx, tx, event, input.Reason); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.metrics.IncRecorded(string(input.Provider))
	if err := s.emitRewardRecorded(ctx, tx, event); err != nil {
		return nil, err
	}

	if input.LinkedUserID != nil {
		balance, err := s.wallets.WithTx(tx).Credit(ctx, *input.LinkedUserID, input.ChannelID, input.CoinsToGrant)
		if err != nil {
			return nil, err
		}
		update := &WalletUpdate{
			UserID:    *input.LinkedUserID,
			ChannelID: input.ChannelID,
			Balance:   balance,
			Delta:     input.CoinsToGrant,
			Reason:    WalletReasonExternalReward,
		}
		if err := s.emitWalletUpdated(ctx, tx, input.Provider, update); err != nil {
			return nil, err
		}
		return update, nil
	}

	grant := &models.PendingCoinGrant{
		ChannelID:         input.ChannelID,
		ExternalEventID:   event.ID,
		Provider:          input.Provider,
		ProviderAccountID: input.ProviderAccountID,
		CoinsToGrant:      input.CoinsToGrant,
	}
	if err := s.grants.WithTx(tx).Create(ctx, grant); err != nil {
		return nil, err
	}
	if err := s.emitPendingGrantCreated(ctx, tx, grant); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *service) ClaimPendingCoinGrantsTx(ctx context.Context, tx *gorm.DB, input ClaimInput) ([]WalletUpdate, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Provider.IsValid() {
		return nil, fmt.Errorf("invalid provider %q", input.Provider)
	}
	if input.ProviderAccountID == "" {
		return nil, fmt.Errorf("provider account id is required")
	}

	grantRepo := s.grants.WithTx(tx)
	grants, err := grantRepo.ListUnclaimed(ctx, input.Provider, input.ProviderAccountID, claimBatchLimit)
	if err != nil {
		return nil, err
	}

	updates := make([]WalletUpdate, 0, len(grants))
	var markErrs error
	now := time.Now().UTC()
	for _, grant := range grants {
		if grant.CoinsToGrant <= 0 || grant.ChannelID == uuid.Nil {
			continue
		}
		claimed, err := grantRepo.Claim(ctx, grant.ID, input.UserID, now)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		balance, err := s.wallets.WithTx(tx).Credit(ctx, input.UserID, grant.ChannelID, grant.CoinsToGrant)
		if err != nil {
			return nil, err
		}
		if err := s.events.WithTx(tx).MarkClaimed(ctx, grant.ExternalEventID, input.UserID); err != nil {
			markErrs = multierr.Append(markErrs, fmt.Errorf("mark event %s claimed: %w", grant.ExternalEventID, err))
		}
		s.metrics.IncClaimed(string(input.Provider))
		update := WalletUpdate{
			UserID:    input.UserID,
			ChannelID: grant.ChannelID,
			Balance:   balance,
			Delta:     grant.CoinsToGrant,
			Reason:    WalletReasonExternalReward,
		}
		if err := s.emitPendingGrantClaimed(ctx, tx, grant, input.UserID, now); err != nil {
			return nil, err
		}
		if err := s.emitWalletUpdated(ctx, tx, input.Provider, &update); err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}

	if markErrs != nil && s.logg != nil {
		logCtx := s.logg.WithProvider(ctx, string(input.Provider))
		s.logg.Error(logCtx, "failed to mark ledger rows claimed", markErrs)
	}
	return updates, nil
}

func validateRecordInput(input RecordRewardInput) error {
	if !input.Provider.IsValid() {
		return fmt.Errorf("invalid provider %q", input.Provider)
	}
	if input.ProviderEventID == "" {
		return fmt.Errorf("provider event id is required")
	}
	if input.ChannelID == uuid.Nil {
		return fmt.Errorf("channel id is required")
	}
	if input.ProviderAccountID == "" {
		return fmt.Errorf("provider account id is required")
	}
	if !input.EventType.IsValid() {
		return fmt.Errorf("invalid reward event type %q", input.EventType)
	}
	if !input.Currency.IsValid() {
		return fmt.Errorf("invalid reward currency %q", input.Currency)
	}
	if input.Status != "" && !input.Status.IsValid() {
		return fmt.Errorf("invalid reward event status %q", input.Status)
	}
	return nil
}

func (s *service) emitRewardRecorded(ctx context.Context, tx *gorm.DB, event *models.ExternalRewardEvent) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRewardRecorded,
		AggregateType: enums.AggregateRewardEvent,
		AggregateID:   event.ID,
		Version:       1,
		Data: payloads.RewardRecordedEvent{
			EventID:      event.ID,
			ChannelID:    event.ChannelID,
			Provider:     event.Provider,
			EventType:    event.EventType,
			Currency:     event.Currency,
			Amount:       event.Amount,
			CoinsToGrant: event.CoinsToGrant,
			EventAt:      derefTime(event.EventAt),
		},
	})
}

func (s *service) emitRewardIgnored(ctx context.Context, tx *gorm.DB, event *models.ExternalRewardEvent, reason string) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRewardIgnored,
		AggregateType: enums.AggregateRewardEvent,
		AggregateID:   event.ID,
		Version:       1,
		Data: payloads.RewardIgnoredEvent{
			EventID:   event.ID,
			ChannelID: event.ChannelID,
			Provider:  event.Provider,
			EventType: event.EventType,
			Reason:    reason,
		},
	})
}

func (s *service) emitPendingGrantCreated(ctx context.Context, tx *gorm.DB, grant *models.PendingCoinGrant) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPendingGrantCreated,
		AggregateType: enums.AggregatePendingGrant,
		AggregateID:   grant.ID,
		Version:       1,
		Data: payloads.PendingGrantCreatedEvent{
			GrantID:           grant.ID,
			ChannelID:         grant.ChannelID,
			Provider:          grant.Provider,
			ProviderAccountID: grant.ProviderAccountID,
			Coins:             grant.CoinsToGrant,
		},
	})
}

func (s *service) emitPendingGrantClaimed(ctx context.Context, tx *gorm.DB, grant models.PendingCoinGrant, userID uuid.UUID, at time.Time) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPendingGrantClaimed,
		AggregateType: enums.AggregatePendingGrant,
		AggregateID:   grant.ID,
		Version:       1,
		Data: payloads.PendingGrantClaimedEvent{
			GrantID:   grant.ID,
			ChannelID: grant.ChannelID,
			Provider:  grant.Provider,
			UserID:    userID,
			Coins:     grant.CoinsToGrant,
			ClaimedAt: at,
		},
	})
}

func (s *service) emitWalletUpdated(ctx context.Context, tx *gorm.DB, provider enums.Provider, update *WalletUpdate) error {
	if s.outbox == nil {
		return nil
	}
	channelID := update.ChannelID
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletUpdated,
		AggregateType: enums.AggregateWallet,
		AggregateID:   update.UserID,
		Actor: &outbox.ActorRef{
			UserID:    update.UserID,
			ChannelID: &channelID,
			Provider:  string(provider),
		},
		Version: 1,
		Data: payloads.WalletUpdatedEvent{
			UserID:    update.UserID,
			ChannelID: update.ChannelID,
			Balance:   update.Balance,
			Delta:     update.Delta,
			Reason:    update.Reason,
		},
	})
}

func (s *service) logDebugEvent(ctx context.Context, input RecordRewardInput, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"provider":          string(input.Provider),
		"provider_event_id": input.ProviderEventID,
		"channel_id":        input.ChannelID.String(),
	})
	s.logg.Info(logCtx, msg)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
