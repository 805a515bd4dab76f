package rewards

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
	"github.com/memalerts/memalerts-backend/pkg/outbox"
)

func setupRewardsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS external_reward_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  provider_event_id TEXT NOT NULL,
  channel_id TEXT NOT NULL,
  provider_account_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  currency TEXT NOT NULL,
  amount INTEGER NOT NULL,
  coins_to_grant INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'eligible',
  reason TEXT,
  event_at DATETIME,
  raw_payload_json TEXT,
  linked_user_id TEXT,
  created_at DATETIME,
  UNIQUE (provider, provider_event_id)
);`
	grants := `
CREATE TABLE IF NOT EXISTS pending_coin_grants (
  id TEXT PRIMARY KEY,
  channel_id TEXT NOT NULL,
  external_event_id TEXT NOT NULL UNIQUE,
  provider TEXT NOT NULL,
  provider_account_id TEXT NOT NULL,
  coins_to_grant INTEGER NOT NULL,
  created_at DATETIME,
  claimed_at DATETIME,
  claimed_by_user_id TEXT
);`
	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  channel_id TEXT NOT NULL,
  balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, channel_id)
);`
	outboxEvents := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	for _, ddl := range []string{events, grants, wallets, outboxEvents} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	for _, table := range []string{"external_reward_events", "pending_coin_grants", "wallets", "outbox_events"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	ob := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(
		NewEventRepository(db),
		NewGrantRepository(db),
		NewWalletRepository(db),
		ob,
		nil,
		nil,
	)
	require.NoError(t, err)
	return svc
}

func linkedRecordInput(userID, channelID uuid.UUID) RecordRewardInput {
	return RecordRewardInput{
		Provider:          enums.ProviderTrovo,
		ProviderEventID:   "evt-1",
		ChannelID:         channelID,
		ProviderAccountID: "trovo-acc-1",
		EventType:         enums.RewardEventTrovoSpell,
		Currency:          enums.CurrencyTrovoMana,
		Amount:            3,
		CoinsToGrant:      30,
		RawPayload:        json.RawMessage(`{"type":5,"content":"{\"num\":3}"}`),
		LinkedUserID:      &userID,
	}
}

func TestRecordExternalRewardEvent_CreditsLinkedWallet(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	channelID := uuid.New()

	var update *WalletUpdate
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = svc.RecordExternalRewardEventTx(ctx, tx, linkedRecordInput(userID, channelID))
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, userID, update.UserID)
	assert.Equal(t, channelID, update.ChannelID)
	assert.Equal(t, int64(30), update.Delta)
	assert.Equal(t, int64(30), update.Balance)
	assert.Equal(t, WalletReasonExternalReward, update.Reason)

	var event models.ExternalRewardEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt-1").First(&event).Error)
	assert.Equal(t, enums.RewardStatusClaimed, event.Status)
	require.NotNil(t, event.LinkedUserID)
	assert.Equal(t, userID, *event.LinkedUserID)

	var grantCount int64
	require.NoError(t, db.Model(&models.PendingCoinGrant{}).Count(&grantCount).Error)
	assert.Zero(t, grantCount)

	var outboxCount int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventWalletUpdated).Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

func TestRecordExternalRewardEvent_Idempotent(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	channelID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordExternalRewardEventTx(ctx, tx, linkedRecordInput(userID, channelID))
		return err
	})
	require.NoError(t, err)

	// Re-delivery with a different amount must be a no-op.
	redelivery := linkedRecordInput(userID, channelID)
	redelivery.CoinsToGrant = 999
	var update *WalletUpdate
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = svc.RecordExternalRewardEventTx(ctx, tx, redelivery)
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, update)

	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)

	balance, err := NewWalletRepository(db).Balance(ctx, userID, channelID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestRecordExternalRewardEvent_EscrowsUnlinked(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	channelID := uuid.New()
	input := linkedRecordInput(uuid.New(), channelID)
	input.LinkedUserID = nil

	var update *WalletUpdate
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = svc.RecordExternalRewardEventTx(ctx, tx, input)
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, update)

	var grant models.PendingCoinGrant
	require.NoError(t, db.First(&grant).Error)
	assert.Equal(t, channelID, grant.ChannelID)
	assert.Equal(t, int64(30), grant.CoinsToGrant)
	assert.Nil(t, grant.ClaimedAt)

	var walletCount int64
	require.NoError(t, db.Model(&models.Wallet{}).Count(&walletCount).Error)
	assert.Zero(t, walletCount)
}

func TestRecordExternalRewardEvent_IgnoredStillDedupes(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	input := RecordRewardInput{
		Provider:          enums.ProviderTwitch,
		ProviderEventID:   "redeem-1",
		ChannelID:         uuid.New(),
		ProviderAccountID: "twitch-acc-1",
		EventType:         enums.RewardEventTwitchRedemption,
		Currency:          enums.CurrencyTwitchChannelPoints,
		Amount:            500,
		CoinsToGrant:      0,
		Status:            enums.RewardStatusIgnored,
		Reason:            "offline",
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			update, err := svc.RecordExternalRewardEventTx(ctx, tx, input)
			assert.Nil(t, update)
			return err
		})
		require.NoError(t, err)
	}

	var events []models.ExternalRewardEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.RewardStatusIgnored, events[0].Status)
	require.NotNil(t, events[0].Reason)
	assert.Equal(t, "offline", *events[0].Reason)

	var walletCount int64
	require.NoError(t, db.Model(&models.Wallet{}).Count(&walletCount).Error)
	assert.Zero(t, walletCount)

	var grantCount int64
	require.NoError(t, db.Model(&models.PendingCoinGrant{}).Count(&grantCount).Error)
	assert.Zero(t, grantCount)
}

func TestRecordExternalRewardEvent_Validation(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordExternalRewardEventTx(ctx, tx, RecordRewardInput{Provider: "nope"})
		return err
	})
	require.Error(t, err)

	_, err = svc.RecordExternalRewardEventTx(ctx, nil, linkedRecordInput(uuid.New(), uuid.New()))
	require.Error(t, err)
}

func TestClaimPendingCoinGrants_RoundTrip(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	channelID := uuid.New()
	input := linkedRecordInput(uuid.New(), channelID)
	input.LinkedUserID = nil
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordExternalRewardEventTx(ctx, tx, input)
		return err
	}))

	userID := uuid.New()
	claim := ClaimInput{
		UserID:            userID,
		Provider:          enums.ProviderTrovo,
		ProviderAccountID: "trovo-acc-1",
	}

	var updates []WalletUpdate
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		updates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, claim)
		return err
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, userID, updates[0].UserID)
	assert.Equal(t, channelID, updates[0].ChannelID)
	assert.Equal(t, int64(30), updates[0].Delta)
	assert.Equal(t, int64(30), updates[0].Balance)

	var grant models.PendingCoinGrant
	require.NoError(t, db.First(&grant).Error)
	require.NotNil(t, grant.ClaimedAt)
	require.NotNil(t, grant.ClaimedByUserID)
	assert.Equal(t, userID, *grant.ClaimedByUserID)

	var event models.ExternalRewardEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, enums.RewardStatusClaimed, event.Status)

	// Sweep again: the grant is already claimed.
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		updates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, claim)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, updates)

	balance, err := NewWalletRepository(db).Balance(ctx, userID, channelID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestClaimPendingCoinGrants_RaceLoserGetsNothing(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	input := linkedRecordInput(uuid.New(), uuid.New())
	input.LinkedUserID = nil
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordExternalRewardEventTx(ctx, tx, input)
		return err
	}))

	winner := uuid.New()
	loser := uuid.New()

	// Two link flows for the same provider account: only the first claim
	// passes the claimed_at IS NULL guard.
	var winnerUpdates, loserUpdates []WalletUpdate
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		winnerUpdates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, ClaimInput{
			UserID:            winner,
			Provider:          enums.ProviderTrovo,
			ProviderAccountID: "trovo-acc-1",
		})
		return err
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		loserUpdates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, ClaimInput{
			UserID:            loser,
			Provider:          enums.ProviderTrovo,
			ProviderAccountID: "trovo-acc-1",
		})
		return err
	}))

	require.Len(t, winnerUpdates, 1)
	assert.Empty(t, loserUpdates)

	var totalBalance int64
	require.NoError(t, db.Model(&models.Wallet{}).Select("COALESCE(SUM(balance), 0)").Scan(&totalBalance).Error)
	assert.Equal(t, int64(30), totalBalance)
}

func TestClaimPendingCoinGrants_SkipsDefectiveRows(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	grantRepo := NewGrantRepository(db)
	require.NoError(t, grantRepo.Create(ctx, &models.PendingCoinGrant{
		ChannelID:         uuid.New(),
		ExternalEventID:   uuid.New(),
		Provider:          enums.ProviderTrovo,
		ProviderAccountID: "trovo-acc-9",
		CoinsToGrant:      0,
	}))

	var updates []WalletUpdate
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		updates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, ClaimInput{
			UserID:            uuid.New(),
			Provider:          enums.ProviderTrovo,
			ProviderAccountID: "trovo-acc-9",
		})
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestClaimPendingCoinGrants_OldestFirst(t *testing.T) {
	db := setupRewardsTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	channelID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i, coins := range []int64{10, 20} {
		grant := models.PendingCoinGrant{
			ID:                uuid.New(),
			ChannelID:         channelID,
			ExternalEventID:   uuid.New(),
			Provider:          enums.ProviderVKVideo,
			ProviderAccountID: "vk-acc-1",
			CoinsToGrant:      coins,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&grant).Error)
	}

	var updates []WalletUpdate
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		updates, err = svc.ClaimPendingCoinGrantsTx(ctx, tx, ClaimInput{
			UserID:            uuid.New(),
			Provider:          enums.ProviderVKVideo,
			ProviderAccountID: "vk-acc-1",
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].Delta)
	assert.Equal(t, int64(20), updates[1].Delta)
	assert.Equal(t, int64(10), updates[0].Balance)
	assert.Equal(t, int64(30), updates[1].Balance)
}
