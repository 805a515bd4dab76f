package trovo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/internal/accounts"
	"github.com/memalerts/memalerts-backend/internal/channels"
	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupTrovoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddls := []string{`
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
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  channel_id TEXT NOT NULL,
  balance INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, channel_id)
);`, `
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
);`, `
CREATE TABLE IF NOT EXISTS channel_bot_settings (
  id TEXT PRIMARY KEY,
  channel_id TEXT NOT NULL UNIQUE,
  trovo_mana_coins_per_unit NUMERIC NOT NULL DEFAULT 0,
  trovo_elixir_coins_per_unit NUMERIC NOT NULL DEFAULT 0,
  vkvideo_coins_per_point NUMERIC NOT NULL DEFAULT 0,
  kick_coins_per_sub_month NUMERIC NOT NULL DEFAULT 0,
  twitch_reward_id_for_coins TEXT,
  twitch_coin_per_point_ratio NUMERIC NOT NULL DEFAULT 0,
  twitch_auto_rewards_json TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS account_links (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  provider_account_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (provider, provider_account_id)
);`}
	for _, ddl := range ddls {
		require.NoError(t, db.Exec(ddl).Error)
	}
	for _, table := range []string{
		"external_reward_events", "pending_coin_grants", "wallets",
		"outbox_events", "channel_bot_settings", "account_links",
	} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func newTrovoFixture(t *testing.T) (*Processor, *gorm.DB, accounts.Service) {
	t.Helper()
	db := setupTrovoTestDB(t)

	rewardSvc, err := rewards.NewService(
		rewards.NewEventRepository(db),
		rewards.NewGrantRepository(db),
		rewards.NewWalletRepository(db),
		nil,
		nil,
		nil,
	)
	require.NoError(t, err)

	linkRepo := accounts.NewLinkRepository(db)
	proc, err := NewProcessor(gormTxRunner{db: db}, channels.NewSettingsRepository(db), linkRepo, rewardSvc, nil)
	require.NoError(t, err)

	linkSvc, err := accounts.NewService(gormTxRunner{db: db}, linkRepo, rewardSvc, nil)
	require.NoError(t, err)
	return proc, db, linkSvc
}

func configureManaRate(t *testing.T, db *gorm.DB, channelID uuid.UUID, rate int64) {
	t.Helper()
	require.NoError(t, channels.NewSettingsRepository(db).Upsert(context.Background(), &models.ChannelBotSettings{
		ChannelID:             channelID,
		TrovoManaCoinsPerUnit: decimal.NewFromInt(rate),
	}))
}

func TestProcessChatMessage_EscrowThenLink(t *testing.T) {
	proc, db, linkSvc := newTrovoFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	configureManaRate(t, db, channelID, 10)

	raw := []byte(`{"type":5,"uid":"u1","msg_id":"m1","content":"{\"num\":3}","content_data":"mana boost"}`)
	update := proc.ProcessChatMessage(ctx, channelID, raw)
	assert.Nil(t, update)

	var event models.ExternalRewardEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, enums.CurrencyTrovoMana, event.Currency)
	assert.Equal(t, int64(30), event.CoinsToGrant)
	assert.Equal(t, enums.RewardStatusEligible, event.Status)

	var grant models.PendingCoinGrant
	require.NoError(t, db.First(&grant).Error)
	assert.Equal(t, int64(30), grant.CoinsToGrant)
	assert.Nil(t, grant.ClaimedAt)

	// Linking u1's Trovo account later credits the wallet by exactly 30.
	userID := uuid.New()
	updates, err := linkSvc.LinkAccount(ctx, accounts.LinkInput{
		UserID:            userID,
		Provider:          enums.ProviderTrovo,
		ProviderAccountID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(30), updates[0].Delta)
	assert.Equal(t, int64(30), updates[0].Balance)
	assert.Equal(t, channelID, updates[0].ChannelID)
}

func TestProcessChatMessage_LinkedUserCreditedDirectly(t *testing.T) {
	proc, db, _ := newTrovoFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	configureManaRate(t, db, channelID, 10)

	userID := uuid.New()
	require.NoError(t, accounts.NewLinkRepository(db).Upsert(ctx, &models.AccountLink{
		UserID:            userID,
		Provider:          enums.ProviderTrovo,
		ProviderAccountID: "u1",
	}))

	raw := []byte(`{"type":5,"uid":"u1","msg_id":"m2","content":"{\"num\":2}"}`)
	update := proc.ProcessChatMessage(ctx, channelID, raw)
	require.NotNil(t, update)
	assert.Equal(t, userID, update.UserID)
	assert.Equal(t, int64(20), update.Delta)

	var grantCount int64
	require.NoError(t, db.Model(&models.PendingCoinGrant{}).Count(&grantCount).Error)
	assert.Zero(t, grantCount)
}

func TestProcessChatMessage_Redelivery(t *testing.T) {
	proc, db, _ := newTrovoFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	configureManaRate(t, db, channelID, 10)

	raw := []byte(`{"type":5,"uid":"u1","msg_id":"m1","content":"{\"num\":3}"}`)
	proc.ProcessChatMessage(ctx, channelID, raw)
	proc.ProcessChatMessage(ctx, channelID, raw)

	var eventCount, grantCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	require.NoError(t, db.Model(&models.PendingCoinGrant{}).Count(&grantCount).Error)
	assert.Equal(t, int64(1), eventCount)
	assert.Equal(t, int64(1), grantCount)
}

func TestProcessChatMessage_UnconfiguredChannelIgnored(t *testing.T) {
	proc, db, _ := newTrovoFixture(t)
	ctx := context.Background()

	channelID := uuid.New()

	raw := []byte(`{"type":5,"uid":"u1","msg_id":"m1","content":"{\"num\":3}"}`)
	update := proc.ProcessChatMessage(ctx, channelID, raw)
	assert.Nil(t, update)

	var event models.ExternalRewardEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, enums.RewardStatusIgnored, event.Status)
	require.NotNil(t, event.Reason)
	assert.Equal(t, ReasonSpellUnconfigured, *event.Reason)

	var grantCount int64
	require.NoError(t, db.Model(&models.PendingCoinGrant{}).Count(&grantCount).Error)
	assert.Zero(t, grantCount)
}

func TestProcessChatMessage_MalformedPayloadDoesNotPanic(t *testing.T) {
	proc, db, _ := newTrovoFixture(t)
	ctx := context.Background()

	update := proc.ProcessChatMessage(ctx, uuid.New(), []byte("not-json"))
	assert.Nil(t, update)

	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Zero(t, eventCount)
}

func TestProcessChatMessage_MissingMsgIDUsesStableID(t *testing.T) {
	proc, db, _ := newTrovoFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	configureManaRate(t, db, channelID, 10)

	raw := []byte(`{"type":5,"uid":"u1","content":"{\"num\":1}"}`)
	proc.ProcessChatMessage(ctx, channelID, raw)
	proc.ProcessChatMessage(ctx, channelID, raw)

	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}
