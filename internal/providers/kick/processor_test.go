package kick

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

func setupKickTestDB(t *testing.T) *gorm.DB {
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
		"channel_bot_settings", "account_links",
	} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func newKickFixture(t *testing.T) (*Processor, *gorm.DB) {
	t.Helper()
	db := setupKickTestDB(t)

	rewardSvc, err := rewards.NewService(
		rewards.NewEventRepository(db),
		rewards.NewGrantRepository(db),
		rewards.NewWalletRepository(db),
		nil,
		nil,
		nil,
	)
	require.NoError(t, err)

	proc, err := NewProcessor(
		gormTxRunner{db: db},
		channels.NewSettingsRepository(db),
		accounts.NewLinkRepository(db),
		rewardSvc,
		nil,
	)
	require.NoError(t, err)
	return proc, db
}

func TestProcessSubscription_GifterEscrowedAndRedeliveryDeduped(t *testing.T) {
	proc, db := newKickFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	require.NoError(t, channels.NewSettingsRepository(db).Upsert(ctx, &models.ChannelBotSettings{
		ChannelID:            channelID,
		KickCoinsPerSubMonth: decimal.NewFromInt(10),
	}))

	raw := []byte(`{"type":"channel.subscription.gifts","id":"gift-1","subscriber":{"user_id":"gifter-1"},"months":1,"quantity":3}`)
	update := proc.ProcessSubscription(ctx, channelID, raw)
	assert.Nil(t, update, "unlinked gifter escrows")

	var grant models.PendingCoinGrant
	require.NoError(t, db.First(&grant).Error)
	assert.Equal(t, int64(30), grant.CoinsToGrant)
	assert.Equal(t, enums.ProviderKick, grant.Provider)

	proc.ProcessSubscription(ctx, channelID, raw)
	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestProcessSubscription_LinkedSubscriberCredited(t *testing.T) {
	proc, db := newKickFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	require.NoError(t, channels.NewSettingsRepository(db).Upsert(ctx, &models.ChannelBotSettings{
		ChannelID:            channelID,
		KickCoinsPerSubMonth: decimal.NewFromInt(25),
	}))

	userID := uuid.New()
	require.NoError(t, accounts.NewLinkRepository(db).Upsert(ctx, &models.AccountLink{
		UserID:            userID,
		Provider:          enums.ProviderKick,
		ProviderAccountID: "kick-1",
	}))

	raw := []byte(`{"type":"channel.subscription.new","id":"sub-9","subscriber":{"user_id":"kick-1"},"months":1}`)
	update := proc.ProcessSubscription(ctx, channelID, raw)
	require.NotNil(t, update)
	assert.Equal(t, userID, update.UserID)
	assert.Equal(t, int64(25), update.Delta)
	assert.Equal(t, int64(25), update.Balance)
}

func TestProcessSubscription_MissingEventIDUsesStableID(t *testing.T) {
	proc, db := newKickFixture(t)
	ctx := context.Background()

	channelID := uuid.New()
	require.NoError(t, channels.NewSettingsRepository(db).Upsert(ctx, &models.ChannelBotSettings{
		ChannelID:            channelID,
		KickCoinsPerSubMonth: decimal.NewFromInt(10),
	}))

	raw := []byte(`{"type":"channel.subscription.new","subscriber":{"user_id":"kick-1"},"months":1}`)
	proc.ProcessSubscription(ctx, channelID, raw)
	proc.ProcessSubscription(ctx, channelID, raw)

	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount, "identical payload derives the same stable id")
}

func TestProcessSubscription_MalformedPayloadDoesNotPanic(t *testing.T) {
	proc, db := newKickFixture(t)

	update := proc.ProcessSubscription(context.Background(), uuid.New(), []byte(`{"type":`))
	assert.Nil(t, update)

	var eventCount int64
	require.NoError(t, db.Model(&models.ExternalRewardEvent{}).Count(&eventCount).Error)
	assert.Zero(t, eventCount)
}
