package channels

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
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
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM channel_bot_settings").Error)
	return db
}

func TestSettingsRepositoryUpsertAndGet(t *testing.T) {
	db := setupSettingsTestDB(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	channelID := uuid.New()

	missing, err := repo.GetByChannelID(ctx, channelID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	settings := &models.ChannelBotSettings{
		ChannelID:             channelID,
		TrovoManaCoinsPerUnit: decimal.NewFromInt(10),
		VKVideoCoinsPerPoint:  decimal.NewFromFloat(0.5),
	}
	require.NoError(t, repo.Upsert(ctx, settings))

	got, err := repo.GetByChannelID(ctx, channelID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TrovoManaCoinsPerUnit.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.VKVideoCoinsPerPoint.Equal(decimal.NewFromFloat(0.5)))

	// Second upsert for the same channel updates in place.
	settings.TrovoManaCoinsPerUnit = decimal.NewFromInt(25)
	require.NoError(t, repo.Upsert(ctx, settings))

	var count int64
	require.NoError(t, db.Model(&models.ChannelBotSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err = repo.GetByChannelID(ctx, channelID)
	require.NoError(t, err)
	assert.True(t, got.TrovoManaCoinsPerUnit.Equal(decimal.NewFromInt(25)))
}
