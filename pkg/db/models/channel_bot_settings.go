package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChannelBotSettings holds the per-channel coin conversion configuration for
// the chat-bot reward processors. Rates are stored as numeric so streamers can
// configure fractional coin-per-unit values; conversions floor to whole coins.
type ChannelBotSettings struct {
	ID                      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChannelID               uuid.UUID       `gorm:"column:channel_id;type:uuid;not null;unique"`
	TrovoManaCoinsPerUnit   decimal.Decimal `gorm:"column:trovo_mana_coins_per_unit;type:numeric(12,4);not null;default:0"`
	TrovoElixirCoinsPerUnit decimal.Decimal `gorm:"column:trovo_elixir_coins_per_unit;type:numeric(12,4);not null;default:0"`
	VKVideoCoinsPerPoint    decimal.Decimal `gorm:"column:vkvideo_coins_per_point;type:numeric(12,4);not null;default:0"`
	KickCoinsPerSubMonth    decimal.Decimal `gorm:"column:kick_coins_per_sub_month;type:numeric(12,4);not null;default:0"`
	TwitchRewardIDForCoins  *string         `gorm:"column:twitch_reward_id_for_coins"`
	TwitchCoinPerPointRatio decimal.Decimal `gorm:"column:twitch_coin_per_point_ratio;type:numeric(12,4);not null;default:0"`
	TwitchAutoRewards       json.RawMessage `gorm:"column:twitch_auto_rewards_json;type:jsonb"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (ChannelBotSettings) TableName() string { return "channel_bot_settings" }
