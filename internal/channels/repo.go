package channels

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
)

// SettingsRepository manages per-channel bot reward configuration.
type SettingsRepository interface {
	WithTx(tx *gorm.DB) SettingsRepository
	GetByChannelID(ctx context.Context, channelID uuid.UUID) (*models.ChannelBotSettings, error)
	Upsert(ctx context.Context, settings *models.ChannelBotSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository returns a settings repository bound to the provided database.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) WithTx(tx *gorm.DB) SettingsRepository {
	if tx == nil {
		return r
	}
	return &settingsRepository{db: tx}
}

// GetByChannelID returns nil (not an error) when a channel has no settings
// row yet; callers treat that as an unconfigured channel.
func (r *settingsRepository) GetByChannelID(ctx context.Context, channelID uuid.UUID) (*models.ChannelBotSettings, error) {
	var settings models.ChannelBotSettings
	err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *models.ChannelBotSettings) error {
	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"trovo_mana_coins_per_unit",
				"trovo_elixir_coins_per_unit",
				"vkvideo_coins_per_point",
				"kick_coins_per_sub_month",
				"twitch_reward_id_for_coins",
				"twitch_coin_per_point_ratio",
				"twitch_auto_rewards_json",
				"updated_at",
			}),
		}).
		Create(settings).Error
}
