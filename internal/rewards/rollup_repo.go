package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/enums"
)

// DailyRollupRow is one channel/provider aggregate for a single day.
type DailyRollupRow struct {
	ChannelID    uuid.UUID      `gorm:"column:channel_id"`
	Provider     enums.Provider `gorm:"column:provider"`
	EventCount   int64          `gorm:"column:event_count"`
	CoinsGranted int64          `gorm:"column:coins_granted"`
}

// RollupRepository aggregates claimed reward events into daily rollups.
type RollupRepository interface {
	AggregateDay(ctx context.Context, dayStart, dayEnd time.Time) ([]DailyRollupRow, error)
	Upsert(ctx context.Context, rollup *models.RewardRollup) error
}

type rollupRepository struct {
	db *gorm.DB
}

func NewRollupRepository(db *gorm.DB) RollupRepository {
	return &rollupRepository{db: db}
}

// AggregateDay sums credited events in [dayStart, dayEnd). Only claimed
// rows count: those are the events whose coins actually reached a
// wallet.
func (r *rollupRepository) AggregateDay(ctx context.Context, dayStart, dayEnd time.Time) ([]DailyRollupRow, error) {
	var rows []DailyRollupRow
	err := r.db.WithContext(ctx).
		Model(&models.ExternalRewardEvent{}).
		Select("channel_id, provider, COUNT(*) AS event_count, COALESCE(SUM(coins_to_grant), 0) AS coins_granted").
		Where("status = ? AND created_at >= ? AND created_at < ?", enums.RewardStatusClaimed, dayStart, dayEnd).
		Group("channel_id, provider").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating reward rollup: %w", err)
	}
	return rows, nil
}

// Upsert writes a rollup row, replacing the aggregates when the
// composite day key already exists so re-runs are idempotent.
func (r *rollupRepository) Upsert(ctx context.Context, rollup *models.RewardRollup) error {
	if rollup.ID == uuid.Nil {
		rollup.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "provider"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"event_count", "coins_granted", "updated_at"}),
		}).
		Create(rollup).Error
	if err != nil {
		return fmt.Errorf("upserting reward rollup: %w", err)
	}
	return nil
}
