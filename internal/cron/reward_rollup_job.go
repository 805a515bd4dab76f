package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/memalerts/memalerts-backend/internal/rewards"
	"github.com/memalerts/memalerts-backend/pkg/db/models"
	"github.com/memalerts/memalerts-backend/pkg/logger"
)

type RewardRollupJobParams struct {
	Logger  *logger.Logger
	Rollups rewards.RollupRepository
}

// NewRewardRollupJob builds the daily aggregation of credited reward
// events per channel and provider. Re-running for the same day
// overwrites the aggregates rather than double-counting.
func NewRewardRollupJob(params RewardRollupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rollups == nil {
		return nil, fmt.Errorf("rollup repository required")
	}
	return &rewardRollupJob{
		logg:    params.Logger,
		rollups: params.Rollups,
		now:     time.Now,
	}, nil
}

type rewardRollupJob struct {
	logg    *logger.Logger
	rollups rewards.RollupRepository
	now     func() time.Time
}

func (j *rewardRollupJob) Name() string { return "reward-rollup" }

func (j *rewardRollupJob) Run(ctx context.Context) error {
	dayEnd := j.now().UTC().Truncate(24 * time.Hour)
	dayStart := dayEnd.Add(-24 * time.Hour)

	rows, err := j.rollups.AggregateDay(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("reward rollup: %w", err)
	}
	for _, row := range rows {
		rollup := &models.RewardRollup{
			ChannelID:    row.ChannelID,
			Provider:     row.Provider,
			Day:          dayStart,
			EventCount:   row.EventCount,
			CoinsGranted: row.CoinsGranted,
		}
		if err := j.rollups.Upsert(ctx, rollup); err != nil {
			return fmt.Errorf("reward rollup for channel %s: %w", row.ChannelID, err)
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"day":      dayStart.Format("2006-01-02"),
		"channels": len(rows),
	})
	j.logg.Info(logCtx, "reward rollup complete")
	return nil
}
