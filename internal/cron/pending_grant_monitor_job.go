package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/memalerts/memalerts-backend/pkg/logger"
	"github.com/memalerts/memalerts-backend/pkg/metrics"
)

const defaultStaleGrantAge = 90 * 24 * time.Hour

type PendingGrantMonitorJobParams struct {
	Logger   *logger.Logger
	Grants   unclaimedGrantCounter
	Metrics  *metrics.RewardMetrics
	StaleAge time.Duration
}

type unclaimedGrantCounter interface {
	CountUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewPendingGrantMonitorJob builds the escrow health monitor. Grants
// are never expired or deleted; the job only surfaces how many have
// sat unclaimed past the stale age so operators can investigate.
func NewPendingGrantMonitorJob(params PendingGrantMonitorJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Grants == nil {
		return nil, fmt.Errorf("grant repository required")
	}
	staleAge := params.StaleAge
	if staleAge <= 0 {
		staleAge = defaultStaleGrantAge
	}
	return &pendingGrantMonitorJob{
		logg:     params.Logger,
		grants:   params.Grants,
		metrics:  params.Metrics,
		staleAge: staleAge,
		now:      time.Now,
	}, nil
}

type pendingGrantMonitorJob struct {
	logg     *logger.Logger
	grants   unclaimedGrantCounter
	metrics  *metrics.RewardMetrics
	staleAge time.Duration
	now      func() time.Time
}

func (j *pendingGrantMonitorJob) Name() string { return "pending-grant-monitor" }

func (j *pendingGrantMonitorJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAge)
	stale, err := j.grants.CountUnclaimedOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pending grant monitor: %w", err)
	}
	j.metrics.SetStaleGrants(float64(stale))

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"stale_grants": stale,
	})
	if stale > 0 {
		j.logg.Warn(logCtx, "unclaimed coin grants past stale age")
	} else {
		j.logg.Info(logCtx, "no stale pending coin grants")
	}
	return nil
}
