package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RewardMetrics records ingestion outcomes per provider.
type RewardMetrics struct {
	recorded   *prometheus.CounterVec
	ignored    *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	claimed    *prometheus.CounterVec
	staleGauge prometheus.Gauge
}

// NewRewardMetrics registers the reward pipeline metrics on the provided registerer.
func NewRewardMetrics(reg prometheus.Registerer) *RewardMetrics {
	if reg == nil {
		return &RewardMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_events_recorded",
		Help: "Reward events written to the ledger.",
	}, []string{"provider"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_events_ignored",
		Help: "Reward events recorded with an ignored status.",
	}, []string{"provider", "reason"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_events_duplicate",
		Help: "Re-delivered reward events skipped by the idempotency ledger.",
	}, []string{"provider"})
	claimed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pending_grants_claimed",
		Help: "Escrowed coin grants swept into wallets.",
	}, []string{"provider"})
	staleGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pending_grants_stale",
		Help: "Unclaimed pending grants older than the alert threshold.",
	})
	reg.MustRegister(recorded, ignored, duplicates, claimed, staleGauge)
	return &RewardMetrics{
		recorded:   recorded,
		ignored:    ignored,
		duplicates: duplicates,
		claimed:    claimed,
		staleGauge: staleGauge,
	}
}

// IncRecorded increments the ledger-write counter for the provider.
func (r *RewardMetrics) IncRecorded(provider string) {
	if r == nil || r.recorded == nil {
		return
	}
	r.recorded.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncIgnored increments the ignored counter for the provider/reason pair.
func (r *RewardMetrics) IncIgnored(provider, reason string) {
	if r == nil || r.ignored == nil {
		return
	}
	r.ignored.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

// IncDuplicate increments the duplicate-delivery counter for the provider.
func (r *RewardMetrics) IncDuplicate(provider string) {
	if r == nil || r.duplicates == nil {
		return
	}
	r.duplicates.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncClaimed increments the claimed-grant counter for the provider.
func (r *RewardMetrics) IncClaimed(provider string) {
	if r == nil || r.claimed == nil {
		return
	}
	r.claimed.WithLabelValues(normalizeLabel(provider)).Inc()
}

// SetStaleGrants records the current count of long-unclaimed grants.
func (r *RewardMetrics) SetStaleGrants(count float64) {
	if r == nil || r.staleGauge == nil {
		return
	}
	r.staleGauge.Set(count)
}
