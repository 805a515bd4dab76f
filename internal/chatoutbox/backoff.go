package chatoutbox

import (
	"math/rand"
)

// backoffStagesMs is the fixed retry schedule for outbound chat sends.
// Attempts past the table stay anchored to the last stage.
var backoffStagesMs = []int64{2000, 10000, 30000, 120000, 300000}

// jitterSpread is the ±20% band applied around each stage.
const jitterSpread = 0.2

// ComputeBackoffMs returns the delay before retrying the given 1-based
// attempt. Passing a seed makes the jitter deterministic for tests;
// otherwise it draws from the shared source.
func ComputeBackoffMs(attempt int, seed *int64) int64 {
	if attempt < 1 {
		attempt = 1
	}
	idx := attempt - 1
	if idx >= len(backoffStagesMs) {
		idx = len(backoffStagesMs) - 1
	}
	base := backoffStagesMs[idx]

	var r float64
	if seed != nil {
		r = rand.New(rand.NewSource(*seed)).Float64()
	} else {
		r = rand.Float64()
	}
	factor := 1 - jitterSpread + 2*jitterSpread*r
	return int64(float64(base) * factor)
}
