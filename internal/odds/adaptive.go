package odds

import (
	"context"
	"time"
)

// Adaptive picks the exact estimator when the caller's deadline leaves at
// least Threshold, and the fast one otherwise. Without a deadline it always
// uses Exact.
type Adaptive struct {
	Exact     Estimator
	Fast      Estimator
	Threshold time.Duration
}

// Name implements Estimator.
func (a Adaptive) Name() string { return "adaptive" }

// Choose returns the estimator that fits the time left on ctx.
func (a Adaptive) Choose(ctx context.Context) Estimator {
	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) >= a.Threshold {
		return a.Exact
	}
	return a.Fast
}

// Estimate implements Estimator.
func (a Adaptive) Estimate(ctx context.Context, m Matchup) (AggregateResult, error) {
	return a.Choose(ctx).Estimate(ctx, m)
}

// Score is the AI planning view of an estimate: the attacker's win
// probability, or ok=false when the estimator could not produce a usable
// result and the move should be deprioritized.
func Score(ctx context.Context, est Estimator, m Matchup) (float64, bool) {
	res, err := est.Estimate(ctx, m)
	if err != nil || !res.Valid() {
		return 0, false
	}
	return res.AttackerWinPercent, true
}
