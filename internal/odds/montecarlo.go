package odds

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/dice"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

const monteCarloName = "monte_carlo"

// Options tunes a MonteCarlo estimator.
type Options struct {
	// RunCount is the number of iterations Estimate fights.
	RunCount int
	// Workers defaults to GOMAXPROCS and never exceeds the run count.
	Workers int
	// MaxRounds overrides the ruleset's round limit when positive.
	MaxRounds int
	// Progress, when set, receives a snapshot every ProgressEvery finished
	// iterations. It may be called from several goroutines at once.
	ProgressEvery int
	Progress      func(AggregateResult)
	// Retreat defaults to battle.NeverRetreat.
	Retreat battle.RetreatPolicy
}

// MonteCarlo estimates odds by fighting independent simulated battles.
type MonteCarlo struct {
	rules  *rules.Ruleset
	opts   Options
	logger zerolog.Logger
}

// NewMonteCarlo creates an estimator over the given ruleset.
func NewMonteCarlo(rs *rules.Ruleset, opts Options, logger zerolog.Logger) *MonteCarlo {
	return &MonteCarlo{
		rules:  rs,
		opts:   opts,
		logger: logger.With().Str("component", "monte_carlo").Logger(),
	}
}

// Name implements Estimator.
func (mc *MonteCarlo) Name() string { return monteCarloName }

// Estimate implements Estimator using the configured run count.
func (mc *MonteCarlo) Estimate(ctx context.Context, m Matchup) (AggregateResult, error) {
	return mc.Run(ctx, m, mc.opts.RunCount)
}

// Run fights runCount simulated battles and aggregates their outcomes.
// Cancelling ctx stops new iterations from starting; the result then covers
// the finished iterations and is marked Partial. Failed iterations are
// counted as skipped.
func (mc *MonteCarlo) Run(ctx context.Context, m Matchup, runCount int) (AggregateResult, error) {
	if runCount < 0 {
		return AggregateResult{}, fmt.Errorf("%w: negative run count %d", ErrInvalidConfig, runCount)
	}
	if mc.rules == nil {
		return AggregateResult{}, fmt.Errorf("%w: no ruleset", ErrInvalidConfig)
	}
	if mc.rules.DiceSides <= 0 {
		return AggregateResult{}, fmt.Errorf("%w: dice sides must be positive, got %d", ErrInvalidConfig, mc.rules.DiceSides)
	}
	if runCount == 0 {
		return AggregateResult{Winner: battle.Draw, Estimator: monteCarloName}, nil
	}

	start := time.Now()
	workers := mc.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > runCount {
		workers = runCount
	}

	col := NewCollector()
	var next, finished atomic.Int64

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			src := dice.NewFast()
			for {
				if ctx.Err() != nil {
					return nil
				}
				i := int(next.Add(1))
				if i > runCount {
					return nil
				}

				out, err := mc.iterate(ctx, m, src, i)
				if err != nil {
					col.Skip()
					mc.logger.Debug().Err(err).Int("iteration", i).Msg("Skipping failed iteration")
				} else {
					col.Record(out)
				}

				n := finished.Add(1)
				if mc.opts.Progress != nil && mc.opts.ProgressEvery > 0 && n%int64(mc.opts.ProgressEvery) == 0 {
					snap := col.Finalize()
					snap.Estimator = monteCarloName
					snap.Partial = true
					mc.opts.Progress(snap)
				}
			}
		})
	}
	_ = g.Wait()

	res := col.Finalize()
	res.Estimator = monteCarloName
	res.Elapsed = time.Since(start)
	res.Partial = col.Count() < runCount

	mc.logger.Debug().
		Int("requested", runCount).
		Int("runs", res.RunCount).
		Int("skipped", res.Skipped).
		Bool("partial", res.Partial).
		Dur("elapsed", res.Elapsed).
		Msg("Monte-Carlo estimate finished")

	if res.RunCount == 0 && !res.Partial {
		return res, fmt.Errorf("%w: all %d iterations failed", ErrNoValidOutcome, res.Skipped)
	}
	return res, nil
}

// iterate fights one battle on deep copies of the matchup groups.
func (mc *MonteCarlo) iterate(ctx context.Context, m Matchup, src dice.Source, i int) (out battle.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration %d panicked: %v", i, r)
		}
	}()

	b, err := battle.New(battle.Config{
		ID:                 fmt.Sprintf("mc-%d", i),
		Location:           m.Location,
		Attacker:           m.Attacker.Clone(),
		Defender:           m.Defender.Clone(),
		Bombarding:         m.Bombarding.Clone(),
		Rules:              mc.rules,
		Territory:          m.Territory,
		Dice:               src,
		AttackerCasualties: m.AttackerLosses(),
		DefenderCasualties: m.DefenderLosses(),
		Retreat:            mc.opts.Retreat,
		Amphibious:         m.Amphibious,
		MaxRounds:          mc.opts.MaxRounds,
		Simulation:         true,
		Logger:             mc.logger,
	})
	if err != nil {
		return battle.Outcome{}, err
	}
	return b.Fight(ctx)
}
