// Package calculator is the odds calculator tool: it turns a request naming
// unit types and counts into a matchup, runs the requested estimator and
// reports a "could not compute" state instead of failing when no valid
// outcome can be produced.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
	"github.com/mitchelldurbincs/wargame/internal/monitoring"
	"github.com/mitchelldurbincs/wargame/internal/odds"
)

// ErrBadRequest marks requests that can never be computed as given.
var ErrBadRequest = errors.New("bad odds request")

const tracerName = "github.com/mitchelldurbincs/wargame/internal/calculator"

// Options are the service defaults and limits.
type Options struct {
	RunCount      int
	MaxRunCount   int
	Workers       int
	ProgressEvery int
	Exponent      float64
	// ExactThreshold is the time budget below which adaptive requests use
	// the Lanchester approximation.
	ExactThreshold time.Duration
	// Timeout bounds a request that does not set its own.
	Timeout time.Duration
}

// Service runs odds calculations against one ruleset.
type Service struct {
	rules  *rules.Ruleset
	opts   Options
	cache  odds.Cache
	stats  *monitoring.EstimatorStats
	track  Tracker
	tracer trace.Tracer
	logger zerolog.Logger
}

// New creates a service. cache and stats may be nil.
func New(rs *rules.Ruleset, opts Options, cache odds.Cache, stats *monitoring.EstimatorStats, logger zerolog.Logger) (*Service, error) {
	if rs == nil {
		return nil, fmt.Errorf("%w: no ruleset", odds.ErrInvalidConfig)
	}
	if opts.RunCount <= 0 {
		opts.RunCount = 200
	}
	if opts.MaxRunCount < opts.RunCount {
		opts.MaxRunCount = opts.RunCount
	}
	if opts.Exponent == 0 {
		opts.Exponent = 1.5
	}
	if _, err := odds.NewLanchester(rs, opts.Exponent); err != nil {
		return nil, err
	}
	if stats == nil {
		stats = monitoring.NewEstimatorStats()
	}
	return &Service{
		rules:  rs,
		opts:   opts,
		cache:  cache,
		stats:  stats,
		tracer: otel.Tracer(tracerName),
		logger: logger.With().Str("component", "calculator").Logger(),
	}, nil
}

// Tracker accounts for goroutines a calculation starts.
type Tracker interface {
	Track(group string, n int) (release func())
}

// TrackGoroutines reports each running estimator's workers to t. Call it
// before serving requests.
func (s *Service) TrackGoroutines(t Tracker) { s.track = t }

// workers is how many goroutines the named estimator starts for runs.
func (s *Service) workers(name string, runs int) int {
	if name != "monte_carlo" {
		return 0
	}
	n := s.opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return min(n, runs)
}

// Rules returns the ruleset the service calculates with.
func (s *Service) Rules() *rules.Ruleset { return s.rules }

// Stats returns the per-estimator counters.
func (s *Service) Stats() []monitoring.EstimatorSnapshot { return s.stats.Snapshot() }

// Report returns the counters together with how long they have been
// collected.
func (s *Service) Report() Stats {
	return Stats{
		UptimeSeconds: time.Since(s.stats.Since()).Seconds(),
		Estimators:    s.stats.Snapshot(),
	}
}

// Matchup builds fresh unit groups for a request.
func (s *Service) Matchup(req Request) (odds.Matchup, error) {
	factory := core.NewUnitFactory()

	att, err := s.rules.Group(factory, "attacker", req.Attacker)
	if err != nil {
		return odds.Matchup{}, fmt.Errorf("%w: attacker: %v", ErrBadRequest, err)
	}
	def, err := s.rules.Group(factory, "defender", req.Defender)
	if err != nil {
		return odds.Matchup{}, fmt.Errorf("%w: defender: %v", ErrBadRequest, err)
	}
	bomb, err := s.rules.Group(factory, "attacker", req.Bombarding)
	if err != nil {
		return odds.Matchup{}, fmt.Errorf("%w: bombarding: %v", ErrBadRequest, err)
	}
	if att.Empty() || def.Empty() {
		return odds.Matchup{}, fmt.Errorf("%w: both sides need units", ErrBadRequest)
	}
	terr, err := s.rules.Territory(req.Location, req.Water, req.Effects...)
	if err != nil {
		return odds.Matchup{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	for _, o := range []struct {
		side  string
		order []string
	}{{"attacker", req.AttackerOrder}, {"defender", req.DefenderOrder}} {
		for _, name := range o.order {
			if _, err := s.rules.UnitType(name); err != nil {
				return odds.Matchup{}, fmt.Errorf("%w: %s order of losses: %v", ErrBadRequest, o.side, err)
			}
		}
	}

	return odds.Matchup{
		Location:                 req.Location,
		Attacker:                 att,
		Defender:                 def,
		Bombarding:               bomb,
		Territory:                terr,
		AttackerOrder:            req.AttackerOrder,
		DefenderOrder:            req.DefenderOrder,
		KeepOneAttackingLandUnit: req.KeepOneAttackingLandUnit,
		Amphibious:               req.Amphibious,
	}, nil
}

// Calculate runs one request. Bad input returns an error wrapping
// ErrBadRequest; an estimator that cannot produce an outcome yields a
// StatusCouldNotCompute response instead. progress, when set, receives
// Monte-Carlo snapshots and disables caching.
func (s *Service) Calculate(ctx context.Context, req Request, progress func(odds.AggregateResult)) (Response, error) {
	ctx, span := s.tracer.Start(ctx, "calculator.Calculate", trace.WithAttributes(
		attribute.String("estimator.requested", req.Estimator),
		attribute.String("location", req.Location),
		attribute.Int("run_count.requested", req.RunCount),
	))
	defer span.End()

	resp, err := s.calculate(ctx, req, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	span.SetAttributes(attribute.String("status", string(resp.Status)))
	if resp.Result != nil {
		span.SetAttributes(
			attribute.String("estimator", resp.Estimator),
			attribute.Int("run_count", resp.Result.RunCount),
			attribute.Float64("attacker_win_percent", resp.Result.AttackerWinPercent),
			attribute.Bool("cached", resp.Result.Cached),
		)
	}
	return resp, nil
}

func (s *Service) calculate(ctx context.Context, req Request, progress func(odds.AggregateResult)) (Response, error) {
	m, err := s.Matchup(req)
	if err != nil {
		return Response{}, err
	}

	runCount := req.RunCount
	if runCount == 0 {
		runCount = s.opts.RunCount
	}
	if runCount < 0 || runCount > s.opts.MaxRunCount {
		return Response{}, fmt.Errorf("%w: run count must be between 1 and %d, got %d", ErrBadRequest, s.opts.MaxRunCount, runCount)
	}
	if req.MaxRounds < 0 {
		return Response{}, fmt.Errorf("%w: max rounds must not be negative", ErrBadRequest)
	}

	timeout := s.opts.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	est, err := s.estimator(ctx, req, runCount, progress)
	if err != nil {
		return Response{}, err
	}

	if s.track != nil {
		defer s.track.Track(est.Name(), s.workers(est.Name(), runCount))()
	}
	start := time.Now()
	res, err := est.Estimate(ctx, m)
	s.stats.Observe(monitoring.Observation{
		Estimator: est.Name(),
		Runs:      res.RunCount,
		Elapsed:   time.Since(start),
		Failed:    err != nil || !res.Valid(),
		Partial:   res.Partial,
		CacheHit:  res.Cached,
	})

	log := s.logger.With().
		Str("estimator", est.Name()).
		Str("attacker", m.Attacker.String()).
		Str("defender", m.Defender.String()).
		Logger()

	if errors.Is(err, odds.ErrInvalidConfig) {
		return Response{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Could not compute odds")
		return Response{Status: StatusCouldNotCompute, Estimator: est.Name(), Reason: err.Error()}, nil
	}
	if !res.Valid() {
		log.Warn().Bool("partial", res.Partial).Msg("Could not compute odds")
		return Response{Status: StatusCouldNotCompute, Estimator: est.Name(), Reason: "no battle outcome was produced in time"}, nil
	}

	status := StatusOK
	if res.Partial {
		status = StatusPartial
	}
	log.Info().
		Int("runs", res.RunCount).
		Float64("attacker_win", res.AttackerWinPercent).
		Bool("cached", res.Cached).
		Dur("elapsed", time.Since(start)).
		Msg("Odds calculated")

	return Response{Status: status, Estimator: res.Estimator, Result: &res}, nil
}

func (s *Service) estimator(ctx context.Context, req Request, runCount int, progress func(odds.AggregateResult)) (odds.Estimator, error) {
	exponent := req.Exponent
	if exponent == 0 {
		exponent = s.opts.Exponent
	}
	fast, err := odds.NewLanchester(s.rules, exponent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	policy := retreatPolicy(req.Retreat)
	exact := odds.NewMonteCarlo(s.rules, odds.Options{
		RunCount:      runCount,
		Workers:       s.opts.Workers,
		MaxRounds:     req.MaxRounds,
		ProgressEvery: s.opts.ProgressEvery,
		Progress:      progress,
		Retreat:       policy,
	}, s.logger)

	var exactEst, fastEst odds.Estimator = exact, fast
	if s.cache != nil && progress == nil {
		exactEst = odds.CachedEstimator{
			Inner:   exact,
			Cache:   s.cache,
			Variant: fmt.Sprintf("%s/runs=%d/rounds=%d/retreat=%s", s.rules.Name, runCount, req.MaxRounds, retreatKey(req.Retreat)),
			Logger:  s.logger,
		}
		fastEst = odds.CachedEstimator{
			Inner:   fast,
			Cache:   s.cache,
			Variant: fmt.Sprintf("%s/e=%g", s.rules.Name, exponent),
			Logger:  s.logger,
		}
	}

	switch req.Estimator {
	case "", "monte_carlo":
		return exactEst, nil
	case "lanchester":
		return fastEst, nil
	case "adaptive":
		a := odds.Adaptive{Exact: exactEst, Fast: fastEst, Threshold: s.opts.ExactThreshold}
		return a.Choose(ctx), nil
	default:
		return nil, fmt.Errorf("%w: unknown estimator %q", ErrBadRequest, req.Estimator)
	}
}

func retreatPolicy(r *Retreat) battle.RetreatPolicy {
	if r == nil {
		return nil
	}
	var policies battle.AnyRetreat
	if r.AfterRound > 0 {
		policies = append(policies, battle.RetreatAfterRound{Round: r.AfterRound})
	}
	if r.UnitsLeft > 0 {
		policies = append(policies, battle.RetreatWhenUnitsLeft{Units: r.UnitsLeft})
	}
	if r.OnlyAirLeft {
		policies = append(policies, battle.RetreatWhenOnlyAirLeft{})
	}
	if r.WhenOutnumbered > 0 {
		policies = append(policies, battle.RetreatWhenOutnumbered{Ratio: r.WhenOutnumbered})
	}
	if len(policies) == 0 {
		return nil
	}
	return policies
}

func retreatKey(r *Retreat) string {
	if r == nil {
		return "none"
	}
	return fmt.Sprintf("%d,%d,%t,%g", r.AfterRound, r.UnitsLeft, r.OnlyAirLeft, r.WhenOutnumbered)
}
