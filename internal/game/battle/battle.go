// Package battle resolves a single battle by interpreting a stack of tagged
// steps. Each step may push follow-on steps, suspend for player input or
// produce the outcome.
package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/wargame/internal/game/casualty"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/dice"
	"github.com/mitchelldurbincs/wargame/internal/game/events"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

var (
	ErrStackExhausted    = errors.New("execution stack exhausted without an outcome")
	ErrSuspended         = errors.New("battle suspended awaiting input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidConfig     = errors.New("invalid battle config")
)

// Config holds everything a battle needs. The battle keeps its own slices
// but fights the given units in place, so damage and round flags land on
// them. Clone the groups first when they must stay untouched.
type Config struct {
	// ID defaults to a random UUID.
	ID       string
	Location string

	Attacker   core.UnitGroup
	Defender   core.UnitGroup
	Bombarding core.UnitGroup

	Rules     *rules.Ruleset
	Territory rules.Territory
	Dice      dice.Source

	// Casualty policies default to casualty.CheapestFirst.
	AttackerCasualties casualty.Policy
	DefenderCasualties casualty.Policy
	// Retreat defaults to NeverRetreat.
	Retreat RetreatPolicy
	// Amphibious attackers landed from the sea: the attacker cannot retreat
	// while any of its land units are alive.
	Amphibious bool

	// MaxRounds defaults to Rules.MaxRounds.
	MaxRounds int
	// Simulation battles may never suspend.
	Simulation bool

	Events events.Publisher
	Logger zerolog.Logger
}

// Battle is one battle being resolved. It is driven by a single goroutine.
type Battle struct {
	id  string
	cfg Config

	groups     [2]core.UnitGroup
	aside      [2]core.UnitGroup
	submerged  [2]core.UnitGroup
	initialTUV [2]int

	pending [2][]loss

	stack    Stack
	round    int
	status   Status
	history  []Transition
	outcome  *Outcome
	err      error
	awaiting *casualty.Request
	started  time.Time

	logger zerolog.Logger
}

// New validates cfg and builds a pending battle.
func New(cfg Config) (*Battle, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("%w: no ruleset", ErrInvalidConfig)
	}
	if cfg.Dice == nil {
		return nil, fmt.Errorf("%w: no dice source", ErrInvalidConfig)
	}
	if cfg.Rules.DiceSides <= 0 {
		return nil, fmt.Errorf("%w: dice sides must be positive", ErrInvalidConfig)
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = cfg.Rules.MaxRounds
	}
	if cfg.MaxRounds <= 0 {
		return nil, fmt.Errorf("%w: max rounds must be positive", ErrInvalidConfig)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.AttackerCasualties == nil {
		cfg.AttackerCasualties = casualty.CheapestFirst{}
	}
	if cfg.DefenderCasualties == nil {
		cfg.DefenderCasualties = casualty.CheapestFirst{}
	}
	if cfg.Retreat == nil {
		cfg.Retreat = NeverRetreat{}
	}

	b := &Battle{
		id:     cfg.ID,
		cfg:    cfg,
		status: StatusPending,
		logger: cfg.Logger.With().
			Str("component", "battle").
			Str("battle_id", cfg.ID).
			Logger(),
	}
	b.groups[core.Attacker] = append(core.UnitGroup(nil), cfg.Attacker...)
	b.groups[core.Defender] = append(core.UnitGroup(nil), cfg.Defender...)
	b.initialTUV[core.Attacker] = cfg.Attacker.TUV()
	b.initialTUV[core.Defender] = cfg.Defender.TUV()
	return b, nil
}

// ID returns the battle ID.
func (b *Battle) ID() string { return b.id }

// Status returns the current lifecycle status.
func (b *Battle) Status() Status { return b.status }

// Round returns the current round, starting at 1 once fighting begins.
func (b *Battle) Round() int { return b.round }

// History returns a copy of the status transitions so far.
func (b *Battle) History() []Transition {
	return append([]Transition(nil), b.history...)
}

// Pending returns the pending steps, next step first.
func (b *Battle) Pending() []Step { return b.stack.Snapshot() }

// Awaiting returns the casualty request a suspended battle is waiting on.
func (b *Battle) Awaiting() (casualty.Request, bool) {
	if b.awaiting == nil {
		return casualty.Request{}, false
	}
	return *b.awaiting, true
}

// Group returns the units of a side still in the fight.
func (b *Battle) Group(side core.Side) core.UnitGroup {
	return append(core.UnitGroup(nil), b.groups[side]...)
}

// Outcome returns the outcome once the battle has ended.
func (b *Battle) Outcome() (Outcome, bool) {
	if b.outcome == nil {
		return Outcome{}, false
	}
	return *b.outcome, true
}

// Fight drives the execution stack until the battle ends or suspends. A
// suspended battle returns ErrSuspended; calling Fight again resumes it
// without re-rolling any dice. Fighting an ended battle returns its outcome.
func (b *Battle) Fight(ctx context.Context) (Outcome, error) {
	switch b.status {
	case StatusEnded:
		return *b.outcome, nil
	case StatusFailed:
		return Outcome{}, b.err
	case StatusPending:
		if err := b.transition(StatusFighting, "battle started"); err != nil {
			return Outcome{}, err
		}
		b.start()
	case StatusAwaitingInput:
		if err := b.transition(StatusFighting, "input received"); err != nil {
			return Outcome{}, err
		}
		b.awaiting = nil
	}

	for {
		step, ok := b.stack.Pop()
		if !ok {
			return Outcome{}, b.fail(fmt.Errorf("%w: round %d", ErrStackExhausted, b.round))
		}
		if !b.applicable(step) {
			b.trace().Str("step", step.String()).Msg("Discarding inapplicable step")
			continue
		}
		b.trace().Str("step", step.String()).Msg("Executing step")

		err := b.execute(ctx, step)
		if errors.Is(err, ErrSuspended) {
			return Outcome{}, err
		}
		if err != nil {
			return Outcome{}, b.fail(fmt.Errorf("%s: %w", step.Kind, err))
		}
		if b.outcome != nil {
			b.finish()
			return *b.outcome, nil
		}
	}
}

func (b *Battle) start() {
	b.started = time.Now()
	b.round = 1

	att, def := b.groups[core.Attacker], b.groups[core.Defender]
	b.info().
		Str("location", b.cfg.Location).
		Str("attacker", att.String()).
		Str("defender", def.String()).
		Int("max_rounds", b.cfg.MaxRounds).
		Msg("Battle started")
	b.publish(events.NewBattleStartedEvent(b.id, b.cfg.Location, att.String(), def.String(), att.TUV(), def.TUV()))
	b.publish(events.NewRoundStartedEvent(b.id, b.round))

	b.stack.PushAll(roundSteps(b.round)...)
}

func (b *Battle) finish() {
	o := b.outcome
	cancelled := 0
	for _, s := range b.stack.Snapshot() {
		cancelled += b.stack.Remove(s.Kind)
	}
	if err := b.transition(StatusEnded, o.Winner.String()); err != nil {
		b.logger.Error().Err(err).Msg("Failed to mark battle ended")
	}
	b.info().
		Str("winner", o.Winner.String()).
		Int("rounds", o.Rounds).
		Bool("retreated", o.Retreated).
		Bool("stalemate", o.Stalemate).
		Int("tuv_swing", o.TUVSwing()).
		Int("cancelled_steps", cancelled).
		Msg("Battle ended")
	b.publish(events.NewBattleEndedEvent(b.id, o.Winner.String(), o.Rounds,
		o.AttackerRemaining.String(), o.DefenderRemaining.String(), time.Since(b.started)))
}

func (b *Battle) fail(err error) error {
	b.err = err
	if b.status.CanTransitionTo(StatusFailed) {
		_ = b.transition(StatusFailed, err.Error())
	}
	b.logger.Error().Err(err).Int("round", b.round).Msg("Battle failed")
	return err
}

func (b *Battle) transition(to Status, reason string) error {
	if !b.status.CanTransitionTo(to) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, b.status, to)
	}
	from := b.status
	b.status = to
	b.history = append(b.history, Transition{From: from, To: to, Timestamp: time.Now(), Reason: reason})
	b.publish(events.NewStatusTransitionEvent(b.id, from.String(), to.String(), reason))
	return nil
}

// setOutcome records the terminal result.
func (b *Battle) setOutcome(w Winner, retreated, stalemate bool) {
	remaining := func(side core.Side) core.UnitGroup {
		var g core.UnitGroup
		g = append(g, b.groups[side]...)
		g = append(g, b.submerged[side]...)
		g = append(g, b.aside[side]...)
		return g.SortedByID()
	}
	att, def := remaining(core.Attacker), remaining(core.Defender)
	b.outcome = &Outcome{
		BattleID:          b.id,
		Winner:            w,
		Rounds:            b.round,
		AttackerRemaining: att,
		DefenderRemaining: def,
		AttackerTUVLost:   b.initialTUV[core.Attacker] - att.TUV(),
		DefenderTUVLost:   b.initialTUV[core.Defender] - def.TUV(),
		Retreated:         retreated,
		Stalemate:         stalemate,
	}
}

func (b *Battle) publish(e events.Event) {
	if b.cfg.Events != nil {
		b.cfg.Events.Publish(e)
	}
}

// info logs battle milestones; simulated battles only log them at debug.
func (b *Battle) info() *zerolog.Event {
	if b.cfg.Simulation {
		return b.logger.Debug()
	}
	return b.logger.Info()
}

func (b *Battle) trace() *zerolog.Event {
	return b.logger.Trace().Int("round", b.round)
}
