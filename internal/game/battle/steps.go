package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/wargame/internal/game/casualty"
	"github.com/mitchelldurbincs/wargame/internal/game/combat"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/dice"
	"github.com/mitchelldurbincs/wargame/internal/game/events"
)

var bothSides = [2]core.Side{core.Attacker, core.Defender}

// applicable is the per-kind predicate deciding whether a popped step still
// has anything to do. Inapplicable steps are discarded silently.
func (b *Battle) applicable(s Step) bool {
	switch s.Kind {
	case StepAAFire:
		return b.groups[s.Side].Any(func(u *core.Unit) bool { return u.Type.IsAA }) &&
			len(combat.AATargets(b.groups[s.Side.Opponent()])) > 0
	case StepBombard:
		return len(b.cfg.Bombarding) > 0 && len(b.groups[core.Defender].Combatants()) > 0
	case StepFirstStrike, StepStandardFire:
		return len(b.groups[s.Side].Combatants()) > 0 && len(b.groups[s.Side.Opponent()].Combatants()) > 0
	case StepClearAACasualties, StepClearFirstStrikeCasualties, StepClearCasualties:
		for _, side := range bothSides {
			for _, l := range b.pending[side] {
				if clears(s.Kind, l.class) {
					return true
				}
			}
		}
		return false
	case StepRemoveNonCombatants:
		return b.groups[core.Attacker].Any(b.setAside) || b.groups[core.Defender].Any(b.setAside)
	case StepSubmergeVsAir:
		return b.cfg.Rules.Flags.SubmersibleSubs
	case StepRemoveSubmerged:
		return len(s.Units) > 0
	case StepSelectCasualties:
		return s.Hits > 0 && len(s.Targets) > 0
	case StepRemoveSuicide:
		return b.groups[core.Attacker].Any(spent) || b.groups[core.Defender].Any(spent)
	case StepRetreatCheck:
		return len(b.groups[core.Attacker]) > 0
	default:
		return true
	}
}

func (b *Battle) execute(ctx context.Context, s Step) error {
	switch s.Kind {
	case StepAAFire, StepBombard, StepFirstStrike, StepStandardFire:
		return b.fire(s)
	case StepSelectCasualties:
		return b.selectCasualties(ctx, s)
	case StepClearAACasualties, StepClearFirstStrikeCasualties, StepClearCasualties:
		b.clearCasualties(s)
	case StepRemoveNonCombatants:
		for _, side := range bothSides {
			aside := b.groups[side].Filter(b.setAside)
			b.aside[side] = append(b.aside[side], aside...)
			b.groups[side] = b.groups[side].Without(aside)
		}
	case StepSubmergeVsAir:
		b.submergeVsAir(s.Round)
	case StepRemoveSubmerged:
		b.submerged[s.Side] = append(b.submerged[s.Side], s.Units...)
		b.groups[s.Side] = b.groups[s.Side].Without(s.Units)
		b.publish(events.NewUnitsSubmergedEvent(b.id, s.Round, s.Side.String(), s.Units.String()))
	case StepRemoveSuicide:
		b.removeSuicide(s.Round)
	case StepCheckEnd:
		b.checkEnd()
	case StepRetreatCheck:
		b.retreatCheck(s.Round)
	case StepRoundEnd:
		b.endRound()
	default:
		return fmt.Errorf("unknown step kind %s", s.Kind)
	}
	return nil
}

// fire rolls for every firing group of the step's class and pushes one
// casualty selection per group that scored.
func (b *Battle) fire(s Step) error {
	target := s.Side.Opponent()
	friendly := b.groups[s.Side]
	if s.Kind == StepBombard {
		friendly = b.cfg.Bombarding
		target = core.Defender
	}
	in := combat.Input{
		Side:       s.Side,
		Friendly:   friendly,
		Enemy:      b.groups[target],
		Rules:      b.cfg.Rules,
		Territory:  b.cfg.Territory,
		FirstRound: s.Round == 1,
	}

	var follow []Step
	for _, g := range combat.Split(combat.Compute(in, s.Class), friendly, in.Enemy) {
		result, err := dice.RollAgainst(b.cfg.Dice, b.cfg.Rules.DiceSides, combat.Thresholds(g.Firers))
		if err != nil {
			return err
		}
		for _, v := range g.Firers {
			v.Unit.Fired = true
		}
		b.publish(events.NewDiceRolledEvent(b.id, s.Round, s.Side.String(), s.Class.String(), result.Faces(), result.Hits()))
		b.trace().
			Str("side", s.Side.String()).
			Str("class", s.Class.String()).
			Stringer("roll", result).
			Msg("Dice rolled")

		if result.Hits() > 0 {
			follow = append(follow, Step{
				Kind:    StepSelectCasualties,
				Round:   s.Round,
				Side:    target,
				Class:   s.Class,
				Hits:    result.Hits(),
				Targets: g.Targets,
			})
		}
	}
	b.stack.PushAll(follow...)
	return nil
}

func (b *Battle) selectCasualties(ctx context.Context, s Step) error {
	side := s.Side
	targets := s.Targets.Filter(func(u *core.Unit) bool {
		return b.groups[side].Contains(u) && !b.doomed(side).Contains(u)
	})
	req := casualty.Request{
		BattleID: b.id,
		Round:    s.Round,
		Side:     side,
		Targets:  targets,
		Hits:     s.Hits,
		AA:       s.Class == combat.AA,
	}
	if req.Allocated() == 0 {
		return nil
	}

	var policy casualty.Policy = b.cfg.DefenderCasualties
	if side == core.Attacker {
		policy = b.cfg.AttackerCasualties
	}
	if req.AA {
		policy = casualty.AA{Inner: policy}
	}

	c, err := policy.Select(ctx, req)
	if errors.Is(err, casualty.ErrAwaitingInput) {
		if b.cfg.Simulation {
			return fmt.Errorf("simulated battle asked for casualty input: %w", err)
		}
		return b.suspend(s, req)
	}
	if err != nil {
		return err
	}
	if err := casualty.Validate(req, c); err != nil {
		return err
	}

	for _, u := range c.Damaged {
		u.Hits++
	}
	if !c.Empty() {
		b.pending[side] = append(b.pending[side], loss{class: s.Class, killed: c.Killed, damaged: len(c.Damaged)})
	}
	return nil
}

// loss is a casualty selection that has not been removed yet. Killed units
// keep firing until a clear step for their class removes them.
type loss struct {
	class   combat.Class
	killed  core.UnitGroup
	damaged int
}

// clears reports whether clear step k removes casualties of fire class c.
// AA and first-strike casualties leave before the next fire step; the
// general clear takes everything else, bombardment kills included, after
// they have fired back.
func clears(k StepKind, c combat.Class) bool {
	switch k {
	case StepClearAACasualties:
		return c == combat.AA
	case StepClearFirstStrikeCasualties:
		return c == combat.FirstStrike
	default:
		return true
	}
}

// doomed returns the units of side already chosen as killed.
func (b *Battle) doomed(side core.Side) core.UnitGroup {
	var g core.UnitGroup
	for _, l := range b.pending[side] {
		g = append(g, l.killed...)
	}
	return g
}

func (b *Battle) suspend(s Step, req casualty.Request) error {
	b.stack.Push(s)
	b.awaiting = &req
	if err := b.transition(StatusAwaitingInput, "casualty selection"); err != nil {
		return err
	}
	b.logger.Info().
		Int("round", s.Round).
		Str("side", s.Side.String()).
		Int("hits", s.Hits).
		Msg("Battle suspended for casualty selection")
	b.publish(events.NewBattleSuspendedEvent(b.id, s.Round, s.Side.String(), s.Hits))
	return ErrSuspended
}

func (b *Battle) clearCasualties(s Step) {
	for _, side := range bothSides {
		var killed core.UnitGroup
		damaged := 0
		kept := b.pending[side][:0]
		for _, l := range b.pending[side] {
			if !clears(s.Kind, l.class) {
				kept = append(kept, l)
				continue
			}
			killed = append(killed, l.killed...)
			damaged += l.damaged
		}
		b.pending[side] = kept
		if len(killed) == 0 && damaged == 0 {
			continue
		}
		b.groups[side] = b.groups[side].Without(killed)
		b.publish(events.NewCasualtiesEvent(b.id, s.Round, side.String(), killed.String(), damaged, killed.TUV()))
	}
}

// setAside reports whether u leaves the battle as a non-combatant. AA units
// that keep firing every round stay until the battle ends.
func (b *Battle) setAside(u *core.Unit) bool {
	if !u.Type.IsInfrastructure {
		return false
	}
	return !u.Type.IsAA || b.cfg.Rules.Flags.AAFirstRoundOnly
}

// submergeVsAir dives submarines that face nothing but air units. The
// removal itself is a follow-on step.
func (b *Battle) submergeVsAir(round int) {
	var follow []Step
	for _, side := range bothSides {
		enemy := b.groups[side.Opponent()].Combatants()
		if len(enemy) == 0 || !enemy.All(func(u *core.Unit) bool { return u.Type.IsAir() }) {
			continue
		}
		subs := b.groups[side].Filter(func(u *core.Unit) bool { return u.Type.CanSubmerge && !u.Submerged })
		if len(subs) == 0 {
			continue
		}
		for _, u := range subs {
			u.Submerged = true
		}
		follow = append(follow, Step{Kind: StepRemoveSubmerged, Round: round, Side: side, Units: subs})
	}
	b.stack.PushAll(follow...)
}

func spent(u *core.Unit) bool {
	return u.Type.SuicideOnHit && u.Fired
}

func (b *Battle) removeSuicide(round int) {
	for _, side := range bothSides {
		gone := b.groups[side].Filter(spent)
		if len(gone) == 0 {
			continue
		}
		b.groups[side] = b.groups[side].Without(gone)
		b.publish(events.NewCasualtiesEvent(b.id, round, side.String(), gone.String(), 0, gone.TUV()))
	}
}

func (b *Battle) checkEnd() {
	att := len(b.groups[core.Attacker].Combatants()) > 0
	def := len(b.groups[core.Defender].Combatants()) > 0
	switch {
	case !att && !def:
		b.setOutcome(Draw, false, false)
	case !att:
		b.setOutcome(WinnerDefender, false, false)
	case !def:
		b.setOutcome(WinnerAttacker, false, false)
	case !b.canDamage(core.Attacker) && !b.canDamage(core.Defender):
		b.setOutcome(Draw, false, true)
	}
}

// canDamage reports whether side could score a hit in a later round.
func (b *Battle) canDamage(side core.Side) bool {
	in := combat.Input{
		Side:      side,
		Friendly:  b.groups[side],
		Enemy:     b.groups[side.Opponent()],
		Rules:     b.cfg.Rules,
		Territory: b.cfg.Territory,
	}
	for _, class := range []combat.Class{combat.AA, combat.FirstStrike, combat.Standard} {
		if len(combat.Split(combat.Compute(in, class), in.Friendly, in.Enemy)) > 0 {
			return true
		}
	}
	return false
}

func (b *Battle) retreatCheck(round int) {
	if b.cfg.Amphibious && b.groups[core.Attacker].Any(isLand) {
		return
	}
	state := RetreatState{
		Round:     round,
		Attacker:  b.groups[core.Attacker],
		Defender:  b.groups[core.Defender],
		Rules:     b.cfg.Rules,
		Territory: b.cfg.Territory,
	}
	if !b.cfg.Retreat.ShouldRetreat(state) {
		return
	}
	b.publish(events.NewBattleRetreatedEvent(b.id, round, b.groups[core.Attacker].String()))
	b.setOutcome(WinnerDefender, true, false)
}

func isLand(u *core.Unit) bool { return u.Type.Domain == core.Land }

func (b *Battle) endRound() {
	for _, side := range bothSides {
		b.groups[side].ResetRound()
	}
	b.cfg.Bombarding.ResetRound()

	if b.round >= b.cfg.MaxRounds {
		b.info().Int("max_rounds", b.cfg.MaxRounds).Msg("Round limit reached")
		b.setOutcome(Draw, false, false)
		return
	}
	b.round++
	b.publish(events.NewRoundStartedEvent(b.id, b.round))
	b.stack.PushAll(roundSteps(b.round)...)
}
