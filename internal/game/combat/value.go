// Package combat converts unit groups into per-unit combat values: strength,
// dice and hit threshold for one firing round.
package combat

import (
	"fmt"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

// Class is the kind of fire a value belongs to.
type Class int

const (
	Standard Class = iota
	AA
	FirstStrike
	Bombard
)

// String returns the string representation of a Class
func (c Class) String() string {
	switch c {
	case Standard:
		return "standard"
	case AA:
		return "aa"
	case FirstStrike:
		return "first_strike"
	case Bombard:
		return "bombard"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Input is everything the combat value of one side depends on. For the
// Bombard class Friendly is the bombarding group, not the landing force.
type Input struct {
	Side       core.Side
	Friendly   core.UnitGroup
	Enemy      core.UnitGroup
	Rules      *rules.Ruleset
	Territory  rules.Territory
	FirstRound bool
}

// Value is the combat value of a single unit for one firing round.
type Value struct {
	Unit         *core.Unit
	Class        Class
	Strength     int
	Dice         int
	HitThreshold int
	FirstStrike  bool
	SuicideOnHit bool
}

// Compute returns the combat values of the friendly units that fire in the
// given class, in ascending unit ID order. An empty result means the class
// has nothing to fire this round. The ruleset must already be validated.
func Compute(in Input, class Class) []Value {
	switch class {
	case AA:
		return computeAA(in)
	case Bombard:
		return computeBombard(in)
	case Standard, FirstStrike:
		return computeFire(in, class)
	default:
		return nil
	}
}

// FiresFirst reports whether u fires in the first-strike class rather than in
// standard fire.
func FiresFirst(u *core.Unit, side core.Side, enemy core.UnitGroup, rs *rules.Ruleset) bool {
	if !u.Type.FirstStrike {
		return false
	}
	if HasDestroyer(enemy) {
		return false
	}
	return side == core.Attacker || rs.Flags.DefendingSubsSneakAttack
}

// HasDestroyer reports whether a live, surfaced destroyer is in the group.
func HasDestroyer(g core.UnitGroup) bool {
	return g.Any(func(u *core.Unit) bool { return u.Type.Destroyer && !u.Submerged })
}

func computeFire(in Input, class Class) []Value {
	firers := in.Friendly.Combatants().SortedByID()
	bonus := supportBonuses(in, firers)

	var out []Value
	for _, u := range firers {
		first := FiresFirst(u, in.Side, in.Enemy, in.Rules)
		if first != (class == FirstStrike) {
			continue
		}
		b := bonus[u.ID]
		strength := u.Type.Strength(in.Side) + b.strength + in.Territory.Modifier(u.Type.Name, in.Side)
		dice := u.Type.Rolls(in.Side) + b.rolls
		if v, ok := newValue(u, class, strength, dice, in.Rules.DiceSides); ok {
			v.FirstStrike = first
			out = append(out, v)
		}
	}
	return out
}

func computeAA(in Input) []Value {
	if in.Rules.Flags.AAFirstRoundOnly && !in.FirstRound {
		return nil
	}
	remaining := len(AATargets(in.Enemy))
	if remaining == 0 {
		return nil
	}

	var out []Value
	for _, u := range in.Friendly.SortedByID() {
		if !u.Type.IsAA || u.Submerged || remaining == 0 {
			continue
		}
		dice := remaining
		if u.Type.AAMaxDice > 0 && u.Type.AAMaxDice < dice {
			dice = u.Type.AAMaxDice
		}
		if v, ok := newValue(u, AA, u.Type.AAStrength, dice, in.Rules.DiceSides); ok {
			remaining -= dice
			out = append(out, v)
		}
	}
	return out
}

func computeBombard(in Input) []Value {
	if in.Side != core.Attacker {
		return nil
	}
	if in.Rules.Flags.BombardFirstRoundOnly && !in.FirstRound {
		return nil
	}
	var out []Value
	for _, u := range in.Friendly.SortedByID() {
		if u.Type.Bombard <= 0 {
			continue
		}
		if v, ok := newValue(u, Bombard, u.Type.Bombard, u.Type.Rolls(core.Attacker), in.Rules.DiceSides); ok {
			out = append(out, v)
		}
	}
	return out
}

func newValue(u *core.Unit, class Class, strength, dice, sides int) (Value, bool) {
	if strength <= 0 || dice <= 0 {
		return Value{}, false
	}
	threshold := strength
	if threshold > sides {
		threshold = sides
	}
	return Value{
		Unit:         u,
		Class:        class,
		Strength:     strength,
		Dice:         dice,
		HitThreshold: threshold,
		SuicideOnHit: u.Type.SuicideOnHit,
	}, true
}

type bonus struct {
	strength int
	rolls    int
}

// supportBonuses allocates support attachments to firers. Each rule gives
// its bonus to at most providers × Count targets, lowest unit ID first.
func supportBonuses(in Input, firers core.UnitGroup) map[int]bonus {
	out := make(map[int]bonus)
	for _, rule := range in.Rules.Supports {
		if !rule.Side.AppliesTo(in.Side) {
			continue
		}
		source := in.Friendly
		if rule.Enemy {
			source = in.Enemy
		}
		providers := 0
		for _, u := range source {
			if u.Type.Name == rule.Provider && !u.Submerged {
				providers++
			}
		}
		capacity := providers * rule.Count
		for _, u := range firers {
			if capacity == 0 {
				break
			}
			if !rule.Supports(u.Type.Name) {
				continue
			}
			b := out[u.ID]
			b.strength += rule.Bonus
			b.rolls += rule.RollBonus
			out[u.ID] = b
			capacity--
		}
	}
	return out
}
