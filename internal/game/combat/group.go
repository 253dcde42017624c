package combat

import "github.com/mitchelldurbincs/wargame/internal/game/core"

// FiringGroup is a set of firers that share the same eligible targets. Each
// group rolls and has its casualties selected independently.
type FiringGroup struct {
	Class   Class
	Firers  []Value
	Targets core.UnitGroup
}

// Split partitions values by target compatibility. Groups whose targets are
// empty are dropped, so the result is empty when nothing can be hit.
func Split(values []Value, friendly, enemy core.UnitGroup) []FiringGroup {
	if len(values) == 0 {
		return nil
	}

	friendlyDestroyer := HasDestroyer(friendly)
	type key struct {
		class     Class
		noAir     bool
		airLimits bool
	}
	index := make(map[key]int)
	var groups []FiringGroup

	for _, v := range values {
		k := key{
			class:     v.Class,
			noAir:     v.Unit.Type.CannotTargetAir,
			airLimits: v.Unit.Type.IsAir() && !friendlyDestroyer,
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, FiringGroup{
				Class:   v.Class,
				Targets: targetsFor(v.Class, k.noAir, k.airLimits, enemy),
			})
		}
		groups[i].Firers = append(groups[i].Firers, v)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Targets) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// AATargets returns the enemy units AA fire may hit.
func AATargets(enemy core.UnitGroup) core.UnitGroup {
	return enemy.Filter(func(u *core.Unit) bool {
		return u.Type.IsAir() && !u.Type.NotTargetedByAA && !u.Submerged
	})
}

func targetsFor(class Class, noAir, airLimits bool, enemy core.UnitGroup) core.UnitGroup {
	if class == AA {
		return AATargets(enemy)
	}
	return enemy.Combatants().Filter(func(u *core.Unit) bool {
		if noAir && u.Type.IsAir() {
			return false
		}
		if airLimits && u.Type.CannotBeTargetedByAir {
			return false
		}
		return true
	})
}

// Power returns Σ strength × dice, the expected-hit numerator used by the
// estimators.
func Power(values []Value) int {
	total := 0
	for _, v := range values {
		total += v.Strength * v.Dice
	}
	return total
}

// Rolls returns the total number of dice.
func Rolls(values []Value) int {
	total := 0
	for _, v := range values {
		total += v.Dice
	}
	return total
}

// Thresholds expands values into one hit threshold per die.
func Thresholds(values []Value) []int {
	out := make([]int, 0, Rolls(values))
	for _, v := range values {
		for i := 0; i < v.Dice; i++ {
			out = append(out, v.HitThreshold)
		}
	}
	return out
}
