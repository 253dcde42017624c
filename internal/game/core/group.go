package core

import (
	"sort"
	"strconv"
	"strings"
)

// UnitGroup is an ordered collection of units belonging to one side of a
// battle. Groups are mutated only by casualty removal and round advance.
type UnitGroup []*Unit

// Clone deep-copies every unit so that mutations on the copy never reach the
// original.
func (g UnitGroup) Clone() UnitGroup {
	if g == nil {
		return nil
	}
	c := make(UnitGroup, len(g))
	for i, u := range g {
		c[i] = u.Clone()
	}
	return c
}

// Len returns the number of units.
func (g UnitGroup) Len() int { return len(g) }

// Empty reports whether the group has no units.
func (g UnitGroup) Empty() bool { return len(g) == 0 }

// TUV returns the total unit value (summed cost) of the group.
func (g UnitGroup) TUV() int {
	total := 0
	for _, u := range g {
		total += u.Type.Cost
	}
	return total
}

// HitPoints returns the hits the group can still absorb.
func (g UnitGroup) HitPoints() int {
	total := 0
	for _, u := range g {
		total += u.HitsLeft()
	}
	return total
}

// Filter returns the units matching keep, preserving order.
func (g UnitGroup) Filter(keep func(*Unit) bool) UnitGroup {
	out := make(UnitGroup, 0, len(g))
	for _, u := range g {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}

// Any reports whether at least one unit matches.
func (g UnitGroup) Any(match func(*Unit) bool) bool {
	for _, u := range g {
		if match(u) {
			return true
		}
	}
	return false
}

// All reports whether every unit matches. An empty group matches.
func (g UnitGroup) All(match func(*Unit) bool) bool {
	for _, u := range g {
		if !match(u) {
			return false
		}
	}
	return true
}

// Contains reports whether the exact unit (by ID) is in the group.
func (g UnitGroup) Contains(u *Unit) bool {
	for _, x := range g {
		if x.ID == u.ID {
			return true
		}
	}
	return false
}

// Without returns the group minus the given units (matched by ID).
func (g UnitGroup) Without(remove UnitGroup) UnitGroup {
	if len(remove) == 0 {
		return append(UnitGroup(nil), g...)
	}
	ids := make(map[int]struct{}, len(remove))
	for _, u := range remove {
		ids[u.ID] = struct{}{}
	}
	return g.Filter(func(u *Unit) bool {
		_, gone := ids[u.ID]
		return !gone
	})
}

// Combatants returns the units that take part in general combat.
func (g UnitGroup) Combatants() UnitGroup {
	return g.Filter(func(u *Unit) bool { return u.Type.IsCombatant() && !u.Submerged })
}

// CountByType returns the number of units of each type name.
func (g UnitGroup) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, u := range g {
		counts[u.Type.Name]++
	}
	return counts
}

// SortedByID returns a copy of the group ordered by ascending ID.
func (g UnitGroup) SortedByID() UnitGroup {
	c := append(UnitGroup(nil), g...)
	sort.SliceStable(c, func(i, j int) bool { return c[i].ID < c[j].ID })
	return c
}

// ResetRound clears the per-round one-shot flags.
func (g UnitGroup) ResetRound() {
	for _, u := range g {
		u.Fired = false
	}
}

// String renders the group as "2 infantry, 1 armour" in type-name order.
func (g UnitGroup) String() string {
	if len(g) == 0 {
		return "none"
	}
	counts := g.CountByType()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strconv.Itoa(counts[name])+" "+name)
	}
	return strings.Join(parts, ", ")
}
