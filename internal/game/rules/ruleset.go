package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

var ErrInvalidRules = errors.New("invalid rules")

// SupportSide says on which side of a battle a support attachment applies.
type SupportSide int

const (
	SupportBoth SupportSide = iota
	SupportOffence
	SupportDefence
)

// AppliesTo reports whether the support is active for a unit fighting on side.
func (s SupportSide) AppliesTo(side core.Side) bool {
	switch s {
	case SupportOffence:
		return side == core.Attacker
	case SupportDefence:
		return side == core.Defender
	default:
		return true
	}
}

// SupportRule is a support attachment: each Provider unit improves up to
// Count units whose type is listed in Targets.
type SupportRule struct {
	Name      string
	Provider  string
	Targets   []string
	Side      SupportSide
	Bonus     int
	RollBonus int
	Count     int
	// Enemy supports are provided by the opposing group and modify the
	// friendly group, typically with a negative bonus.
	Enemy bool
}

// Supports reports whether the rule can support units of the given type.
func (r SupportRule) Supports(typeName string) bool {
	for _, t := range r.Targets {
		if t == typeName {
			return true
		}
	}
	return false
}

// Modifier is a flat change to a unit type's offence or defence strength.
type Modifier struct {
	Offence int
	Defence int
}

// For returns the modifier value for a side.
func (m Modifier) For(side core.Side) int {
	if side == core.Attacker {
		return m.Offence
	}
	return m.Defence
}

// TerritoryEffect is a terrain feature that changes unit strengths.
type TerritoryEffect struct {
	Name      string
	Modifiers map[string]Modifier
}

// Territory is the battle location as the combat model sees it.
type Territory struct {
	Name    string
	Water   bool
	Effects []TerritoryEffect
}

// Modifier sums the effect modifiers for a unit type.
func (t Territory) Modifier(typeName string, side core.Side) int {
	total := 0
	for _, e := range t.Effects {
		if m, ok := e.Modifiers[typeName]; ok {
			total += m.For(side)
		}
	}
	return total
}

// Flags are the game rule properties that switch optional combat phases.
type Flags struct {
	AAFirstRoundOnly         bool
	SubmersibleSubs          bool
	DefendingSubsSneakAttack bool
	BombardFirstRoundOnly    bool
}

// Ruleset is the validated rule data consumed by the combat engine.
type Ruleset struct {
	Name             string
	DiceSides        int
	MaxRounds        int
	UnitTypes        map[string]*core.UnitType
	Supports         []SupportRule
	TerritoryEffects map[string]TerritoryEffect
	Flags            Flags
}

// UnitType looks up a unit type by name.
func (rs *Ruleset) UnitType(name string) (*core.UnitType, error) {
	ut, ok := rs.UnitTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownUnitType, name)
	}
	return ut, nil
}

// UnitTypeNames returns the known unit type names in sorted order.
func (rs *Ruleset) UnitTypeNames() []string {
	names := make([]string, 0, len(rs.UnitTypes))
	for name := range rs.UnitTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Territory builds a battle location with the named territory effects.
func (rs *Ruleset) Territory(name string, water bool, effects ...string) (Territory, error) {
	t := Territory{Name: name, Water: water}
	for _, e := range effects {
		eff, ok := rs.TerritoryEffects[e]
		if !ok {
			return Territory{}, fmt.Errorf("%w: unknown territory effect %q", ErrInvalidRules, e)
		}
		t.Effects = append(t.Effects, eff)
	}
	return t, nil
}

// Group creates units from a type-name to count map. Types are created in
// sorted name order so that IDs are reproducible.
func (rs *Ruleset) Group(f *core.UnitFactory, owner string, counts map[string]int) (core.UnitGroup, error) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var g core.UnitGroup
	for _, name := range names {
		n := counts[name]
		if n < 0 {
			return nil, fmt.Errorf("negative count %d for %q", n, name)
		}
		ut, err := rs.UnitType(name)
		if err != nil {
			return nil, err
		}
		g = append(g, f.Create(ut, owner, n)...)
	}
	return g, nil
}

// Validate checks the rule data for references to unknown unit types and
// out-of-range values.
func (rs *Ruleset) Validate() error {
	if rs.DiceSides <= 0 {
		return fmt.Errorf("%w: dice sides must be positive, got %d", ErrInvalidRules, rs.DiceSides)
	}
	if rs.MaxRounds <= 0 {
		return fmt.Errorf("%w: max rounds must be positive, got %d", ErrInvalidRules, rs.MaxRounds)
	}
	if len(rs.UnitTypes) == 0 {
		return fmt.Errorf("%w: no unit types", ErrInvalidRules)
	}
	for name, ut := range rs.UnitTypes {
		if ut.Name != name {
			return fmt.Errorf("%w: unit type %q registered as %q", ErrInvalidRules, ut.Name, name)
		}
		if ut.Cost < 0 || ut.Attack < 0 || ut.Defense < 0 || ut.Bombard < 0 || ut.AAStrength < 0 {
			return fmt.Errorf("%w: unit type %q has negative values", ErrInvalidRules, name)
		}
		if ut.IsAA && ut.AAStrength == 0 {
			return fmt.Errorf("%w: AA unit type %q needs an aa strength", ErrInvalidRules, name)
		}
	}
	for _, s := range rs.Supports {
		if _, ok := rs.UnitTypes[s.Provider]; !ok {
			return fmt.Errorf("%w: support %q references unknown provider %q", ErrInvalidRules, s.Name, s.Provider)
		}
		if len(s.Targets) == 0 {
			return fmt.Errorf("%w: support %q has no targets", ErrInvalidRules, s.Name)
		}
		for _, t := range s.Targets {
			if _, ok := rs.UnitTypes[t]; !ok {
				return fmt.Errorf("%w: support %q references unknown target %q", ErrInvalidRules, s.Name, t)
			}
		}
		if s.Count <= 0 {
			return fmt.Errorf("%w: support %q count must be positive", ErrInvalidRules, s.Name)
		}
	}
	for name, e := range rs.TerritoryEffects {
		for t := range e.Modifiers {
			if _, ok := rs.UnitTypes[t]; !ok {
				return fmt.Errorf("%w: territory effect %q references unknown unit type %q", ErrInvalidRules, name, t)
			}
		}
	}
	return nil
}
