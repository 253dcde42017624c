package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

//go:embed classic.yaml
var classicYAML []byte

type fileFormat struct {
	Name             string                         `yaml:"name"`
	DiceSides        int                            `yaml:"dice_sides"`
	MaxRounds        int                            `yaml:"max_rounds"`
	Flags            flagsSpec                      `yaml:"flags"`
	UnitTypes        map[string]unitTypeSpec        `yaml:"unit_types"`
	Supports         []supportSpec                  `yaml:"supports"`
	TerritoryEffects map[string]map[string]modifier `yaml:"territory_effects"`
}

type flagsSpec struct {
	AAFirstRoundOnly         bool `yaml:"aa_first_round_only"`
	SubmersibleSubs          bool `yaml:"submersible_subs"`
	DefendingSubsSneakAttack bool `yaml:"defending_subs_sneak_attack"`
	BombardFirstRoundOnly    bool `yaml:"bombard_first_round_only"`
}

type unitTypeSpec struct {
	Cost                  int    `yaml:"cost"`
	Attack                int    `yaml:"attack"`
	Defense               int    `yaml:"defense"`
	AttackRolls           int    `yaml:"attack_rolls"`
	DefenseRolls          int    `yaml:"defense_rolls"`
	HitPoints             int    `yaml:"hit_points"`
	Domain                string `yaml:"domain"`
	FirstStrike           bool   `yaml:"first_strike"`
	Destroyer             bool   `yaml:"destroyer"`
	CannotTargetAir       bool   `yaml:"cannot_target_air"`
	CannotBeTargetedByAir bool   `yaml:"cannot_be_targeted_by_air"`
	CanSubmerge           bool   `yaml:"can_submerge"`
	IsAA                  bool   `yaml:"is_aa"`
	AAStrength            int    `yaml:"aa_strength"`
	AAMaxDice             int    `yaml:"aa_max_dice"`
	NotTargetedByAA       bool   `yaml:"not_targeted_by_aa"`
	Bombard               int    `yaml:"bombard"`
	SuicideOnHit          bool   `yaml:"suicide_on_hit"`
	Infrastructure        bool   `yaml:"infrastructure"`
}

type supportSpec struct {
	Name      string   `yaml:"name"`
	Provider  string   `yaml:"provider"`
	Targets   []string `yaml:"targets"`
	Side      string   `yaml:"side"`
	Bonus     int      `yaml:"bonus"`
	RollBonus int      `yaml:"roll_bonus"`
	Count     int      `yaml:"count"`
	Enemy     bool     `yaml:"enemy"`
}

type modifier struct {
	Offence int `yaml:"offence"`
	Defence int `yaml:"defence"`
}

var (
	classicOnce sync.Once
	classic     *Ruleset
	classicErr  error
)

// Classic returns the embedded default ruleset. The returned value is shared
// and must be treated as read-only.
func Classic() *Ruleset {
	classicOnce.Do(func() {
		classic, classicErr = Parse(classicYAML)
	})
	if classicErr != nil {
		panic("embedded classic ruleset is invalid: " + classicErr.Error())
	}
	return classic
}

// Load reads and validates a ruleset file.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset %s: %w", path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("ruleset %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes and validates ruleset YAML.
func Parse(data []byte) (*Ruleset, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	rs := &Ruleset{
		Name:             f.Name,
		DiceSides:        f.DiceSides,
		MaxRounds:        f.MaxRounds,
		UnitTypes:        make(map[string]*core.UnitType, len(f.UnitTypes)),
		TerritoryEffects: make(map[string]TerritoryEffect, len(f.TerritoryEffects)),
		Flags: Flags{
			AAFirstRoundOnly:         f.Flags.AAFirstRoundOnly,
			SubmersibleSubs:          f.Flags.SubmersibleSubs,
			DefendingSubsSneakAttack: f.Flags.DefendingSubsSneakAttack,
			BombardFirstRoundOnly:    f.Flags.BombardFirstRoundOnly,
		},
	}

	for name, spec := range f.UnitTypes {
		domain, err := core.ParseDomain(spec.Domain)
		if err != nil {
			return nil, fmt.Errorf("%w: unit type %q: %v", ErrInvalidRules, name, err)
		}
		rs.UnitTypes[name] = &core.UnitType{
			Name:                  name,
			Cost:                  spec.Cost,
			Attack:                spec.Attack,
			Defense:               spec.Defense,
			AttackRolls:           spec.AttackRolls,
			DefenseRolls:          spec.DefenseRolls,
			HitPoints:             spec.HitPoints,
			Domain:                domain,
			FirstStrike:           spec.FirstStrike,
			Destroyer:             spec.Destroyer,
			CannotTargetAir:       spec.CannotTargetAir,
			CannotBeTargetedByAir: spec.CannotBeTargetedByAir,
			CanSubmerge:           spec.CanSubmerge,
			IsAA:                  spec.IsAA,
			AAStrength:            spec.AAStrength,
			AAMaxDice:             spec.AAMaxDice,
			NotTargetedByAA:       spec.NotTargetedByAA,
			Bombard:               spec.Bombard,
			SuicideOnHit:          spec.SuicideOnHit,
			IsInfrastructure:      spec.Infrastructure,
		}
	}

	for _, s := range f.Supports {
		side, err := parseSupportSide(s.Side)
		if err != nil {
			return nil, fmt.Errorf("%w: support %q: %v", ErrInvalidRules, s.Name, err)
		}
		count := s.Count
		if count == 0 {
			count = 1
		}
		rs.Supports = append(rs.Supports, SupportRule{
			Name:      s.Name,
			Provider:  s.Provider,
			Targets:   s.Targets,
			Side:      side,
			Bonus:     s.Bonus,
			RollBonus: s.RollBonus,
			Count:     count,
			Enemy:     s.Enemy,
		})
	}

	for name, mods := range f.TerritoryEffects {
		eff := TerritoryEffect{Name: name, Modifiers: make(map[string]Modifier, len(mods))}
		for typeName, m := range mods {
			eff.Modifiers[typeName] = Modifier{Offence: m.Offence, Defence: m.Defence}
		}
		rs.TerritoryEffects[name] = eff
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func parseSupportSide(s string) (SupportSide, error) {
	switch s {
	case "", "both":
		return SupportBoth, nil
	case "offence", "offense":
		return SupportOffence, nil
	case "defence", "defense":
		return SupportDefence, nil
	default:
		return SupportBoth, fmt.Errorf("unknown support side %q", s)
	}
}
