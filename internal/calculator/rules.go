package calculator

import (
	"sort"

	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

// UnitTypeInfo is the part of a unit type a calculator user picks from.
type UnitTypeInfo struct {
	Name    string `json:"name"`
	Cost    int    `json:"cost"`
	Attack  int    `json:"attack"`
	Defense int    `json:"defense"`
	Domain  string `json:"domain"`
}

// RulesInfo describes the ruleset behind the calculator.
type RulesInfo struct {
	Name             string         `json:"name"`
	DiceSides        int            `json:"dice_sides"`
	MaxRounds        int            `json:"max_rounds"`
	UnitTypes        []UnitTypeInfo `json:"unit_types"`
	TerritoryEffects []string       `json:"territory_effects"`
	Flags            rules.Flags    `json:"flags"`
}

// RulesInfo summarizes the service's ruleset.
func (s *Service) RulesInfo() RulesInfo {
	info := RulesInfo{
		Name:      s.rules.Name,
		DiceSides: s.rules.DiceSides,
		MaxRounds: s.rules.MaxRounds,
		Flags:     s.rules.Flags,
	}
	for _, name := range s.rules.UnitTypeNames() {
		ut := s.rules.UnitTypes[name]
		info.UnitTypes = append(info.UnitTypes, UnitTypeInfo{
			Name:    ut.Name,
			Cost:    ut.Cost,
			Attack:  ut.Attack,
			Defense: ut.Defense,
			Domain:  ut.Domain.String(),
		})
	}
	for name := range s.rules.TerritoryEffects {
		info.TerritoryEffects = append(info.TerritoryEffects, name)
	}
	sort.Strings(info.TerritoryEffects)
	return info
}
