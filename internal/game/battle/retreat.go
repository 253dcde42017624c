package battle

import (
	"github.com/mitchelldurbincs/wargame/internal/game/combat"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

// RetreatState is what a retreat policy sees at the end of a round.
type RetreatState struct {
	Round     int
	Attacker  core.UnitGroup
	Defender  core.UnitGroup
	Rules     *rules.Ruleset
	Territory rules.Territory
}

// RetreatPolicy decides whether the attacker withdraws at the end of a round.
type RetreatPolicy interface {
	ShouldRetreat(s RetreatState) bool
}

// NeverRetreat fights to the end.
type NeverRetreat struct{}

// ShouldRetreat implements RetreatPolicy.
func (NeverRetreat) ShouldRetreat(RetreatState) bool { return false }

// RetreatWhenOutnumbered retreats once the attacker's power falls below
// Ratio times the defender's.
type RetreatWhenOutnumbered struct {
	Ratio float64
}

// ShouldRetreat implements RetreatPolicy.
func (r RetreatWhenOutnumbered) ShouldRetreat(s RetreatState) bool {
	att := sidePower(core.Attacker, s.Attacker, s.Defender, s.Rules, s.Territory)
	def := sidePower(core.Defender, s.Defender, s.Attacker, s.Rules, s.Territory)
	if def == 0 {
		return false
	}
	return float64(att) < r.Ratio*float64(def)
}

// sidePower is the general combat power of a side in a round after the first.
func sidePower(side core.Side, friendly, enemy core.UnitGroup, rs *rules.Ruleset, terr rules.Territory) int {
	in := combat.Input{Side: side, Friendly: friendly, Enemy: enemy, Rules: rs, Territory: terr}
	return combat.Power(combat.Compute(in, combat.FirstStrike)) + combat.Power(combat.Compute(in, combat.Standard))
}

// RetreatAfterRound retreats at the end of the given round.
type RetreatAfterRound struct {
	Round int
}

// ShouldRetreat implements RetreatPolicy.
func (r RetreatAfterRound) ShouldRetreat(s RetreatState) bool {
	return r.Round > 0 && s.Round >= r.Round
}

// RetreatWhenUnitsLeft retreats once the attacker is down to Units
// combatants or fewer.
type RetreatWhenUnitsLeft struct {
	Units int
}

// ShouldRetreat implements RetreatPolicy.
func (r RetreatWhenUnitsLeft) ShouldRetreat(s RetreatState) bool {
	return len(s.Attacker.Combatants()) <= r.Units
}

// RetreatWhenOnlyAirLeft pulls air units out once no ground or sea
// combatant is left to hold the territory.
type RetreatWhenOnlyAirLeft struct{}

// ShouldRetreat implements RetreatPolicy.
func (RetreatWhenOnlyAirLeft) ShouldRetreat(s RetreatState) bool {
	c := s.Attacker.Combatants()
	return len(c) > 0 && c.All(func(u *core.Unit) bool { return u.Type.IsAir() })
}

// AnyRetreat retreats as soon as one of its policies does.
type AnyRetreat []RetreatPolicy

// ShouldRetreat implements RetreatPolicy.
func (a AnyRetreat) ShouldRetreat(s RetreatState) bool {
	for _, p := range a {
		if p != nil && p.ShouldRetreat(s) {
			return true
		}
	}
	return false
}
