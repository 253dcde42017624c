package battle

import (
	"fmt"

	"github.com/mitchelldurbincs/wargame/internal/game/combat"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

// StepKind identifies a battle phase. Steps are a tagged variant: each kind
// reads only the Step fields it needs.
type StepKind int

const (
	StepAAFire StepKind = iota
	StepClearAACasualties
	StepRemoveNonCombatants
	StepBombard
	StepSubmergeVsAir
	StepRemoveSubmerged
	StepFirstStrike
	StepClearFirstStrikeCasualties
	StepStandardFire
	StepSelectCasualties
	StepClearCasualties
	StepRemoveSuicide
	StepCheckEnd
	StepRetreatCheck
	StepRoundEnd
)

var stepNames = map[StepKind]string{
	StepAAFire:                     "aa_fire",
	StepClearAACasualties:          "clear_aa_casualties",
	StepRemoveNonCombatants:        "remove_non_combatants",
	StepBombard:                    "bombard",
	StepSubmergeVsAir:              "submerge_vs_air",
	StepRemoveSubmerged:            "remove_submerged",
	StepFirstStrike:                "first_strike",
	StepClearFirstStrikeCasualties: "clear_first_strike_casualties",
	StepStandardFire:               "standard_fire",
	StepSelectCasualties:           "select_casualties",
	StepClearCasualties:            "clear_casualties",
	StepRemoveSuicide:              "remove_suicide",
	StepCheckEnd:                   "check_end",
	StepRetreatCheck:               "retreat_check",
	StepRoundEnd:                   "round_end",
}

// String returns the string representation of a StepKind
func (k StepKind) String() string {
	if name, ok := stepNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// IsFire reports whether the step rolls dice.
func (k StepKind) IsFire() bool {
	switch k {
	case StepAAFire, StepBombard, StepFirstStrike, StepStandardFire:
		return true
	}
	return false
}

// Step is one pending phase on the execution stack.
//
// Side is the firing side for fire steps, the side taking hits for
// StepSelectCasualties and the diving side for StepRemoveSubmerged. Hits and
// Targets are only set on StepSelectCasualties; Units only on
// StepRemoveSubmerged.
type Step struct {
	Kind    StepKind
	Round   int
	Side    core.Side
	Class   combat.Class
	Hits    int
	Targets core.UnitGroup
	Units   core.UnitGroup
}

func (s Step) String() string {
	switch s.Kind {
	case StepAAFire, StepBombard, StepFirstStrike, StepStandardFire:
		return fmt.Sprintf("%s(round %d, %s)", s.Kind, s.Round, s.Side)
	case StepSelectCasualties:
		return fmt.Sprintf("%s(round %d, %s takes %d %s hits)", s.Kind, s.Round, s.Side, s.Hits, s.Class)
	case StepRemoveSubmerged:
		return fmt.Sprintf("%s(round %d, %s: %s)", s.Kind, s.Round, s.Side, s.Units)
	default:
		return fmt.Sprintf("%s(round %d)", s.Kind, s.Round)
	}
}

// roundSteps expands the firing order of one round into concrete steps, in
// execution order.
func roundSteps(round int) []Step {
	steps := []Step{
		{Kind: StepAAFire, Side: core.Attacker, Class: combat.AA},
		{Kind: StepAAFire, Side: core.Defender, Class: combat.AA},
		{Kind: StepClearAACasualties},
		{Kind: StepRemoveNonCombatants},
		{Kind: StepBombard, Side: core.Attacker, Class: combat.Bombard},
		{Kind: StepSubmergeVsAir},
		{Kind: StepFirstStrike, Side: core.Attacker, Class: combat.FirstStrike},
		{Kind: StepFirstStrike, Side: core.Defender, Class: combat.FirstStrike},
		{Kind: StepClearFirstStrikeCasualties},
		{Kind: StepStandardFire, Side: core.Attacker, Class: combat.Standard},
		{Kind: StepStandardFire, Side: core.Defender, Class: combat.Standard},
		{Kind: StepClearCasualties},
		{Kind: StepRemoveSuicide},
		{Kind: StepCheckEnd},
		{Kind: StepRetreatCheck},
		{Kind: StepRoundEnd},
	}
	for i := range steps {
		steps[i].Round = round
	}
	return steps
}
