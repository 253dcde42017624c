// Package odds estimates battle results: a Monte-Carlo estimator that fights
// many simulated battles, a closed-form Lanchester approximation, and the
// selection and caching layers the AI and calculator tools put in front of
// them.
package odds

import (
	"context"
	"errors"

	"github.com/mitchelldurbincs/wargame/internal/game/casualty"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

var (
	ErrInvalidConfig  = errors.New("invalid estimator config")
	ErrNoValidOutcome = errors.New("no valid outcome")
)

// Matchup is the input of an estimate. Estimators never mutate its groups.
type Matchup struct {
	Location   string
	Attacker   core.UnitGroup
	Defender   core.UnitGroup
	Bombarding core.UnitGroup
	Territory  rules.Territory

	// AttackerOrder and DefenderOrder name unit types in the order they are
	// taken as losses; empty means cheapest first.
	AttackerOrder []string
	DefenderOrder []string
	// KeepOneAttackingLandUnit spares the attacker's last land unit while
	// anything else can be lost, so a won battle can still take the ground.
	KeepOneAttackingLandUnit bool
	Amphibious               bool
}

// AttackerLosses returns the attacker's casualty policy.
func (m Matchup) AttackerLosses() casualty.Ordered {
	return casualty.Ordered{Order: m.AttackerOrder, KeepLand: m.KeepOneAttackingLandUnit}
}

// DefenderLosses returns the defender's casualty policy.
func (m Matchup) DefenderLosses() casualty.Ordered {
	return casualty.Ordered{Order: m.DefenderOrder}
}

// Estimator produces an aggregate result for a matchup.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, m Matchup) (AggregateResult, error)
}
