package odds

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/casualty"
	"github.com/mitchelldurbincs/wargame/internal/game/combat"
	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

const lanchesterName = "lanchester"

// Lanchester approximates a battle in closed form with a generalized
// Lanchester law. A side of n units with total first-round power P has
// strength S = P * n^(e-1), where e is the attrition exponent.
type Lanchester struct {
	rules    *rules.Ruleset
	exponent float64
}

// NewLanchester creates an approximation with the given attrition exponent,
// typically between 1 (linear law) and 2 (square law). Exponents below 1
// are rejected: they make a side weaker for every unit it adds.
func NewLanchester(rs *rules.Ruleset, exponent float64) (*Lanchester, error) {
	if rs == nil {
		return nil, fmt.Errorf("%w: no ruleset", ErrInvalidConfig)
	}
	if rs.DiceSides <= 0 {
		return nil, fmt.Errorf("%w: dice sides must be positive, got %d", ErrInvalidConfig, rs.DiceSides)
	}
	if exponent < 1 || math.IsNaN(exponent) || math.IsInf(exponent, 0) {
		return nil, fmt.Errorf("%w: attrition exponent must be finite and at least 1, got %v", ErrInvalidConfig, exponent)
	}
	return &Lanchester{rules: rs, exponent: exponent}, nil
}

// Name implements Estimator.
func (l *Lanchester) Name() string { return lanchesterName }

// Exponent returns the attrition exponent.
func (l *Lanchester) Exponent() float64 { return l.exponent }

// Estimate implements Estimator. The approximation never blocks, so ctx is
// ignored.
func (l *Lanchester) Estimate(_ context.Context, m Matchup) (AggregateResult, error) {
	return l.Approximate(m), nil
}

// force is one side's state during the approximation.
type force struct {
	units  core.UnitGroup // combatants in removal order
	others core.UnitGroup // units that never take losses
	n      int
	mean   float64 // average power per unit at the start
	s      float64
	x      float64 // continuous unit count of the stronger side
	carry  float64
}

func (l *Lanchester) newForce(side core.Side, friendly, enemy, bombarding core.UnitGroup, terr rules.Territory, losses casualty.Ordered) *force {
	in := combat.Input{Side: side, Friendly: friendly, Enemy: enemy, Rules: l.rules, Territory: terr, FirstRound: true}
	power := combat.Power(combat.Compute(in, combat.FirstStrike)) +
		combat.Power(combat.Compute(in, combat.Standard))
	if side == core.Attacker && len(bombarding) > 0 {
		bin := in
		bin.Friendly = bombarding
		power += combat.Power(combat.Compute(bin, combat.Bombard))
	}

	units := losses.Sequence(friendly.Combatants())
	f := &force{
		units:  units,
		others: friendly.Without(units),
		n:      len(units),
	}
	if f.n > 0 {
		f.mean = float64(power) / float64(f.n)
	}
	f.reset(l.exponent)
	return f
}

// reset recomputes the strength from the whole unit count.
func (f *force) reset(e float64) {
	f.s = f.strength(f.n, e)
	f.x = float64(f.n)
	f.carry = 0
}

func (f *force) strength(n int, e float64) float64 {
	if n <= 0 || f.mean <= 0 {
		return 0
	}
	return f.mean * math.Pow(float64(n), e)
}

// lose removes k units in loss order and returns the strength lost.
func (f *force) lose(k int, e float64) float64 {
	if k > f.n {
		k = f.n
	}
	before := f.s
	f.n -= k
	f.reset(e)
	return before - f.s
}

// absorb lowers the strength of the stronger side by ds and converts the
// implied continuous loss into whole units.
func (f *force) absorb(ds, e float64) {
	f.s -= ds
	if f.s <= 0 {
		f.s, f.x, f.n, f.carry = 0, 0, 0, 0
		return
	}
	x := math.Pow(f.s/f.mean, 1/e)
	f.carry += f.x - x
	f.x = x

	k := int(math.Round(f.carry))
	if k <= 0 {
		return
	}
	if k > f.n {
		k = f.n
	}
	f.n -= k
	f.carry -= float64(k)
}

// shotDown returns the enemy air units the firing side's AA is expected to
// destroy before the exchanges start: the expected AA hits rounded to whole
// units, taken in the enemy's loss order. One more enemy aircraft adds at
// most one AA die, so it never costs its side more than the aircraft itself.
func (l *Lanchester) shotDown(side core.Side, firing, enemy core.UnitGroup, terr rules.Territory, losses casualty.Ordered) core.UnitGroup {
	in := combat.Input{Side: side, Friendly: firing, Enemy: enemy, Rules: l.rules, Territory: terr, FirstRound: true}
	expected := 0.0
	for _, v := range combat.Compute(in, combat.AA) {
		expected += float64(v.Dice*v.HitThreshold) / float64(l.rules.DiceSides)
	}
	k := int(math.Round(expected))
	if k <= 0 {
		return nil
	}
	air := losses.Sequence(combat.AATargets(enemy))
	return air[:min(k, len(air))]
}

func (f *force) remaining() core.UnitGroup {
	var g core.UnitGroup
	g = append(g, f.units[len(f.units)-f.n:]...)
	g = append(g, f.others...)
	return g.SortedByID()
}

// Approximate removes the air expected to fall to AA fire, then runs
// exchanges until a side has no units left. In each
// exchange the weaker side loses ceil(n * min(1, S_strong / (2 * S_weak)))
// units and the stronger side's strength drops by the strength the weaker
// side lost. Equal sides both lose half their units.
func (l *Lanchester) Approximate(m Matchup) AggregateResult {
	start := time.Now()
	e := l.exponent
	attackers := m.Attacker.Without(l.shotDown(core.Defender, m.Defender, m.Attacker, m.Territory, m.AttackerLosses()))
	defenders := m.Defender.Without(l.shotDown(core.Attacker, m.Attacker, m.Defender, m.Territory, m.DefenderLosses()))
	att := l.newForce(core.Attacker, attackers, defenders, m.Bombarding, m.Territory, m.AttackerLosses())
	def := l.newForce(core.Defender, defenders, attackers, nil, m.Territory, m.DefenderLosses())

	res := AggregateResult{RunCount: 1, Estimator: lanchesterName}
	initialAtt, initialDef := att.s, def.s
	contested := att.n > 0 && def.n > 0

	exchanges := 0
	for att.n > 0 && def.n > 0 && att.s+def.s > 0 {
		exchanges++
		switch {
		case nearlyEqual(att.s, def.s):
			att.lose(ceilHalf(att.n), e)
			def.lose(ceilHalf(def.n), e)
		case att.s > def.s:
			exchange(att, def, e)
		default:
			exchange(def, att, e)
		}
	}

	attLeft, defLeft := att.remaining(), def.remaining()
	switch {
	case att.n > 0 && def.n > 0:
		res.Winner = battle.Draw
	case att.n > 0:
		res.Winner = battle.WinnerAttacker
	case def.n > 0:
		res.Winner = battle.WinnerDefender
	default:
		res.Winner = battle.Draw
	}

	switch {
	case contested && initialAtt+initialDef > 0:
		res.AttackerWinPercent = initialAtt / (initialAtt + initialDef)
		res.DefenderWinPercent = 1 - res.AttackerWinPercent
	case res.Winner == battle.WinnerAttacker:
		res.AttackerWinPercent = 1
	case res.Winner == battle.WinnerDefender:
		res.DefenderWinPercent = 1
	default:
		res.DrawPercent = 1
	}

	res.AverageRounds = float64(exchanges)
	res.AttackerRemaining = attLeft
	res.DefenderRemaining = defLeft
	res.AttackerSurvivors = attLeft.CountByType()
	res.DefenderSurvivors = defLeft.CountByType()
	res.AverageAttackerUnitsLeft = float64(len(attLeft))
	res.AverageDefenderUnitsLeft = float64(len(defLeft))
	switch res.Winner {
	case battle.WinnerAttacker:
		res.AverageAttackerUnitsLeftWhenAttackerWon = res.AverageAttackerUnitsLeft
	case battle.WinnerDefender:
		res.AverageDefenderUnitsLeftWhenDefenderWon = res.AverageDefenderUnitsLeft
	}
	res.AverageAttackerTUVLeft = float64(attLeft.TUV())
	res.AverageDefenderTUVLeft = float64(defLeft.TUV())
	attLost := m.Attacker.TUV() - attLeft.TUV()
	defLost := m.Defender.TUV() - defLeft.TUV()
	res.AverageTUVSwing = float64(defLost - attLost)
	res.Elapsed = time.Since(start)
	return res
}

func exchange(strong, weak *force, e float64) {
	if weak.s == 0 {
		weak.lose(weak.n, e)
		return
	}
	frac := math.Min(1, 0.5*strong.s/weak.s)
	k := int(math.Ceil(float64(weak.n) * frac))
	if k < 1 {
		k = 1
	}
	ds := weak.lose(k, e)
	strong.absorb(ds, e)
}

func ceilHalf(n int) int {
	return (n + 1) / 2
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
