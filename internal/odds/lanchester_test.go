package odds

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
	"github.com/mitchelldurbincs/wargame/internal/testutil"
)

func newLanchester(t *testing.T, f *testutil.Forces) *Lanchester {
	t.Helper()
	l, err := NewLanchester(f.Rules, 1.5)
	require.NoError(t, err)
	return l
}

func TestNewLanchester_Validation(t *testing.T) {
	f := testutil.NewForces()
	for _, e := range []float64{0, -1, 0.5, 0.999, math.NaN(), math.Inf(1)} {
		_, err := NewLanchester(f.Rules, e)
		assert.ErrorIs(t, err, ErrInvalidConfig, "exponent %v", e)
	}
	_, err := NewLanchester(nil, 1.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewLanchester(testutil.WithRules(func(rs *rules.Ruleset) { rs.DiceSides = 0 }), 1.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewLanchester(f.Rules, 1)
	assert.NoError(t, err)
}

func TestLanchester_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		attInf  int
		defInf  int
		winner  battle.Winner
		attLeft int
		defLeft int
		attOdds float64
		rounds  float64
	}{
		{"one against one", 1, 1, battle.WinnerDefender, 0, 1, 1.0 / 3.0, 1},
		{"three against one", 3, 1, battle.WinnerAttacker, 2, 0, 5.196152 / 7.196152, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewForces()
			m := Matchup{
				Attacker:  f.Group(t, "Germans", "infantry", tt.attInf),
				Defender:  f.Group(t, "Russians", "infantry", tt.defInf),
				Territory: testutil.Land("Belorussia"),
			}
			res := newLanchester(t, f).Approximate(m)

			assert.Equal(t, tt.winner, res.Winner)
			assert.Len(t, res.AttackerRemaining, tt.attLeft)
			assert.Len(t, res.DefenderRemaining, tt.defLeft)
			assert.InDelta(t, tt.attOdds, res.AttackerWinPercent, 1e-5)
			assert.InDelta(t, 1-tt.attOdds, res.DefenderWinPercent, 1e-5)
			assert.Equal(t, tt.rounds, res.AverageRounds)
			assert.Equal(t, 1, res.RunCount)
			assert.Equal(t, "lanchester", res.Estimator)
		})
	}
}

func TestLanchester_Monotonic(t *testing.T) {
	f := testutil.NewForces()
	l := newLanchester(t, f)
	def := f.Group(t, "Russians", "infantry", 4, "artillery", 1)

	prev := -1.0
	for n := 1; n <= 15; n++ {
		m := Matchup{Attacker: f.Group(t, "Germans", "infantry", n, "armour", 1), Defender: def}
		res := l.Approximate(m)
		assert.GreaterOrEqual(t, res.AttackerWinPercent, prev, "attacker with %d infantry", n)
		prev = res.AttackerWinPercent
	}

	att := f.Group(t, "Germans", "armour", 6)
	prev = -1.0
	for n := 1; n <= 15; n++ {
		m := Matchup{Attacker: att, Defender: f.Group(t, "Russians", "infantry", n)}
		res := l.Approximate(m)
		assert.GreaterOrEqual(t, res.DefenderWinPercent, prev, "defender with %d infantry", n)
		prev = res.DefenderWinPercent
	}
}

func TestLanchester_MonotonicAgainstAA(t *testing.T) {
	f := testutil.NewForces()
	l := newLanchester(t, f)
	def := f.Group(t, "Russians", "infantry", 1, "aaGun", 1)

	prev := -1.0
	for k := 0; k <= 6; k++ {
		att := f.Group(t, "Germans", "armour", 10)
		if k > 0 {
			att = append(att, f.Group(t, "Germans", "fighter", k)...)
		}
		res := l.Approximate(Matchup{Attacker: att, Defender: def, Territory: testutil.Land("Karelia")})
		assert.GreaterOrEqual(t, res.AttackerWinPercent, prev, "attacker with %d fighters", k)
		prev = res.AttackerWinPercent
	}
}

func TestLanchester_MonotonicWithZeroPowerUnits(t *testing.T) {
	f := testutil.NewForces()
	for _, e := range []float64{1, 1.5, 2} {
		l, err := NewLanchester(f.Rules, e)
		require.NoError(t, err)
		def := f.Group(t, "British", "destroyer", 2)

		prev := -1.0
		for k := 0; k <= 4; k++ {
			att := f.Group(t, "Germans", "cruiser", 2)
			if k > 0 {
				att = append(att, f.Group(t, "Germans", "transport", k)...)
			}
			res := l.Approximate(Matchup{Attacker: att, Defender: def, Territory: testutil.Sea("North Sea")})
			assert.GreaterOrEqual(t, res.AttackerWinPercent+1e-12, prev, "exponent %v with %d transports", e, k)
			prev = res.AttackerWinPercent
		}
	}
}

func TestLanchester_AAShootsDownAirFirst(t *testing.T) {
	f := testutil.NewForces()
	m := Matchup{
		Attacker:  f.Group(t, "Germans", "fighter", 3, "bomber", 3),
		Defender:  f.Group(t, "Russians", "aaGun", 1),
		Territory: testutil.Land("Karelia"),
	}
	res := newLanchester(t, f).Approximate(m)

	// Three AA dice at 1 in 6 are worth one fighter, the cheapest aircraft.
	assert.Equal(t, battle.WinnerAttacker, res.Winner)
	assert.Equal(t, map[string]int{"fighter": 2, "bomber": 3}, res.AttackerSurvivors)
	assert.Equal(t, map[string]int{"aaGun": 1}, res.DefenderSurvivors)
	assert.Equal(t, -10.0, res.AverageTUVSwing)
}

func TestLanchester_RemovesCheapestFirst(t *testing.T) {
	f := testutil.NewForces()
	m := Matchup{
		Attacker: f.Group(t, "Germans", "infantry", 2, "armour", 1),
		Defender: f.Group(t, "Russians", "infantry", 2),
	}
	res := newLanchester(t, f).Approximate(m)

	require.Equal(t, battle.WinnerAttacker, res.Winner)
	require.Len(t, res.AttackerRemaining, 1)
	assert.Equal(t, "armour", res.AttackerRemaining[0].Type.Name)
	assert.Equal(t, map[string]int{"armour": 1}, res.AttackerSurvivors)
	assert.Equal(t, 5.0, res.AverageAttackerTUVLeft)
	assert.Zero(t, res.AverageTUVSwing)
	assert.Equal(t, 1.0, res.AverageAttackerUnitsLeftWhenAttackerWon)
	assert.Zero(t, res.AverageDefenderUnitsLeftWhenDefenderWon)
}

func TestLanchester_FollowsOrderOfLosses(t *testing.T) {
	f := testutil.NewForces()
	tests := []struct {
		name      string
		matchup   func() Matchup
		survivors map[string]int
		swing     float64
	}{
		{
			name: "armour taken first",
			matchup: func() Matchup {
				return Matchup{
					Attacker:      f.Group(t, "Germans", "infantry", 2, "armour", 1),
					Defender:      f.Group(t, "Russians", "infantry", 2),
					AttackerOrder: []string{"armour"},
				}
			},
			survivors: map[string]int{"infantry": 1},
			swing:     -2,
		},
		{
			name: "bombers shot down before fighters",
			matchup: func() Matchup {
				return Matchup{
					Attacker:      f.Group(t, "Germans", "fighter", 3, "bomber", 3),
					Defender:      f.Group(t, "Russians", "aaGun", 1),
					Territory:     testutil.Land("Karelia"),
					AttackerOrder: []string{"bomber"},
				}
			},
			survivors: map[string]int{"fighter": 3, "bomber": 2},
			swing:     -12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newLanchester(t, f).Approximate(tt.matchup())
			require.Equal(t, battle.WinnerAttacker, res.Winner)
			assert.Equal(t, tt.survivors, res.AttackerSurvivors)
			assert.Equal(t, tt.swing, res.AverageTUVSwing)
		})
	}
}

func TestLanchester_NonCombatantsRemain(t *testing.T) {
	f := testutil.NewForces()
	m := Matchup{
		Attacker: f.Group(t, "Germans", "armour", 3),
		Defender: f.Group(t, "Russians", "infantry", 1, "factory", 1),
	}
	res := newLanchester(t, f).Approximate(m)

	assert.Equal(t, battle.WinnerAttacker, res.Winner)
	require.Len(t, res.DefenderRemaining, 1)
	assert.Equal(t, "factory", res.DefenderRemaining[0].Type.Name)
}

func TestLanchester_ZeroPower(t *testing.T) {
	f := testutil.NewForces()
	l := newLanchester(t, f)

	res := l.Approximate(Matchup{
		Attacker: f.Group(t, "Germans", "transport", 2),
		Defender: f.Group(t, "Russians", "infantry", 1),
	})
	assert.Equal(t, battle.WinnerDefender, res.Winner)
	assert.Zero(t, res.AttackerWinPercent)
	assert.Empty(t, res.AttackerRemaining)
	assert.Len(t, res.DefenderRemaining, 1)

	res = l.Approximate(Matchup{
		Attacker: f.Group(t, "Germans", "transport", 1),
		Defender: f.Group(t, "Russians", "kamikaze", 1),
	})
	assert.Equal(t, battle.Draw, res.Winner)
	assert.Equal(t, 1.0, res.DrawPercent)
	assert.Zero(t, res.AverageRounds)
	assert.Len(t, res.AttackerRemaining, 1)
	assert.Len(t, res.DefenderRemaining, 1)

	res = l.Approximate(Matchup{
		Attacker: f.Group(t, "Germans", "infantry", 1),
		Defender: f.Group(t, "Russians", "factory", 1),
	})
	assert.Equal(t, battle.WinnerAttacker, res.Winner)
	assert.Equal(t, 1.0, res.AttackerWinPercent)
}

func TestLanchester_EqualSides(t *testing.T) {
	f := testutil.NewForces()
	l := newLanchester(t, f)

	// Attacking artillery and defending infantry both fire at 2.
	res := l.Approximate(Matchup{
		Attacker: f.Group(t, "Germans", "artillery", 3),
		Defender: f.Group(t, "Russians", "infantry", 3),
	})
	assert.InDelta(t, 0.5, res.AttackerWinPercent, 1e-9)
	assert.Equal(t, battle.Draw, res.Winner)
	assert.Empty(t, res.AttackerRemaining)
	assert.Empty(t, res.DefenderRemaining)
}

func TestLanchester_Estimate(t *testing.T) {
	f := testutil.NewForces()
	l := newLanchester(t, f)
	m := Matchup{
		Attacker: f.Group(t, "Germans", "infantry", 3),
		Defender: f.Group(t, "Russians", "infantry", 1),
	}

	res, err := l.Estimate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, battle.WinnerAttacker, res.Winner)
	assert.Equal(t, 1.5, l.Exponent())
	for _, u := range m.Attacker {
		assert.Zero(t, u.Hits)
	}
}
