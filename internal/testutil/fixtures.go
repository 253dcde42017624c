package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
)

// Forces holds the unit factory and ruleset used to build a test matchup so
// that unit IDs stay unique across both sides.
type Forces struct {
	Rules   *rules.Ruleset
	Factory *core.UnitFactory
}

// NewForces returns a fixture backed by the classic ruleset.
func NewForces() *Forces {
	return &Forces{Rules: rules.Classic(), Factory: core.NewUnitFactory()}
}

// Group creates count units of each named type, in argument order.
// Arguments alternate type name and count: Group(t, "Germans", "infantry", 2, "armour", 1).
func (f *Forces) Group(t testing.TB, owner string, typeCounts ...interface{}) core.UnitGroup {
	t.Helper()
	require.Zero(t, len(typeCounts)%2, "typeCounts must alternate name and count")

	var g core.UnitGroup
	for i := 0; i < len(typeCounts); i += 2 {
		name, ok := typeCounts[i].(string)
		require.True(t, ok, "argument %d must be a unit type name", i)
		count, ok := typeCounts[i+1].(int)
		require.True(t, ok, "argument %d must be a count", i+1)

		ut, err := f.Rules.UnitType(name)
		require.NoError(t, err)
		g = append(g, f.Factory.Create(ut, owner, count)...)
	}
	return g
}

// Land returns a plain land territory without effects.
func Land(name string) rules.Territory {
	return rules.Territory{Name: name}
}

// Sea returns a sea zone without effects.
func Sea(name string) rules.Territory {
	return rules.Territory{Name: name, Water: true}
}

// WithRules returns a shallow copy of the classic ruleset with its flags and
// round limit replaced, for tests that need a variant.
func WithRules(mutate func(rs *rules.Ruleset)) *rules.Ruleset {
	rs := *rules.Classic()
	mutate(&rs)
	return &rs
}
