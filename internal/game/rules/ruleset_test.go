package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

func TestClassic_LoadsAndValidates(t *testing.T) {
	rs := Classic()
	require.NotNil(t, rs)

	assert.Equal(t, "classic", rs.Name)
	assert.Equal(t, 6, rs.DiceSides)
	assert.Positive(t, rs.MaxRounds)
	assert.True(t, rs.Flags.AAFirstRoundOnly)

	inf, err := rs.UnitType("infantry")
	require.NoError(t, err)
	assert.Equal(t, 1, inf.Attack)
	assert.Equal(t, 2, inf.Defense)
	assert.Equal(t, 3, inf.Cost)

	sub, err := rs.UnitType("submarine")
	require.NoError(t, err)
	assert.Equal(t, core.Sea, sub.Domain)
	assert.True(t, sub.FirstStrike)
	assert.True(t, sub.CannotTargetAir)

	bb, err := rs.UnitType("battleship")
	require.NoError(t, err)
	assert.Equal(t, 2, bb.MaxHitPoints())

	aa, err := rs.UnitType("aaGun")
	require.NoError(t, err)
	assert.True(t, aa.IsAA)
	assert.False(t, aa.IsCombatant())

	require.Len(t, rs.Supports, 1)
	assert.Equal(t, SupportOffence, rs.Supports[0].Side)
	assert.True(t, rs.Supports[0].Supports("infantry"))
	assert.False(t, rs.Supports[0].Supports("armour"))
}

func TestClassic_IsShared(t *testing.T) {
	assert.Same(t, Classic(), Classic())
}

func TestRuleset_UnitTypeUnknown(t *testing.T) {
	_, err := Classic().UnitType("zeppelin")
	assert.ErrorIs(t, err, core.ErrUnknownUnitType)
}

func TestRuleset_UnitTypeNamesSorted(t *testing.T) {
	names := Classic().UnitTypeNames()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
}

func TestRuleset_Territory(t *testing.T) {
	rs := Classic()

	terr, err := rs.Territory("Caucasus", false, "mountains")
	require.NoError(t, err)
	assert.Equal(t, 1, terr.Modifier("infantry", core.Defender))
	assert.Equal(t, 0, terr.Modifier("infantry", core.Attacker))
	assert.Equal(t, -1, terr.Modifier("armour", core.Attacker))

	both, err := rs.Territory("Karelia", false, "mountains", "forest")
	require.NoError(t, err)
	assert.Equal(t, -2, both.Modifier("armour", core.Attacker))

	_, err = rs.Territory("Nowhere", false, "swamp")
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestRuleset_GroupIDsFollowTypeNameOrder(t *testing.T) {
	rs := Classic()
	f := core.NewUnitFactory()

	g, err := rs.Group(f, "Germans", map[string]int{"infantry": 2, "armour": 1})
	require.NoError(t, err)
	require.Len(t, g, 3)
	assert.Equal(t, "armour", g[0].Type.Name)
	assert.Equal(t, 1, g[0].ID)
	assert.Equal(t, "infantry", g[2].Type.Name)
	assert.Equal(t, 3, g[2].ID)

	_, err = rs.Group(f, "Germans", map[string]int{"zeppelin": 1})
	assert.ErrorIs(t, err, core.ErrUnknownUnitType)

	_, err = rs.Group(f, "Germans", map[string]int{"infantry": -1})
	assert.Error(t, err)
}

func TestParse_RejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "zero dice sides",
			yaml: `
dice_sides: 0
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
`,
		},
		{
			name: "zero max rounds",
			yaml: `
dice_sides: 6
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
`,
		},
		{
			name: "no unit types",
			yaml: `
dice_sides: 6
max_rounds: 10
`,
		},
		{
			name: "negative strength",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: -1, defense: 2}
`,
		},
		{
			name: "support references unknown target",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  artillery: {cost: 4, attack: 2, defense: 2}
supports:
  - name: artillery_support
    provider: artillery
    targets: [marine]
    bonus: 1
`,
		},
		{
			name: "support references unknown provider",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
supports:
  - name: artillery_support
    provider: artillery
    targets: [infantry]
`,
		},
		{
			name: "unknown support side",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
supports:
  - name: s
    provider: infantry
    targets: [infantry]
    side: sideways
`,
		},
		{
			name: "unknown domain",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2, domain: space}
`,
		},
		{
			name: "aa without strength",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  aaGun: {cost: 5, is_aa: true}
`,
		},
		{
			name: "territory effect references unknown unit type",
			yaml: `
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
territory_effects:
  mountains:
    armour: {offence: -1}
`,
		},
		{
			name: "malformed yaml",
			yaml: "dice_sides: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRules)
		})
	}
}

func TestParse_SupportCountDefaultsToOne(t *testing.T) {
	rs, err := Parse([]byte(`
dice_sides: 6
max_rounds: 10
unit_types:
  infantry: {cost: 3, attack: 1, defense: 2}
  artillery: {cost: 4, attack: 2, defense: 2}
supports:
  - name: artillery_support
    provider: artillery
    targets: [infantry]
    side: offense
    bonus: 1
`))
	require.NoError(t, err)
	require.Len(t, rs.Supports, 1)
	assert.Equal(t, 1, rs.Supports[0].Count)
	assert.Equal(t, SupportOffence, rs.Supports[0].Side)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
dice_sides: 12
max_rounds: 5
unit_types:
  infantry: {cost: 3, attack: 2, defense: 4}
`), 0o644))

	rs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", rs.Name)
	assert.Equal(t, 12, rs.DiceSides)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSupportSide_AppliesTo(t *testing.T) {
	assert.True(t, SupportBoth.AppliesTo(core.Attacker))
	assert.True(t, SupportBoth.AppliesTo(core.Defender))
	assert.True(t, SupportOffence.AppliesTo(core.Attacker))
	assert.False(t, SupportOffence.AppliesTo(core.Defender))
	assert.False(t, SupportDefence.AppliesTo(core.Attacker))
	assert.True(t, SupportDefence.AppliesTo(core.Defender))
}
