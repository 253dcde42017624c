package casualty

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
	"github.com/mitchelldurbincs/wargame/internal/testutil"
)

func names(g core.UnitGroup) []string {
	out := make([]string, len(g))
	for i, u := range g {
		out[i] = u.Type.Name
	}
	return out
}

func TestOrder_CheapestFirstStableByID(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "Germans", "armour", 1, "infantry", 2, "artillery", 1, "infantry", 1)

	ordered := Order(g)
	assert.Equal(t, []string{"infantry", "infantry", "infantry", "artillery", "armour"}, names(ordered))
	assert.Equal(t, 2, ordered[0].ID)
	assert.Equal(t, 3, ordered[1].ID)
	assert.Equal(t, 5, ordered[2].ID)
	assert.Equal(t, "armour", g[0].Type.Name, "input untouched")
}

func TestCheapestFirst_CapInvariant(t *testing.T) {
	f := testutil.NewForces()
	for n := 0; n <= 5; n++ {
		for hits := 0; hits <= 8; hits++ {
			g := f.Group(t, "Germans", "infantry", n)
			c, err := CheapestFirst{}.Select(context.Background(), Request{Targets: g, Hits: hits})
			require.NoError(t, err)

			want := hits
			if want > n {
				want = n
			}
			assert.Len(t, c.Killed, want, "n=%d hits=%d", n, hits)
			assert.Empty(t, c.Damaged)
			require.NoError(t, Validate(Request{Targets: g, Hits: hits}, c))
		}
	}
}

func TestCheapestFirst_MultiHitPointUnitsAbsorbFirst(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "British", "battleship", 1, "destroyer", 1, "transport", 1)

	tests := []struct {
		hits    int
		killed  []string
		damaged []string
	}{
		{hits: 1, damaged: []string{"battleship"}},
		{hits: 2, killed: []string{"transport"}, damaged: []string{"battleship"}},
		{hits: 3, killed: []string{"transport", "destroyer"}, damaged: []string{"battleship"}},
		{hits: 4, killed: []string{"transport", "destroyer", "battleship"}},
		{hits: 9, killed: []string{"transport", "destroyer", "battleship"}},
	}
	for _, tt := range tests {
		req := Request{Targets: g, Hits: tt.hits}
		c, err := CheapestFirst{}.Select(context.Background(), req)
		require.NoError(t, err)
		if tt.killed == nil {
			assert.Empty(t, c.Killed, "hits=%d", tt.hits)
		} else {
			assert.Equal(t, tt.killed, names(c.Killed), "hits=%d", tt.hits)
		}
		if tt.damaged == nil {
			assert.Empty(t, c.Damaged, "hits=%d", tt.hits)
		} else {
			assert.Equal(t, tt.damaged, names(c.Damaged), "hits=%d", tt.hits)
		}
		assert.NoError(t, Validate(req, c))
	}
}

func TestCheapestFirst_DamagedUnitDiesToOneHit(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "British", "battleship", 1)
	g[0].Hits = 1

	c, err := CheapestFirst{}.Select(context.Background(), Request{Targets: g, Hits: 1})
	require.NoError(t, err)
	assert.Len(t, c.Killed, 1)
	assert.Empty(t, c.Damaged)
}

func TestAA_KillsOutrightAndOnlyAir(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "Germans", "bomber", 1, "fighter", 2, "armour", 3)

	c, err := AA{}.Select(context.Background(), Request{Targets: g, Hits: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"fighter", "fighter"}, names(c.Killed))

	c, err = AA{}.Select(context.Background(), Request{Targets: g, Hits: 10})
	require.NoError(t, err)
	assert.Len(t, c.Killed, 3, "capped at air units")
	assert.Empty(t, c.Damaged)
}

func TestPlayerChosen(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "Russians", "infantry", 2, "armour", 1)
	ctx := context.Background()

	keepInfantry := ChooserFunc(func(_ context.Context, req Request, suggested Casualties) (Casualties, error) {
		assert.Len(t, suggested.Killed, 1)
		return Casualties{Killed: req.Targets.Filter(func(u *core.Unit) bool { return u.Type.Name == "armour" })}, nil
	})
	c, err := PlayerChosen{Chooser: keepInfantry}.Select(ctx, Request{Targets: g, Hits: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"armour"}, names(c.Killed))

	tooMany := ChooserFunc(func(_ context.Context, req Request, _ Casualties) (Casualties, error) {
		return Casualties{Killed: req.Targets}, nil
	})
	_, err = PlayerChosen{Chooser: tooMany}.Select(ctx, Request{Targets: g, Hits: 1})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	stranger := f.Group(t, "Russians", "infantry", 1)
	outsider := ChooserFunc(func(context.Context, Request, Casualties) (Casualties, error) {
		return Casualties{Killed: stranger}, nil
	})
	_, err = PlayerChosen{Chooser: outsider}.Select(ctx, Request{Targets: g, Hits: 1})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	waiting := ChooserFunc(func(context.Context, Request, Casualties) (Casualties, error) {
		return Casualties{}, ErrAwaitingInput
	})
	_, err = PlayerChosen{Chooser: waiting}.Select(ctx, Request{Targets: g, Hits: 1})
	assert.True(t, errors.Is(err, ErrAwaitingInput))

	c, err = PlayerChosen{Chooser: waiting}.Select(ctx, Request{Targets: g, Hits: 0})
	require.NoError(t, err, "no hits, no question")
	assert.True(t, c.Empty())
}

func TestPending(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "Russians", "infantry", 2)
	p := NewPending()
	policy := PlayerChosen{Chooser: p}
	req := Request{BattleID: "b1", Round: 1, Side: core.Defender, Targets: g, Hits: 1}

	_, err := policy.Select(context.Background(), req)
	require.ErrorIs(t, err, ErrAwaitingInput)

	p.Provide(req, Casualties{Killed: g[1:]})
	c, err := policy.Select(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, g[1].ID, c.Killed[0].ID)

	_, err = policy.Select(context.Background(), req)
	assert.ErrorIs(t, err, ErrAwaitingInput, "decisions are used once")
}

func TestValidate_RejectsOverDamage(t *testing.T) {
	f := testutil.NewForces()
	g := f.Group(t, "British", "battleship", 1)
	req := Request{Targets: g, Hits: 2}

	err := Validate(req, Casualties{Damaged: core.UnitGroup{g[0], g[0]}})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	aaReq := Request{Targets: g, Hits: 1, AA: true}
	err = Validate(aaReq, Casualties{Damaged: g})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	dup := Request{Targets: f.Group(t, "British", "infantry", 2), Hits: 2}
	err = Validate(dup, Casualties{Killed: core.UnitGroup{dup.Targets[0], dup.Targets[0]}})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
