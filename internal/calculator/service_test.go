package calculator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/battle"
	"github.com/mitchelldurbincs/wargame/internal/game/rules"
	"github.com/mitchelldurbincs/wargame/internal/odds"
	"github.com/mitchelldurbincs/wargame/internal/testutil"
)

func newService(t *testing.T, rs *rules.Ruleset, cache odds.Cache) *Service {
	t.Helper()
	s, err := New(rs, Options{
		RunCount:       100,
		MaxRunCount:    1000,
		ProgressEvery:  10,
		ExactThreshold: 200 * time.Millisecond,
		Timeout:        30 * time.Second,
	}, cache, nil, testutil.NopLogger())
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{}, nil, nil, testutil.NopLogger())
	assert.ErrorIs(t, err, odds.ErrInvalidConfig)

	_, err = New(rules.Classic(), Options{Exponent: -1}, nil, nil, testutil.NopLogger())
	assert.ErrorIs(t, err, odds.ErrInvalidConfig)
}

func TestCalculate_MonteCarlo(t *testing.T) {
	s := newService(t, rules.Classic(), nil)

	resp, err := s.Calculate(context.Background(), Request{
		Location: "Ukraine",
		Attacker: map[string]int{"armour": 50},
		Defender: map[string]int{"infantry": 1},
		RunCount: 200,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "monte_carlo", resp.Estimator)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 200, resp.Result.RunCount)
	assert.Greater(t, resp.Result.AttackerWinPercent, 0.99)
}

func TestCalculate_Lanchester(t *testing.T) {
	s := newService(t, rules.Classic(), nil)

	resp, err := s.Calculate(context.Background(), Request{
		Attacker:  map[string]int{"infantry": 3},
		Defender:  map[string]int{"infantry": 1},
		Estimator: "lanchester",
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, resp.Result)
	assert.Equal(t, battle.WinnerAttacker, resp.Result.Winner)
	assert.Equal(t, map[string]int{"infantry": 2}, resp.Result.AttackerSurvivors)
}

func TestCalculate_AdaptiveUsesFastUnderPressure(t *testing.T) {
	s := newService(t, rules.Classic(), nil)
	req := Request{
		Attacker:  map[string]int{"infantry": 3},
		Defender:  map[string]int{"infantry": 1},
		Estimator: "adaptive",
		TimeoutMS: 5,
	}

	resp, err := s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "lanchester", resp.Estimator)

	req.TimeoutMS = 0
	resp, err = s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "monte_carlo", resp.Estimator)
}

func TestCalculate_BadRequests(t *testing.T) {
	s := newService(t, rules.Classic(), nil)
	base := func() Request {
		return Request{Attacker: map[string]int{"infantry": 1}, Defender: map[string]int{"infantry": 1}}
	}

	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"unknown attacker type", func(r *Request) { r.Attacker = map[string]int{"dragon": 1} }},
		{"negative count", func(r *Request) { r.Defender = map[string]int{"infantry": -2} }},
		{"empty defender", func(r *Request) { r.Defender = nil }},
		{"unknown bombarder", func(r *Request) { r.Bombarding = map[string]int{"zeppelin": 1} }},
		{"unknown effect", func(r *Request) { r.Effects = []string{"swamp"} }},
		{"run count too large", func(r *Request) { r.RunCount = 5000 }},
		{"negative run count", func(r *Request) { r.RunCount = -1 }},
		{"negative max rounds", func(r *Request) { r.MaxRounds = -1 }},
		{"unknown estimator", func(r *Request) { r.Estimator = "oracle" }},
		{"bad exponent", func(r *Request) { r.Exponent = -2 }},
		{"unknown type in attacker order", func(r *Request) { r.AttackerOrder = []string{"infantry", "dragon"} }},
		{"unknown type in defender order", func(r *Request) { r.DefenderOrder = []string{"zeppelin"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)
			_, err := s.Calculate(context.Background(), req, nil)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestCalculate_CouldNotCompute(t *testing.T) {
	broken := testutil.WithRules(func(rs *rules.Ruleset) { rs.MaxRounds = 0 })
	s := newService(t, broken, nil)

	resp, err := s.Calculate(context.Background(), Request{
		Attacker: map[string]int{"infantry": 2},
		Defender: map[string]int{"infantry": 2},
		RunCount: 10,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCouldNotCompute, resp.Status)
	assert.Nil(t, resp.Result)
	assert.NotEmpty(t, resp.Reason)

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Failures)
}

func TestCalculate_CancelledBeforeStart(t *testing.T) {
	s := newService(t, rules.Classic(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := s.Calculate(ctx, Request{
		Attacker: map[string]int{"infantry": 2},
		Defender: map[string]int{"infantry": 2},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCouldNotCompute, resp.Status)
}

func TestCalculate_OrderOfLosses(t *testing.T) {
	s := newService(t, rules.Classic(), odds.NewMemoryCache(time.Minute, 0))
	req := Request{
		Attacker:  map[string]int{"infantry": 2, "armour": 1},
		Defender:  map[string]int{"infantry": 2},
		Estimator: "lanchester",
	}

	tests := []struct {
		name      string
		order     []string
		survivors map[string]int
	}{
		{"cheapest first", nil, map[string]int{"armour": 1}},
		{"armour first", []string{"armour"}, map[string]int{"infantry": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.AttackerOrder = tt.order
			resp, err := s.Calculate(context.Background(), req, nil)
			require.NoError(t, err)
			require.NotNil(t, resp.Result)
			assert.False(t, resp.Result.Cached, "orders are cached apart")
			assert.Equal(t, tt.survivors, resp.Result.AttackerSurvivors)
			assert.Equal(t, 1.0, resp.Result.AverageAttackerUnitsLeftWhenAttackerWon)
		})
	}
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, []string{"armour", "infantry"}, ParseOrder(" armour, ,infantry "))
	assert.Nil(t, ParseOrder(""))
}

func TestCalculate_Cache(t *testing.T) {
	s := newService(t, rules.Classic(), odds.NewMemoryCache(time.Minute, 0))
	req := Request{
		Attacker: map[string]int{"infantry": 2, "artillery": 1},
		Defender: map[string]int{"infantry": 2},
		RunCount: 50,
	}

	first, err := s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, first.Result.Cached)

	second, err := s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, second.Result.Cached)
	assert.Equal(t, first.Result.AttackerWinPercent, second.Result.AttackerWinPercent)

	req.RunCount = 60
	third, err := s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, third.Result.Cached)

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(3), stats[0].Requests)
	assert.Equal(t, int64(1), stats[0].CacheHits)
}

func TestCalculate_Progress(t *testing.T) {
	s := newService(t, rules.Classic(), odds.NewMemoryCache(time.Minute, 0))
	var calls atomic.Int64

	resp, err := s.Calculate(context.Background(), Request{
		Attacker: map[string]int{"armour": 2},
		Defender: map[string]int{"infantry": 2},
		RunCount: 40,
	}, func(snap odds.AggregateResult) {
		calls.Add(1)
		assert.LessOrEqual(t, snap.RunCount, 40)
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, int64(4), calls.Load())
}

func TestCalculate_Retreat(t *testing.T) {
	s := newService(t, rules.Classic(), nil)

	resp, err := s.Calculate(context.Background(), Request{
		Attacker: map[string]int{"infantry": 3},
		Defender: map[string]int{"infantry": 10},
		Retreat:  &Retreat{AfterRound: 1},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Result)
	assert.LessOrEqual(t, resp.Result.AverageRounds, 1.0)
	assert.Equal(t, 1.0, resp.Result.DefenderWinPercent)
}

func TestRulesInfo(t *testing.T) {
	s := newService(t, rules.Classic(), nil)
	info := s.RulesInfo()

	assert.Equal(t, "classic", info.Name)
	assert.Equal(t, 6, info.DiceSides)
	assert.Equal(t, []string{"forest", "mountains"}, info.TerritoryEffects)
	require.NotEmpty(t, info.UnitTypes)
	for i := 1; i < len(info.UnitTypes); i++ {
		assert.Less(t, info.UnitTypes[i-1].Name, info.UnitTypes[i].Name)
	}
	assert.True(t, info.Flags.AAFirstRoundOnly)
}

type recordingTracker struct {
	mu      sync.Mutex
	active  map[string]int
	highest map[string]int
}

func (r *recordingTracker) Track(group string, n int) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[group] += n
	r.highest[group] = max(r.highest[group], r.active[group])
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.active[group] -= n
	}
}

func TestCalculate_TracksWorkers(t *testing.T) {
	s, err := New(rules.Classic(), Options{RunCount: 50, Workers: 3}, nil, nil, testutil.NopLogger())
	require.NoError(t, err)
	tr := &recordingTracker{active: map[string]int{}, highest: map[string]int{}}
	s.TrackGoroutines(tr)

	req := Request{Attacker: map[string]int{"infantry": 2}, Defender: map[string]int{"infantry": 2}}
	_, err = s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)

	req.RunCount = 2
	_, err = s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)

	req.Estimator = "lanchester"
	_, err = s.Calculate(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, tr.highest["monte_carlo"])
	assert.Equal(t, 0, tr.active["monte_carlo"])
	assert.Equal(t, 0, tr.highest["lanchester"])
}
