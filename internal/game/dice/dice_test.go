package dice

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronized_SameSeedSameSequence(t *testing.T) {
	seeds := []uint64{0, 1, 42, 1 << 40, ^uint64(0)}
	calls := [][2]int{{3, 6}, {1, 6}, {10, 12}, {0, 6}, {7, 20}, {2, 2}}

	for _, seed := range seeds {
		a := NewSynchronized(seed)
		b := NewSynchronized(seed)
		for _, c := range calls {
			ra, err := a.Roll(c[0], c[1])
			require.NoError(t, err)
			rb, err := b.Roll(c[0], c[1])
			require.NoError(t, err)
			assert.Equal(t, ra, rb, "seed %d", seed)
			assert.Len(t, ra, c[0])
		}
		assert.Equal(t, seed, a.Seed())
		assert.Equal(t, len(calls), a.Calls())
	}
}

func TestSynchronized_DifferentSeedsDiverge(t *testing.T) {
	a, err := NewSynchronized(1).Roll(50, 6)
	require.NoError(t, err)
	b, err := NewSynchronized(2).Roll(50, 6)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSynchronized_ConcurrentUse(t *testing.T) {
	s := NewSynchronized(7)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := s.Roll(3, 6)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, s.Calls())
}

func TestSources_FacesInRange(t *testing.T) {
	sources := map[string]Source{
		"synchronized": NewSynchronized(99),
		"fast":         NewFast(),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			seen := make(map[int]bool)
			faces, err := src.Roll(2000, 6)
			require.NoError(t, err)
			for _, f := range faces {
				require.GreaterOrEqual(t, f, 1)
				require.LessOrEqual(t, f, 6)
				seen[f] = true
			}
			assert.Len(t, seen, 6, "every face should come up in 2000 rolls")
		})
	}
}

func TestSources_RejectInvalidRequests(t *testing.T) {
	sources := map[string]Source{
		"synchronized": NewSynchronized(1),
		"fast":         NewFast(),
		"scripted":     NewScripted(1, 2, 3),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			_, err := src.Roll(1, 0)
			assert.ErrorIs(t, err, ErrInvalidDice)
			_, err = src.Roll(-1, 6)
			assert.ErrorIs(t, err, ErrInvalidDice)

			faces, err := src.Roll(0, 6)
			require.NoError(t, err)
			assert.Empty(t, faces)
		})
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted(1, 6, 3)

	faces, err := s.Roll(2, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6}, faces)
	assert.Equal(t, 1, s.Remaining())

	_, err = s.Roll(2, 6)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, s.Remaining(), "nothing consumed on error")

	_, err = s.Roll(1, 2)
	assert.ErrorIs(t, err, ErrInvalidDice)

	s.Append(4)
	faces, err = s.Roll(2, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, faces)
}

func TestEvaluate(t *testing.T) {
	r, err := Evaluate([]int{1, 4, 3, 6}, []int{1, 3, 3, 6})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Hits())
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, "[1 4 3 6] vs [1 3 3 6]: 3 hits", r.String())

	faces := r.Faces()
	faces[0] = 99
	assert.Equal(t, []int{1, 4, 3, 6}, r.Faces(), "result is immutable")

	_, err = Evaluate([]int{1}, []int{1, 2})
	assert.ErrorIs(t, err, ErrInvalidDice)

	empty, err := Evaluate(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Hits())
}

func TestRollAgainst(t *testing.T) {
	r, err := RollAgainst(NewScripted(2, 5, 1), 6, []int{2, 4, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Hits())
	assert.Equal(t, []int{2, 4, 0}, r.Thresholds())

	_, err = RollAgainst(NewScripted(), 6, []int{3})
	assert.ErrorIs(t, err, ErrExhausted)
}
