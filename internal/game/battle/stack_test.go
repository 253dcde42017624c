package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/wargame/internal/game/core"
)

func kinds(steps []Step) []StepKind {
	out := make([]StepKind, len(steps))
	for i, s := range steps {
		out[i] = s.Kind
	}
	return out
}

func TestStack_LIFO(t *testing.T) {
	var s Stack
	_, ok := s.Pop()
	assert.False(t, ok, "empty stack")
	assert.Empty(t, s.Snapshot())

	s.Push(Step{Kind: StepCheckEnd})
	s.Push(Step{Kind: StepRoundEnd})
	assert.Equal(t, 2, s.Len())

	top, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, StepRoundEnd, top.Kind)
	top, _ = s.Pop()
	assert.Equal(t, StepCheckEnd, top.Kind)
	assert.Zero(t, s.Len())
}

func TestStack_PushAllExecutesInOrder(t *testing.T) {
	var s Stack
	s.Push(Step{Kind: StepRoundEnd})
	s.PushAll(Step{Kind: StepAAFire}, Step{Kind: StepClearAACasualties}, Step{Kind: StepStandardFire})

	assert.Equal(t, []StepKind{StepAAFire, StepClearAACasualties, StepStandardFire, StepRoundEnd}, kinds(s.Snapshot()))

	first, _ := s.Pop()
	assert.Equal(t, StepAAFire, first.Kind)
}

func TestStack_Remove(t *testing.T) {
	var s Stack
	s.PushAll(roundSteps(1)...)
	total := s.Len()

	assert.Equal(t, 2, s.Remove(StepStandardFire))
	assert.Equal(t, total-2, s.Len())
	assert.NotContains(t, kinds(s.Snapshot()), StepStandardFire)
	assert.Zero(t, s.Remove(StepSelectCasualties))

	next, _ := s.Pop()
	assert.Equal(t, StepAAFire, next.Kind, "order of the rest is preserved")
}

func TestStack_SnapshotIsACopy(t *testing.T) {
	var s Stack
	s.PushAll(roundSteps(2)...)
	snap := s.Snapshot()
	snap[0].Kind = StepRoundEnd

	top, _ := s.Pop()
	assert.Equal(t, StepAAFire, top.Kind)
	assert.Equal(t, 2, top.Round)
}

func TestRoundSteps_Order(t *testing.T) {
	steps := roundSteps(3)
	assert.Equal(t, []StepKind{
		StepAAFire, StepAAFire, StepClearAACasualties, StepRemoveNonCombatants,
		StepBombard, StepSubmergeVsAir,
		StepFirstStrike, StepFirstStrike, StepClearFirstStrikeCasualties,
		StepStandardFire, StepStandardFire, StepClearCasualties,
		StepRemoveSuicide, StepCheckEnd, StepRetreatCheck, StepRoundEnd,
	}, kinds(steps))
	assert.Equal(t, core.Attacker, steps[0].Side)
	assert.Equal(t, core.Defender, steps[1].Side)
	for _, s := range steps {
		assert.Equal(t, 3, s.Round)
	}
}

func TestStepKind_String(t *testing.T) {
	assert.Equal(t, "aa_fire", StepAAFire.String())
	assert.Equal(t, "remove_submerged", StepRemoveSubmerged.String())
	assert.Equal(t, "Unknown(99)", StepKind(99).String())
	assert.True(t, StepStandardFire.IsFire())
	assert.False(t, StepSelectCasualties.IsFire())

	s := Step{Kind: StepSelectCasualties, Round: 2, Side: core.Defender, Hits: 3}
	assert.Equal(t, "select_casualties(round 2, defender takes 3 standard hits)", s.String())
}

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusFighting))
	assert.True(t, StatusFighting.CanTransitionTo(StatusAwaitingInput))
	assert.True(t, StatusAwaitingInput.CanTransitionTo(StatusFighting))
	assert.True(t, StatusFighting.CanTransitionTo(StatusEnded))
	assert.False(t, StatusPending.CanTransitionTo(StatusEnded))
	assert.False(t, StatusEnded.CanTransitionTo(StatusFighting))
	assert.Empty(t, StatusFailed.AllowedTransitions())

	assert.True(t, StatusEnded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusAwaitingInput.IsTerminal())
	assert.Equal(t, "AwaitingInput", StatusAwaitingInput.String())
	assert.Equal(t, "Unknown(42)", Status(42).String())
}

func TestWinner_ParseRoundTrip(t *testing.T) {
	for _, w := range []Winner{WinnerAttacker, WinnerDefender, Draw} {
		parsed, err := ParseWinner(w.String())
		require.NoError(t, err)
		assert.Equal(t, w, parsed)
	}
	_, err := ParseWinner("nobody")
	assert.Error(t, err)
}
