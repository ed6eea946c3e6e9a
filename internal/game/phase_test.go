package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PhaseSpinning, PhaseSelecting))
	assert.True(t, CanTransition(PhaseRevealing, PhaseTie))
	assert.True(t, CanTransition(PhaseTie, PhaseSelecting))
	assert.True(t, CanTransition(PhaseComparing, PhaseFinished))
	assert.False(t, CanTransition(PhaseSelecting, PhaseComparing))
	assert.False(t, CanTransition(PhaseFinished, PhaseSelecting))
}

func TestReduceBeginOnlyOnce(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseSpinning, "A", Hands{"A": {"a1"}, "B": {"b1"}})

	r = step(t, r, d, Begin{})
	assert.Equal(t, PhaseSelecting, r.GameState.Phase)

	_, err := Reduce(r, d, Begin{}, testNow)
	assert.ErrorIs(t, err, ErrNoOp)
}

func TestReducePlay(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseSelecting, "A", Hands{"A": {"a1", "a2"}, "B": {"b1", "b2"}})

	patch, err := Reduce(r, d, Play{Player: "A", CardID: "a2"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, Patch{"gameState/currentRoundCards/A": "a2"}, patch)

	r, err = Apply(r, patch)
	require.NoError(t, err)

	t.Run("repeat is a no-op", func(t *testing.T) {
		_, err := Reduce(r, d, Play{Player: "A", CardID: "a2"}, testNow)
		assert.ErrorIs(t, err, ErrNoOp)
	})

	t.Run("second card is rejected", func(t *testing.T) {
		_, err := Reduce(r, d, Play{Player: "A", CardID: "a1"}, testNow)
		assert.True(t, IsValidation(err))
	})

	t.Run("card not in hand", func(t *testing.T) {
		_, err := Reduce(r, d, Play{Player: "B", CardID: "a1"}, testNow)
		assert.True(t, IsValidation(err))
	})

	t.Run("stranger", func(t *testing.T) {
		_, err := Reduce(r, d, Play{Player: "Z", CardID: "b1"}, testNow)
		assert.True(t, IsValidation(err))
	})

	t.Run("last card reveals", func(t *testing.T) {
		patch, err := Reduce(r, d, Play{Player: "B", CardID: "b1"}, testNow)
		require.NoError(t, err)
		assert.Equal(t, PhaseRevealing, patch["gameState/gamePhase"])
	})
}

func TestReduceReveal(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseSelecting, "A", Hands{"A": {"a1"}, "B": {"b1"}})

	_, err := Reduce(r, d, Reveal{}, testNow)
	assert.ErrorIs(t, err, ErrNotReady)

	r.GameState.CurrentRoundCards = map[string]string{"A": "a1", "B": "b1"}
	r = step(t, r, d, Reveal{})
	assert.Equal(t, PhaseRevealing, r.GameState.Phase)

	_, err = Reduce(r, d, Reveal{}, testNow)
	assert.ErrorIs(t, err, ErrNoOp)
}

func TestReduceSelect(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseRevealing, "A", Hands{"A": {"a1"}, "B": {"b1"}})
	r.GameState.CurrentRoundCards = map[string]string{"A": "a1", "B": "b1"}

	tests := []struct {
		name   string
		intent Select
		check  func(t *testing.T, err error)
	}{
		{"not your turn", Select{Player: "B", Attribute: "PIB"}, func(t *testing.T, err error) {
			assert.True(t, IsValidation(err))
		}},
		{"unknown attribute", Select{Player: "A", Attribute: "Altitude"}, func(t *testing.T, err error) {
			assert.True(t, IsValidation(err))
		}},
		{"valid", Select{Player: "A", Attribute: "PIB"}, func(t *testing.T, err error) {
			assert.NoError(t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(r, d, tt.intent, testNow)
			tt.check(t, err)
		})
	}

	r = step(t, r, d, Select{Player: "A", Attribute: "PIB"})
	_, err := Reduce(r, d, Select{Player: "A", Attribute: "PIB"}, testNow)
	assert.ErrorIs(t, err, ErrNoOp)

	_, err = Reduce(r, d, Select{Player: "A", Attribute: "População"}, testNow)
	assert.True(t, IsValidation(err), "attribute cannot change once chosen")

	sel := newTestRoom(PhaseSelecting, "A", Hands{"A": {"a1"}, "B": {"b1"}})
	_, err = Reduce(sel, d, Select{Player: "A", Attribute: "PIB"}, testNow)
	assert.True(t, IsValidation(err), "attribute waits for every card")
}

func TestReduceResolveIsIdempotent(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseRevealing, "A", Hands{"A": {"a1", "a2"}, "B": {"b1", "b2"}})
	r.GameState.CurrentRoundCards = map[string]string{"A": "a2", "B": "b2"}

	_, err := Reduce(r, d, ResolveRound{}, testNow)
	assert.ErrorIs(t, err, ErrNotReady, "no attribute yet")

	r.GameState.SelectedAttribute = "PIB"

	// Two clients derive the same patch from the same snapshot.
	p1, err := Reduce(r, d, ResolveRound{}, testNow)
	require.NoError(t, err)
	p2, err := Reduce(r, d, ResolveRound{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	once, err := Apply(r, p1)
	require.NoError(t, err)
	twice, err := Apply(once, p2)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	_, err = Reduce(once, d, ResolveRound{}, testNow)
	assert.ErrorIs(t, err, ErrNoOp)
	assert.Len(t, once.GameState.RoundHistory, 1)
}

func TestReduceTieKeepsChooser(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseRevealing, "B", Hands{"A": {"a1", "a2"}, "B": {"b1", "b2"}})
	r.GameState.CurrentRoundCards = map[string]string{"A": "a1", "B": "b1"}
	r.GameState.SelectedAttribute = "PIB"

	r = step(t, r, d, ResolveRound{})
	st := r.GameState
	assert.Equal(t, PhaseTie, st.Phase)
	assert.Empty(t, st.RoundWinner)
	assert.Equal(t, []string{"A", "B"}, st.RoundWinners)
	assert.Equal(t, []string{"a1", "b1"}, st.TiePot)
	assert.Equal(t, []string{"a1", "a2"}, st.PlayerCards["A"], "playerCards unchanged on a tie")
	assert.Equal(t, []string{"a2"}, st.Hand("A"))

	r = step(t, r, d, Advance{Player: "A"})
	assert.Equal(t, PhaseSelecting, r.GameState.Phase)
	assert.Equal(t, "B", r.GameState.CurrentPlayer)
	assert.Equal(t, []string{"a1", "b1"}, r.GameState.TiePot)

	r = step(t, r, d, Play{Player: "A", CardID: "a2"})
	r = step(t, r, d, Play{Player: "B", CardID: "b2"})
	r = step(t, r, d, Select{Player: "B", Attribute: "PIB"})
	r = step(t, r, d, ResolveRound{})

	st = r.GameState
	assert.Equal(t, "B", st.RoundWinner)
	assert.Empty(t, st.TiePot)
	assert.ElementsMatch(t, []string{"a1", "a2", "b1", "b2"}, st.Hand("B"))
	assert.Equal(t, StatusEliminated, r.Players["A"].Status)
}

func TestReduceTieOnLastCardsIsADraw(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseRevealing, "A", Hands{"A": {"a1"}, "B": {"b1"}})
	r.GameState.CurrentRoundCards = map[string]string{"A": "a1", "B": "b1"}
	r.GameState.SelectedAttribute = "PIB"

	r = step(t, r, d, ResolveRound{})
	assert.Equal(t, PhaseTie, r.GameState.Phase)

	r = step(t, r, d, Advance{Player: "A"})
	assert.Equal(t, PhaseFinished, r.GameState.Phase)
	assert.Empty(t, r.GameState.GameWinner)
	assert.Equal(t, RoomFinished, r.Status)
}

func TestReduceAdvance(t *testing.T) {
	d := testDeck(t)
	r := newTestRoom(PhaseComparing, "A", Hands{"A": {"a1"}, "B": {"b1"}, "C": {}})
	r.GameState.RoundWinner = "C"
	c := r.Players["C"]
	c.Status = StatusEliminated
	r.Players["C"] = c

	_, err := Reduce(r, d, Advance{Player: "B"}, testNow)
	assert.True(t, IsValidation(err), "only the host advances")

	r = step(t, r, d, Advance{Player: "A"})
	assert.Equal(t, "A", r.GameState.CurrentPlayer, "an eliminated winner passes the turn on")

	_, err = Reduce(r, d, Advance{Player: "A"}, testNow)
	assert.ErrorIs(t, err, ErrNoOp)
}

func TestReduceWithoutState(t *testing.T) {
	d := testDeck(t)
	_, err := Reduce(&Room{}, d, Begin{}, testNow)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "begin", verr.Op)
}

func TestPatchPrefixed(t *testing.T) {
	p := Patch{"gameState/gamePhase": PhaseTie, "status": RoomFinished}
	assert.Equal(t, []string{"gameState/gamePhase", "status"}, p.Paths())
	assert.Equal(t, map[string]any{
		"matches/m1/gameState/gamePhase": PhaseTie,
		"matches/m1/status":              RoomFinished,
	}, p.Prefixed("matches/m1"))
}
