package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lox/toptrumps/internal/deck"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func card(id string, attrs map[string]float64) deck.Card {
	return deck.Card{ID: id, Name: id, Attributes: attrs}
}

// testDeck has PIB (higher wins), Fundação (lower wins) and População.
func testDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d, err := deck.New("test", "Test", []string{"PIB", "Fundação", "População"}, []deck.Card{
		card("a1", map[string]float64{"PIB": 500, "Fundação": 1900, "População": 10}),
		card("b1", map[string]float64{"PIB": 500, "Fundação": 1950, "População": 20}),
		card("c1", map[string]float64{"PIB": 100, "Fundação": 1200, "População": 30}),
		card("a2", map[string]float64{"PIB": 50, "Fundação": 1500, "População": 40}),
		card("b2", map[string]float64{"PIB": 900, "Fundação": 1600, "População": 5}),
		card("c2", map[string]float64{"PIB": 10, "Fundação": 1700, "População": 1}),
		card("odd", map[string]float64{"PIB": 1}),
	})
	require.NoError(t, err)
	return d
}

// xDeck is the four card single attribute deck from the rules walkthrough.
func xDeck(t *testing.T) *deck.Deck {
	t.Helper()
	d, err := deck.New("x", "X", []string{"X"}, []deck.Card{
		card("x10", map[string]float64{"X": 10}),
		card("x20", map[string]float64{"X": 20}),
		card("x5", map[string]float64{"X": 5}),
		card("x3", map[string]float64{"X": 3}),
	})
	require.NoError(t, err)
	return d
}

// newTestRoom builds a room mid-match. The first nickname is the host.
func newTestRoom(phase Phase, current string, hands Hands) *Room {
	players := map[string]Player{}
	seat := 0
	host := ""
	for _, p := range sortedKeys(hands) {
		if host == "" {
			host = p
		}
		players[p] = Player{Nickname: p, Seat: seat, IsHost: host == p, Status: StatusActive, IsReady: true}
		seat++
	}
	return &Room{
		DeckID:       "test",
		HostNickname: host,
		Status:       RoomPlaying,
		Players:      players,
		GameState: &State{
			CurrentRound:      1,
			CurrentPlayer:     current,
			Phase:             phase,
			PlayerCards:       hands,
			CurrentRoundCards: map[string]string{},
			TiePot:            []string{},
		},
	}
}

// step reduces an intent and applies the patch, failing the test on error.
func step(t *testing.T, r *Room, d *deck.Deck, in Intent) *Room {
	t.Helper()
	patch, err := Reduce(r, d, in, testNow)
	require.NoError(t, err, "intent %s", in.Name())
	next, err := Apply(r, patch)
	require.NoError(t, err)
	return next
}
