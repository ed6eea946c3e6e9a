package game

import (
	rand "math/rand/v2"
	"time"

	"github.com/lox/toptrumps/internal/deck"
)

// Setup is what the room collaborator hands over when a match starts.
type Setup struct {
	Code    string
	Players []Player // ordered; seat numbers are assigned from this order
}

// NewRoom deals the deck and builds the initial room document. The first
// player to choose is drawn before the spin so every client animates the
// same result. It returns the cards the deal could not share out evenly.
func NewRoom(setup Setup, d *deck.Deck, rng *rand.Rand, now time.Time) (*Room, []string, error) {
	if err := CheckStart(setup.Players, d); err != nil {
		return nil, nil, err
	}

	nicknames := make([]string, len(setup.Players))
	players := make(map[string]Player, len(setup.Players))
	host := ""
	for i, p := range setup.Players {
		p.Seat = i
		p.Status = StatusActive
		p.IsReady = true
		if p.JoinedAt.IsZero() {
			p.JoinedAt = now.UTC()
		}
		if p.IsHost {
			host = p.Nickname
		}
		players[p.Nickname] = p
		nicknames[i] = p.Nickname
	}

	hands, discarded := Distribute(rng, d, nicknames)
	first := PickFirst(rng, nicknames)

	return &Room{
		Code:         setup.Code,
		DeckID:       d.ID,
		HostNickname: host,
		Status:       RoomPlaying,
		Players:      players,
		GameState: &State{
			CurrentRound:      1,
			CurrentPlayer:     first,
			Phase:             PhaseSpinning,
			PlayerCards:       hands,
			CurrentRoundCards: map[string]string{},
			TiePot:            []string{},
			SpinResult:        first,
		},
	}, discarded, nil
}
