package game

import (
	"maps"
	"slices"
	"time"
)

// Phase is the stage of the current round.
type Phase string

const (
	PhaseSpinning  Phase = "spinning"
	PhaseSelecting Phase = "selecting"
	PhaseRevealing Phase = "revealing"
	PhaseComparing Phase = "comparing"
	PhaseTie       Phase = "tie"
	PhaseFinished  Phase = "finished"
)

func (p Phase) String() string { return string(p) }

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSpinning, PhaseSelecting, PhaseRevealing, PhaseComparing, PhaseTie, PhaseFinished:
		return true
	}
	return false
}

// AllowsAttribute reports whether selectedAttribute may be set in p.
func (p Phase) AllowsAttribute() bool {
	return p == PhaseRevealing || p == PhaseComparing || p == PhaseTie
}

// PlayerStatus is a player's lifecycle status within a match.
type PlayerStatus string

const (
	StatusActive     PlayerStatus = "active"
	StatusEliminated PlayerStatus = "eliminated"
)

// RoomStatus tracks the whole match, as seen by the room collaborator.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Player is a participant in a match.
type Player struct {
	Nickname string       `json:"nickname"`
	Seat     int          `json:"seat"`
	IsHost   bool         `json:"isHost"`
	IsBot    bool         `json:"isBot,omitempty"`
	IsReady  bool         `json:"isReady"`
	Status   PlayerStatus `json:"status"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// Active reports whether the player is still in the match. Players written
// before a status was assigned count as active.
func (p Player) Active() bool {
	return p.Status != StatusEliminated
}

// PlayedCard is one player's card and its value for the compared attribute.
type PlayedCard struct {
	CardID string  `json:"cardId"`
	Value  float64 `json:"value"`
}

// RoundResult is a diagnostic record of one resolved round.
type RoundResult struct {
	Round     int                   `json:"roundNumber"`
	Attribute string                `json:"selectedAttribute"`
	Cards     map[string]PlayedCard `json:"playerCards"`
	Winners   []string              `json:"winners"`
	Tie       bool                  `json:"tie,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Hands maps nickname to owned card ids, in the order they were received.
type Hands map[string][]string

// Clone returns a deep copy of h.
func (h Hands) Clone() Hands {
	out := make(Hands, len(h))
	for k, v := range h {
		out[k] = slices.Clone(v)
	}
	return out
}

// State is the shared mutable document for one match.
type State struct {
	CurrentRound      int               `json:"currentRound"`
	CurrentPlayer     string            `json:"currentPlayer"`
	Phase             Phase             `json:"gamePhase"`
	PlayerCards       Hands             `json:"playerCards,omitempty"`
	CurrentRoundCards map[string]string `json:"currentRoundCards,omitempty"`
	SelectedAttribute string            `json:"selectedAttribute,omitempty"`
	RoundWinner       string            `json:"roundWinner,omitempty"`
	RoundWinners      []string          `json:"roundWinners,omitempty"`
	GameWinner        string            `json:"gameWinner,omitempty"`
	TiePot            []string          `json:"tiePot,omitempty"`
	RoundHistory      []RoundResult     `json:"roundHistory,omitempty"`
	SpinResult        string            `json:"spinResult,omitempty"`
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.PlayerCards = s.PlayerCards.Clone()
	out.CurrentRoundCards = maps.Clone(s.CurrentRoundCards)
	out.RoundWinners = slices.Clone(s.RoundWinners)
	out.TiePot = slices.Clone(s.TiePot)
	out.RoundHistory = slices.Clone(s.RoundHistory)
	return &out
}

// Hand returns the cards player can still play. Cards sitting in the tie
// pot are withheld from their previous owner until the pot is awarded.
func (s *State) Hand(player string) []string {
	cards := s.PlayerCards[player]
	if len(s.TiePot) == 0 {
		return slices.Clone(cards)
	}
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		if !slices.Contains(s.TiePot, c) {
			out = append(out, c)
		}
	}
	return out
}

// Hands returns the playable hand of every player.
func (s *State) Hands() Hands {
	out := make(Hands, len(s.PlayerCards))
	for p := range s.PlayerCards {
		out[p] = s.Hand(p)
	}
	return out
}

// HasPlayed reports whether player already submitted a card this round.
func (s *State) HasPlayed(player string) bool {
	_, ok := s.CurrentRoundCards[player]
	return ok
}

// Room is the whole document stored for one match: membership supplied by
// the room collaborator plus the shared game state.
type Room struct {
	Code         string            `json:"code,omitempty"`
	DeckID       string            `json:"deckId"`
	HostNickname string            `json:"hostNickname"`
	Status       RoomStatus        `json:"status"`
	Players      map[string]Player `json:"players,omitempty"`
	GameState    *State            `json:"gameState,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Players = maps.Clone(r.Players)
	out.GameState = r.GameState.Clone()
	return &out
}

// Roster returns every player ordered by seat.
func (r *Room) Roster() []Player {
	out := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Player) int {
		if a.Seat != b.Seat {
			return a.Seat - b.Seat
		}
		if a.Nickname < b.Nickname {
			return -1
		}
		if a.Nickname > b.Nickname {
			return 1
		}
		return 0
	})
	return out
}

// ActivePlayers returns the nicknames of active players in seat order.
func (r *Room) ActivePlayers() []string {
	var out []string
	for _, p := range r.Roster() {
		if p.Active() {
			out = append(out, p.Nickname)
		}
	}
	return out
}

// IsActive reports whether nickname is a member with status active.
func (r *Room) IsActive(nickname string) bool {
	p, ok := r.Players[nickname]
	return ok && p.Active()
}

// RoundComplete reports whether every active player has submitted a card.
func (r *Room) RoundComplete() bool {
	st := r.GameState
	if st == nil {
		return false
	}
	active := r.ActivePlayers()
	if len(active) == 0 {
		return false
	}
	for _, p := range active {
		if !st.HasPlayed(p) {
			return false
		}
	}
	return true
}
