package game

import (
	rand "math/rand/v2"
	"slices"
	"sort"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/randutil"
)

// Distribute shuffles the deck and deals equal hands of len(deck)/len(players)
// cards in player order. Cards left over by the integer division are not
// dealt; they are returned as discarded so callers can report them.
func Distribute(rng *rand.Rand, d *deck.Deck, players []string) (Hands, []string) {
	hands := make(Hands, len(players))
	if len(players) == 0 {
		return hands, d.CardIDs()
	}

	shuffled := randutil.Shuffled(rng, d.CardIDs())
	per := len(shuffled) / len(players)
	for i, p := range players {
		hands[p] = slices.Clone(shuffled[i*per : (i+1)*per])
	}
	return hands, slices.Clone(shuffled[per*len(players):])
}

// PickFirst chooses the player who selects the first attribute.
func PickFirst(rng *rand.Rand, players []string) string {
	if len(players) == 0 {
		return ""
	}
	return players[rng.IntN(len(players))]
}

// CompareResult is the outcome of comparing one attribute across a round.
type CompareResult struct {
	Attribute string
	// Winners holds every player tied at the best value, sorted by nickname.
	Winners []string
	Values  map[string]PlayedCard
	// Skipped lists round entries that could not be compared.
	Skipped []*StateInconsistencyError
}

// Tie reports whether the round produced anything other than a single winner.
func (r CompareResult) Tie() bool {
	return len(r.Winners) != 1
}

// Compare extracts attribute from every played card and returns the players
// holding the best value. Higher wins unless the deck marks the attribute as
// lower-wins. The result does not depend on map iteration order.
func Compare(roundCards map[string]string, attribute string, d *deck.Deck) CompareResult {
	res := CompareResult{
		Attribute: attribute,
		Values:    make(map[string]PlayedCard, len(roundCards)),
	}

	players := make([]string, 0, len(roundCards))
	for p := range roundCards {
		players = append(players, p)
	}
	sort.Strings(players)

	var best float64
	for _, p := range players {
		cardID := roundCards[p]
		card, ok := d.Card(cardID)
		if !ok {
			res.Skipped = append(res.Skipped, &StateInconsistencyError{Player: p, CardID: cardID})
			continue
		}
		v, ok := card.Value(attribute)
		if !ok {
			res.Skipped = append(res.Skipped, &StateInconsistencyError{Player: p, CardID: cardID, Attribute: attribute})
			continue
		}
		res.Values[p] = PlayedCard{CardID: cardID, Value: v}

		switch {
		case len(res.Winners) == 0 || d.Beats(attribute, v, best):
			best = v
			res.Winners = []string{p}
		case v == best:
			res.Winners = append(res.Winners, p)
		}
	}
	return res
}

// Resolution is the set of fields a resolved round changes.
type Resolution struct {
	PlayerCards   Hands
	TiePot        []string
	CurrentPlayer string
	RoundWinner   string
	Winners       []string
	Tie           bool
	Eliminated    []string
}

// Resolve applies a comparison to the state without mutating it.
//
// A single winner takes every card played this round plus the whole tie
// pot, every participant loses the card they played, and the winner holds
// the turn. Any other outcome leaves hands untouched and moves the played
// cards into the pot; the same player chooses again.
func Resolve(st *State, res CompareResult) Resolution {
	out := Resolution{
		PlayerCards:   st.PlayerCards.Clone(),
		CurrentPlayer: st.CurrentPlayer,
		Winners:       slices.Clone(res.Winners),
	}

	participants := make([]string, 0, len(st.CurrentRoundCards))
	for p := range st.CurrentRoundCards {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	played := make([]string, 0, len(participants))
	for _, p := range participants {
		played = append(played, st.CurrentRoundCards[p])
	}

	if res.Tie() {
		out.Tie = true
		out.TiePot = append(slices.Clone(st.TiePot), played...)
	} else {
		winner := res.Winners[0]
		withheld := append(slices.Clone(played), st.TiePot...)
		for p, cards := range out.PlayerCards {
			out.PlayerCards[p] = slices.DeleteFunc(cards, func(c string) bool {
				return slices.Contains(withheld, c)
			})
		}
		out.PlayerCards[winner] = append(out.PlayerCards[winner], withheld...)
		out.TiePot = []string{}
		out.CurrentPlayer = winner
		out.RoundWinner = winner
	}

	after := &State{PlayerCards: out.PlayerCards, TiePot: out.TiePot}
	for _, p := range participants {
		if len(after.Hand(p)) == 0 {
			out.Eliminated = append(out.Eliminated, p)
		}
	}
	return out
}

// CheckEnd returns the sole player still holding cards. It returns false
// while two or more players hold cards, and also when nobody does.
func CheckEnd(hands Hands) (string, bool) {
	winner := ""
	for p, cards := range hands {
		if len(cards) == 0 {
			continue
		}
		if winner != "" {
			return "", false
		}
		winner = p
	}
	return winner, winner != ""
}

// Remaining counts players whose hand is non-empty.
func Remaining(hands Hands) int {
	n := 0
	for _, cards := range hands {
		if len(cards) > 0 {
			n++
		}
	}
	return n
}

// NextPlayer returns the first active player after current in seat order,
// wrapping around. It returns current when nobody else is active.
func NextPlayer(r *Room, current string) string {
	active := r.ActivePlayers()
	if len(active) == 0 {
		return current
	}
	idx := slices.Index(active, current)
	if idx < 0 {
		// current has been eliminated; find the next seat after theirs.
		seat := r.Players[current].Seat
		for _, p := range active {
			if r.Players[p].Seat > seat {
				return p
			}
		}
		return active[0]
	}
	return active[(idx+1)%len(active)]
}
