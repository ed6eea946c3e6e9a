package game

import (
	"fmt"
	"slices"
	"time"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/doctree"
)

var transitions = map[Phase][]Phase{
	PhaseSpinning:  {PhaseSelecting},
	PhaseSelecting: {PhaseRevealing},
	PhaseRevealing: {PhaseComparing, PhaseTie},
	PhaseComparing: {PhaseSelecting, PhaseFinished},
	PhaseTie:       {PhaseSelecting, PhaseFinished},
	PhaseFinished:  nil,
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Phase) bool {
	return slices.Contains(transitions[from], to)
}

// Document paths, relative to the room root.
const (
	PathDeckID    = "deckId"
	PathHost      = "hostNickname"
	PathStatus    = "status"
	PathPlayers   = "players"
	PathGameState = "gameState"
)

// StatePath joins a GameState field (and optional sub keys) into a document path.
func StatePath(field string, keys ...string) string {
	p := PathGameState + "/" + field
	for _, k := range keys {
		p += "/" + k
	}
	return p
}

// PlayerPath returns the document path of a player's field.
func PlayerPath(nickname, field string) string {
	return PathPlayers + "/" + nickname + "/" + field
}

// Patch is a batch of path -> value writes relative to the room root. A nil
// value deletes the path. Values are absolute, never deltas, so applying
// the same patch twice is harmless.
type Patch map[string]any

// Intent is a discrete action a client wants applied to the shared room.
type Intent interface {
	Name() string
}

// Begin ends the presentational spin and opens card selection.
type Begin struct{}

// Play submits a card for the current round.
type Play struct {
	Player string
	CardID string
}

// Reveal closes selection once every active player has played.
type Reveal struct{}

// Select chooses the attribute compared this round.
type Select struct {
	Player    string
	Attribute string
}

// ResolveRound compares and awards the round.
type ResolveRound struct{}

// Advance moves on from a compared or tied round.
type Advance struct {
	Player string
}

func (Begin) Name() string        { return "begin" }
func (Play) Name() string         { return "play" }
func (Reveal) Name() string       { return "reveal" }
func (Select) Name() string       { return "select" }
func (ResolveRound) Name() string { return "resolve" }
func (Advance) Name() string      { return "advance" }

// Reduce turns an intent into the patch that applies it to r. It never
// mutates r. Steps that find themselves already applied return ErrNoOp;
// steps whose preconditions have not arrived yet return ErrNotReady;
// actions that break the rules return a *ValidationError.
func Reduce(r *Room, d *deck.Deck, in Intent, now time.Time) (Patch, error) {
	if r == nil || r.GameState == nil {
		return nil, invalid(in.Name(), "", "match not started")
	}
	st := r.GameState

	switch in := in.(type) {
	case Begin:
		if st.Phase != PhaseSpinning {
			return nil, ErrNoOp
		}
		return Patch{StatePath("gamePhase"): PhaseSelecting}, nil

	case Play:
		if prev, ok := st.CurrentRoundCards[in.Player]; ok && prev == in.CardID && st.Phase != PhaseSpinning {
			return nil, ErrNoOp
		}
		if err := CheckPlay(r, in.Player, in.CardID); err != nil {
			return nil, err
		}
		patch := Patch{StatePath("currentRoundCards", in.Player): in.CardID}
		after := r.Clone()
		if after.GameState.CurrentRoundCards == nil {
			after.GameState.CurrentRoundCards = map[string]string{}
		}
		after.GameState.CurrentRoundCards[in.Player] = in.CardID
		if after.RoundComplete() {
			patch[StatePath("gamePhase")] = PhaseRevealing
		}
		return patch, nil

	case Reveal:
		if st.Phase != PhaseSelecting {
			return nil, ErrNoOp
		}
		if !r.RoundComplete() {
			return nil, ErrNotReady
		}
		return Patch{StatePath("gamePhase"): PhaseRevealing}, nil

	case Select:
		if st.SelectedAttribute == in.Attribute && st.Phase.AllowsAttribute() {
			return nil, ErrNoOp
		}
		if err := CheckSelect(r, d, in.Player, in.Attribute); err != nil {
			return nil, err
		}
		return Patch{StatePath("selectedAttribute"): in.Attribute}, nil

	case ResolveRound:
		return reduceResolve(r, d, now)

	case Advance:
		if err := CheckAdvance(r, in.Player); err != nil {
			return nil, err
		}
		return reduceAdvance(r)
	}
	return nil, fmt.Errorf("unknown intent %T", in)
}

func reduceResolve(r *Room, d *deck.Deck, now time.Time) (Patch, error) {
	st := r.GameState
	switch st.Phase {
	case PhaseRevealing:
	case PhaseSpinning, PhaseSelecting:
		return nil, ErrNotReady
	default:
		return nil, ErrNoOp
	}
	if st.SelectedAttribute == "" || !r.RoundComplete() {
		return nil, ErrNotReady
	}

	cmp := Compare(st.CurrentRoundCards, st.SelectedAttribute, d)
	res := Resolve(st, cmp)

	phase := PhaseComparing
	if res.Tie {
		phase = PhaseTie
	}
	history := append(slices.Clone(st.RoundHistory), RoundResult{
		Round:     st.CurrentRound,
		Attribute: st.SelectedAttribute,
		Cards:     cmp.Values,
		Winners:   cmp.Winners,
		Tie:       res.Tie,
		Timestamp: now.UTC(),
	})

	var roundWinner any
	if res.RoundWinner != "" {
		roundWinner = res.RoundWinner
	}
	var winners any
	if len(res.Winners) > 0 {
		winners = res.Winners
	}
	patch := Patch{
		StatePath("playerCards"):   res.PlayerCards,
		StatePath("tiePot"):        res.TiePot,
		StatePath("currentPlayer"): res.CurrentPlayer,
		StatePath("roundWinner"):   roundWinner,
		StatePath("roundWinners"):  winners,
		StatePath("roundHistory"):  history,
		StatePath("gamePhase"):     phase,
	}
	for _, p := range res.Eliminated {
		patch[PlayerPath(p, "status")] = StatusEliminated
	}
	return patch, nil
}

func reduceAdvance(r *Room) (Patch, error) {
	st := r.GameState
	if st.Phase != PhaseComparing && st.Phase != PhaseTie {
		return nil, ErrNoOp
	}

	patch := Patch{
		StatePath("currentRoundCards"): nil,
		StatePath("selectedAttribute"): nil,
	}

	hands := st.Hands()
	if winner, ok := CheckEnd(hands); ok {
		patch[StatePath("gamePhase")] = PhaseFinished
		patch[StatePath("gameWinner")] = winner
		patch[PathStatus] = RoomFinished
		return patch, nil
	}
	if Remaining(hands) == 0 {
		// Every remaining card ended up in the pot: nobody can play on.
		patch[StatePath("gamePhase")] = PhaseFinished
		patch[PathStatus] = RoomFinished
		return patch, nil
	}

	next := st.CurrentPlayer
	if st.Phase == PhaseComparing && st.RoundWinner != "" {
		next = st.RoundWinner
	}
	if !r.IsActive(next) || len(hands[next]) == 0 {
		next = NextPlayer(r, next)
	}

	patch[StatePath("gamePhase")] = PhaseSelecting
	patch[StatePath("currentRound")] = st.CurrentRound + 1
	patch[StatePath("currentPlayer")] = next
	patch[StatePath("roundWinner")] = nil
	patch[StatePath("roundWinners")] = nil
	return patch, nil
}

// Apply returns a copy of r with patch applied, used by single-process
// consumers and tests that do not go through a store.
func Apply(r *Room, patch Patch) (*Room, error) {
	doc, err := doctree.Normalize(r)
	if err != nil {
		return nil, err
	}
	for _, path := range patch.Paths() {
		v, err := doctree.Normalize(patch[path])
		if err != nil {
			return nil, err
		}
		if doc, err = doctree.Set(doc, path, v); err != nil {
			return nil, err
		}
	}
	var out Room
	if err := doctree.Decode(doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Paths returns the patch's paths in a stable order.
func (p Patch) Paths() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Prefixed returns a copy of the patch with every path placed under root.
func (p Patch) Prefixed(root string) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[doctree.Join(root, k)] = v
	}
	return out
}
