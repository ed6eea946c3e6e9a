// Package match keeps every client of one match in step through the shared
// document store.
//
// A Controller turns player actions into game intents, checks them against
// the latest snapshot with game.Reduce and writes the resulting patch as a
// single store update. Run watches the match and performs the automatic
// steps (ending the spin, resolving a round once it is complete, moving on
// to the next round) on behalf of its client. Several clients may race to
// perform the same step; the loser gets game.ErrNoOp and nothing changes.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/game"
	"github.com/lox/toptrumps/internal/store"
)

// ErrNotStarted is returned when the match has no game state yet.
var ErrNotStarted = errors.New("match not started")

const (
	DefaultSpinDelay    = 3 * time.Second
	DefaultRevealDelay  = 1 * time.Second
	DefaultAdvanceDelay = 2 * time.Second
)

// Config tunes a Controller.
type Config struct {
	// Self is the nickname of the local player; empty for observers.
	Self string
	// SpinDelay is how long the host lets the first player spin run.
	SpinDelay time.Duration
	// RevealDelay is how long revealed cards stay on the table before
	// the round is resolved.
	RevealDelay time.Duration
	// AdvanceDelay is how long the host shows a round's result.
	AdvanceDelay time.Duration
	Clock        quartz.Clock
	Logger       *log.Logger
}

func (c *Config) applyDefaults() {
	if c.SpinDelay == 0 {
		c.SpinDelay = DefaultSpinDelay
	}
	if c.RevealDelay == 0 {
		c.RevealDelay = DefaultRevealDelay
	}
	if c.AdvanceDelay == 0 {
		c.AdvanceDelay = DefaultAdvanceDelay
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// Controller synchronizes one client with one match.
type Controller struct {
	store   store.Store
	catalog *deck.Catalog
	matchID string
	path    string
	cfg     Config
	clock   quartz.Clock
	logger  *log.Logger

	mu        sync.Mutex
	scheduled map[string]*quartz.Timer
}

// New returns a controller for matchID.
func New(s store.Store, catalog *deck.Catalog, matchID string, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		store:     s,
		catalog:   catalog,
		matchID:   matchID,
		path:      store.MatchPath(matchID),
		cfg:       cfg,
		clock:     cfg.Clock,
		logger:    cfg.Logger.WithPrefix("match").With("match", matchID),
		scheduled: make(map[string]*quartz.Timer),
	}
}

// MatchID returns the id of the controlled match.
func (c *Controller) MatchID() string { return c.matchID }

// Self returns the local player's nickname.
func (c *Controller) Self() string { return c.cfg.Self }

// Start deals deckID to the players in setup and writes the initial room.
// It refuses to overwrite a match that already has a game state.
func (c *Controller) Start(ctx context.Context, deckID string, setup game.Setup, rng *rand.Rand) (*game.Room, error) {
	d, err := c.deck(deckID)
	if err != nil {
		return nil, err
	}
	if existing, err := c.Room(ctx); err == nil && existing.GameState != nil {
		return nil, &game.ValidationError{Op: "start", Reason: "match already started"}
	} else if err != nil && !errors.Is(err, ErrNotStarted) {
		return nil, err
	}

	room, discarded, err := game.NewRoom(setup, d, rng, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(discarded) > 0 {
		c.logger.Debug("Cards left out of the deal", "count", len(discarded), "cards", discarded)
	}
	if err := c.store.Set(ctx, c.path, room); err != nil {
		return nil, fmt.Errorf("failed to write match: %w", err)
	}
	c.logger.Info("Match started",
		"deck", d.ID,
		"players", len(setup.Players),
		"first", room.GameState.CurrentPlayer)
	return room, nil
}

// Room reads the current snapshot of the match. It returns ErrNotStarted
// when the match or its game state does not exist yet; the room is still
// returned in the latter case.
func (c *Controller) Room(ctx context.Context) (*game.Room, error) {
	var room game.Room
	if err := store.GetJSON(ctx, c.store, c.path, &room); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotStarted
		}
		return nil, err
	}
	if room.GameState == nil {
		return &room, ErrNotStarted
	}
	return &room, nil
}

// Deck returns the deck the match is played with.
func (c *Controller) Deck(ctx context.Context) (*deck.Deck, error) {
	room, err := c.Room(ctx)
	if err != nil && room == nil {
		return nil, err
	}
	return c.deck(room.DeckID)
}

func (c *Controller) deck(id string) (*deck.Deck, error) {
	d, ok := c.catalog.Deck(id)
	if !ok {
		return nil, fmt.Errorf("unknown deck %q", id)
	}
	return d, nil
}

// Begin ends the spin and opens card selection.
func (c *Controller) Begin(ctx context.Context) error {
	return c.apply(ctx, game.Begin{})
}

// PlayCard submits player's card for the current round.
func (c *Controller) PlayCard(ctx context.Context, player, cardID string) error {
	return c.apply(ctx, game.Play{Player: player, CardID: cardID})
}

// Reveal closes selection once every active player has played.
func (c *Controller) Reveal(ctx context.Context) error {
	return c.apply(ctx, game.Reveal{})
}

// SelectAttribute chooses the attribute compared this round.
func (c *Controller) SelectAttribute(ctx context.Context, player, attribute string) error {
	return c.apply(ctx, game.Select{Player: player, Attribute: attribute})
}

// TriggerResolution compares and awards the current round. Any client may
// call it; only the first call for a round changes anything.
func (c *Controller) TriggerResolution(ctx context.Context) error {
	return c.apply(ctx, game.ResolveRound{})
}

// AdvanceRound moves past a compared or tied round, or finishes the match.
func (c *Controller) AdvanceRound(ctx context.Context, player string) error {
	return c.apply(ctx, game.Advance{Player: player})
}

func (c *Controller) apply(ctx context.Context, in game.Intent) error {
	room, err := c.Room(ctx)
	if err != nil {
		return err
	}
	d, err := c.deck(room.DeckID)
	if err != nil {
		return err
	}

	patch, err := game.Reduce(room, d, in, c.clock.Now())
	switch {
	case errors.Is(err, game.ErrNoOp):
		c.logger.Debug("Step already applied", "intent", in.Name(), "phase", room.GameState.Phase)
		return err
	case err != nil:
		return err
	}

	if err := c.store.Update(ctx, patch.Prefixed(c.path)); err != nil {
		return fmt.Errorf("failed to write %s: %w", in.Name(), err)
	}
	c.logger.Debug("Applied intent", "intent", in.Name(), "round", room.GameState.CurrentRound, "paths", len(patch))
	return nil
}

// Watch calls fn with every snapshot of the match and the one before it.
// Calls are sequential. Snapshots are fresh copies owned by the callee for
// reading only; prev is nil on the first call and next is nil while the
// match does not exist.
func (c *Controller) Watch(ctx context.Context, fn func(prev, next *game.Room)) (func(), error) {
	var prev *game.Room
	return c.store.Subscribe(ctx, c.path, func(raw json.RawMessage) {
		var next *game.Room
		if raw != nil {
			next = &game.Room{}
			if err := json.Unmarshal(raw, next); err != nil {
				c.logger.Error("Ignoring undecodable snapshot", "error", err)
				return
			}
		}
		fn(prev, next)
		prev = next
	})
}

// Run performs the automatic steps this client is responsible for until
// the match finishes or ctx is done. Observers see every snapshot after
// the controller has reacted to it.
func (c *Controller) Run(ctx context.Context, observers ...func(prev, next *game.Room)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	var once sync.Once

	unsubscribe, err := c.Watch(ctx, func(prev, next *game.Room) {
		c.drive(ctx, next)
		for _, obs := range observers {
			obs(prev, next)
		}
		if next != nil && next.GameState != nil && next.GameState.Phase == game.PhaseFinished {
			once.Do(func() { close(finished) })
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()
	defer c.stopTimers()

	select {
	case <-finished:
		c.logger.Info("Match finished")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drive schedules whatever step the snapshot calls for.
func (c *Controller) drive(ctx context.Context, r *game.Room) {
	if r == nil || r.GameState == nil {
		return
	}
	st := r.GameState
	isHost := c.cfg.Self != "" && c.cfg.Self == r.HostNickname
	key := fmt.Sprintf("%s/%d", st.Phase, st.CurrentRound)

	switch st.Phase {
	case game.PhaseSpinning:
		if isHost {
			c.schedule(ctx, key, c.cfg.SpinDelay, game.Begin{})
		}
	case game.PhaseSelecting:
		if r.RoundComplete() {
			c.step(ctx, game.Reveal{})
		}
	case game.PhaseRevealing:
		if st.SelectedAttribute != "" && r.RoundComplete() {
			c.schedule(ctx, key, c.cfg.RevealDelay, game.ResolveRound{})
		}
	case game.PhaseComparing, game.PhaseTie:
		if isHost {
			c.schedule(ctx, key, c.cfg.AdvanceDelay, game.Advance{Player: c.cfg.Self})
		}
	}
}

func (c *Controller) schedule(ctx context.Context, key string, delay time.Duration, in game.Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scheduled[key]; ok {
		return
	}
	c.scheduled[key] = c.clock.AfterFunc(delay, func() {
		c.step(ctx, in)
	}, "match", in.Name())
}

func (c *Controller) step(ctx context.Context, in game.Intent) {
	if ctx.Err() != nil {
		return
	}
	err := c.apply(ctx, in)
	switch {
	case err == nil, errors.Is(err, game.ErrNoOp), errors.Is(err, game.ErrNotReady):
	case game.IsValidation(err):
		c.logger.Warn("Automatic step rejected", "intent", in.Name(), "error", err)
	default:
		c.logger.Error("Automatic step failed", "intent", in.Name(), "error", err)
	}
}

func (c *Controller) stopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, t := range c.scheduled {
		t.Stop()
		delete(c.scheduled, key)
	}
}
