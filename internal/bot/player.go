package bot

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/toptrumps/internal/game"
	"github.com/lox/toptrumps/internal/match"
	"github.com/lox/toptrumps/internal/randutil"
)

const (
	DefaultMinThink = 1000 * time.Millisecond
	DefaultMaxThink = 2500 * time.Millisecond
)

// PlayerConfig configures an automated player.
type PlayerConfig struct {
	MinThink time.Duration
	MaxThink time.Duration
	Clock    quartz.Clock
	Rand     *rand.Rand
	Logger   *log.Logger
}

// Player is a bot seated in a match. It reacts to snapshots: it plays a
// card every round it has not played yet, and calls the attribute when it
// holds the turn. Every action waits a random thinking delay first.
type Player struct {
	ctrl   *match.Controller
	name   string
	bot    *Bot
	cfg    PlayerConfig
	logger *log.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	scheduled map[string]bool
	decisions map[int]Decision
}

// NewPlayer wraps ctrl, whose Self must be the bot's nickname.
func NewPlayer(ctrl *match.Controller, cfg PlayerConfig) *Player {
	if cfg.MinThink == 0 && cfg.MaxThink == 0 {
		cfg.MinThink, cfg.MaxThink = DefaultMinThink, DefaultMaxThink
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Rand == nil {
		cfg.Rand = randutil.New(time.Now().UnixNano())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	logger := cfg.Logger.WithPrefix("bot").With("bot", ctrl.Self(), "match", ctrl.MatchID())
	return &Player{
		ctrl:      ctrl,
		name:      ctrl.Self(),
		bot:       &Bot{logger: logger},
		cfg:       cfg,
		logger:    logger,
		rng:       cfg.Rand,
		scheduled: make(map[string]bool),
		decisions: make(map[int]Decision),
	}
}

// Name returns the bot's nickname.
func (p *Player) Name() string { return p.name }

// Run plays until the match finishes or ctx is done. Observers are passed
// on to the controller.
func (p *Player) Run(ctx context.Context, observers ...func(prev, next *game.Room)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	observers = append([]func(prev, next *game.Room){func(_, next *game.Room) {
		p.observe(ctx, next)
	}}, observers...)
	return p.ctrl.Run(ctx, observers...)
}

func (p *Player) observe(ctx context.Context, r *game.Room) {
	if r == nil || r.GameState == nil || !r.IsActive(p.name) {
		return
	}
	st := r.GameState

	switch st.Phase {
	case game.PhaseSelecting:
		if !st.HasPlayed(p.name) && len(st.Hand(p.name)) > 0 {
			p.schedule(ctx, fmt.Sprintf("play/%d", st.CurrentRound), p.play)
		}
	case game.PhaseRevealing:
		if st.CurrentPlayer == p.name && st.SelectedAttribute == "" {
			p.schedule(ctx, fmt.Sprintf("select/%d", st.CurrentRound), p.selectAttribute)
		}
	}
}

// schedule runs fn once per key after a thinking delay.
func (p *Player) schedule(ctx context.Context, key string, fn func(context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduled[key] {
		return
	}
	p.scheduled[key] = true
	delay := randutil.Between(p.rng, p.cfg.MinThink, p.cfg.MaxThink)

	p.cfg.Clock.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		err := fn(ctx)
		switch {
		case err == nil, errors.Is(err, game.ErrNoOp):
		case errors.Is(err, ErrEmptyHand):
			p.logger.Debug("Nothing to play")
		default:
			p.logger.Warn("Bot action failed", "action", key, "error", err)
		}
	}, "bot", key)
}

func (p *Player) play(ctx context.Context) error {
	r, err := p.ctrl.Room(ctx)
	if err != nil {
		return err
	}
	d, err := p.ctrl.Deck(ctx)
	if err != nil {
		return err
	}
	decision, err := p.bot.MakeDecision(p.name, r, d)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.decisions[r.GameState.CurrentRound] = decision
	p.mu.Unlock()

	p.logger.Info("Playing card",
		"round", r.GameState.CurrentRound,
		"card", decision.CardID,
		"attribute", decision.Attribute,
		"confidence", fmt.Sprintf("%.2f", decision.Confidence),
		"reasoning", decision.Reasoning)
	return p.ctrl.PlayCard(ctx, p.name, decision.CardID)
}

func (p *Player) selectAttribute(ctx context.Context) error {
	r, err := p.ctrl.Room(ctx)
	if err != nil {
		return err
	}
	st := r.GameState
	played, ok := st.CurrentRoundCards[p.name]
	if !ok {
		return game.ErrNotReady
	}

	p.mu.Lock()
	decision, decided := p.decisions[st.CurrentRound]
	p.mu.Unlock()

	attribute := decision.Attribute
	if !decided || decision.CardID != played {
		d, err := p.ctrl.Deck(ctx)
		if err != nil {
			return err
		}
		if attribute, err = p.bot.BestAttribute(p.name, played, r, d); err != nil {
			return err
		}
	}

	p.logger.Info("Selecting attribute", "round", st.CurrentRound, "attribute", attribute)
	return p.ctrl.SelectAttribute(ctx, p.name, attribute)
}
