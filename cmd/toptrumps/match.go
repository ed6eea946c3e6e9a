package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lox/toptrumps/internal/bot"
	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/game"
	"github.com/lox/toptrumps/internal/gameid"
	"github.com/lox/toptrumps/internal/match"
	"github.com/lox/toptrumps/internal/monitor"
	"github.com/lox/toptrumps/internal/randutil"
)

// MatchCmd groups the one-shot actions a human client performs
type MatchCmd struct {
	Start   MatchStartCmd   `cmd:"" help:"Deal a new match; the first player is the host"`
	Show    MatchShowCmd    `cmd:"" help:"Show the match and a player's hand"`
	Play    MatchPlayCmd    `cmd:"" help:"Play a card this round"`
	Select  MatchSelectCmd  `cmd:"" help:"Choose the attribute compared this round"`
	Advance MatchAdvanceCmd `cmd:"" help:"Move on to the next round (host)"`
	Watch   MatchWatchCmd   `cmd:"" help:"Follow a match, driving the automatic steps for --as"`
}

type MatchStartCmd struct {
	RemoteFlags

	Deck    string   `default:"paises" help:"Deck to play with"`
	Players []string `required:"" help:"Player nicknames in seat order; the first is the host"`
	Bots    int      `help:"Extra bot seats to add after the players"`
	Seed    *int64   `help:"Deterministic RNG seed for the deal (optional)"`
}

func (c *MatchStartCmd) Run() error {
	r, err := c.connect()
	if err != nil {
		return err
	}
	defer r.close()

	rng := randutil.New(randutil.Seed(c.Seed))
	var players []game.Player
	taken := append([]string(nil), c.Players...)
	for i, name := range c.Players {
		players = append(players, game.Player{Nickname: name, IsHost: i == 0})
	}
	for range c.Bots {
		name := bot.PickName(rng, taken)
		taken = append(taken, name)
		players = append(players, game.Player{Nickname: name, IsBot: true})
	}

	matchID := gameid.NewMatchID()
	code := gameid.NewRoomCode(rng)
	ctrl := match.New(r.client, r.catalog, matchID, match.Config{Logger: r.logger})
	room, err := ctrl.Start(r.ctx, c.Deck, game.Setup{Code: code, Players: players}, rng)
	if err != nil {
		return err
	}

	fmt.Printf("Match %s (room %s)\n", matchID, gameid.FormatRoomCode(code))
	fmt.Printf("%s chooses first\n", room.GameState.CurrentPlayer)
	for _, p := range room.Roster() {
		if p.IsBot {
			fmt.Printf("Bot seat: %s (toptrumps bot --match %s --as %q)\n", p.Nickname, matchID, p.Nickname)
		}
	}
	return nil
}

// MatchAction holds the flags every single-step command needs
type MatchAction struct {
	RemoteFlags

	Match string `required:"" help:"Match id"`
	As    string `help:"Acting player (defaults to player.name)"`
}

func (a *MatchAction) open() (*remote, *match.Controller, string, error) {
	if err := gameid.ValidateMatchID(a.Match); err != nil {
		return nil, nil, "", err
	}
	r, err := a.connect()
	if err != nil {
		return nil, nil, "", err
	}
	name, err := r.player(a.As)
	if err != nil {
		r.close()
		return nil, nil, "", err
	}
	ctrl := match.New(r.client, r.catalog, a.Match, match.Config{Self: name, Logger: r.logger})
	return r, ctrl, name, nil
}

type MatchShowCmd struct {
	MatchAction
}

func (c *MatchShowCmd) Run() error {
	r, ctrl, name, err := c.open()
	if err != nil {
		return err
	}
	defer r.close()

	room, err := ctrl.Room(r.ctx)
	if errors.Is(err, match.ErrNotStarted) {
		fmt.Println("Waiting for the match to start")
		return nil
	} else if err != nil {
		return err
	}
	d, err := ctrl.Deck(r.ctx)
	if err != nil {
		return err
	}

	st := room.GameState
	fmt.Printf("Round %d, phase %s, %s chooses\n", st.CurrentRound, st.Phase, st.CurrentPlayer)
	if st.SelectedAttribute != "" {
		fmt.Printf("Attribute: %s\n", st.SelectedAttribute)
	}
	if len(st.TiePot) > 0 {
		fmt.Printf("Tie pot: %d cards\n", len(st.TiePot))
	}
	for _, p := range room.Roster() {
		status := ""
		if !p.Active() {
			status = " (eliminated)"
		} else if st.HasPlayed(p.Nickname) {
			status = " (played)"
		}
		fmt.Printf("  %-15s %2d cards%s\n", p.Nickname, len(st.Hand(p.Nickname)), status)
	}

	hand := st.Hand(name)
	if len(hand) == 0 {
		return nil
	}
	fmt.Printf("\n%s's hand:\n", name)
	for _, id := range hand {
		card, ok := d.Card(id)
		if !ok {
			continue
		}
		fmt.Printf("  %-12s %s\n", id, describeCard(d, card))
	}
	return nil
}

func describeCard(d *deck.Deck, card deck.Card) string {
	parts := []string{card.Name}
	for _, attr := range d.AttributeOrder(card) {
		v, _ := card.Value(attr)
		parts = append(parts, fmt.Sprintf("%s %s", attr, game.FormatAttributeValue(attr, v)))
	}
	return strings.Join(parts, " · ")
}

type MatchPlayCmd struct {
	MatchAction

	Card string `arg:"" help:"Card id from your hand"`
}

func (c *MatchPlayCmd) Run() error {
	r, ctrl, name, err := c.open()
	if err != nil {
		return err
	}
	defer r.close()

	if err := ctrl.PlayCard(r.ctx, name, c.Card); err != nil {
		return err
	}
	fmt.Printf("%s played %s\n", name, c.Card)
	return nil
}

type MatchSelectCmd struct {
	MatchAction

	Attribute string `arg:"" help:"Attribute to compare"`
}

func (c *MatchSelectCmd) Run() error {
	r, ctrl, name, err := c.open()
	if err != nil {
		return err
	}
	defer r.close()

	// Cards may still be face down; reveal first so the choice lands.
	if err := ctrl.Reveal(r.ctx); err != nil && !errors.Is(err, game.ErrNoOp) {
		return err
	}
	if err := ctrl.SelectAttribute(r.ctx, name, c.Attribute); err != nil {
		return err
	}
	fmt.Printf("%s chose %s\n", name, c.Attribute)
	return nil
}

type MatchAdvanceCmd struct {
	MatchAction
}

func (c *MatchAdvanceCmd) Run() error {
	r, ctrl, name, err := c.open()
	if err != nil {
		return err
	}
	defer r.close()

	if err := ctrl.AdvanceRound(r.ctx, name); err != nil {
		if errors.Is(err, game.ErrNoOp) {
			fmt.Println("Round already advanced")
			return nil
		}
		return err
	}
	fmt.Println("Advanced")
	return nil
}

type MatchWatchCmd struct {
	MatchAction

	Verbose bool `help:"Print every card as it is played"`
	NoColor bool `help:"Disable colored output"`
}

func (c *MatchWatchCmd) Run() error {
	r, ctrl, _, err := c.open()
	if err != nil {
		return err
	}
	defer r.close()

	d, err := ctrl.Deck(r.ctx)
	if err != nil {
		return err
	}
	mon := monitor.New(os.Stdout, d, monitor.Options{NoColor: c.NoColor, Verbose: c.Verbose})
	bus := game.NewEventBus()
	bus.Subscribe(mon)

	if err := ctrl.Run(r.ctx, monitor.Observer(bus)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
