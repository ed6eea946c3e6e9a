package main

import (
	"context"
	"errors"
	"time"

	"github.com/lox/toptrumps/internal/bot"
	"github.com/lox/toptrumps/internal/gameid"
	"github.com/lox/toptrumps/internal/match"
	"github.com/lox/toptrumps/internal/randutil"
)

// BotCmd seats a bot in an existing match on a remote server
type BotCmd struct {
	RemoteFlags

	Match    string        `required:"" help:"Match id"`
	As       string        `help:"Seat the bot plays in (defaults to player.name)"`
	MinThink time.Duration `default:"1s" help:"Shortest thinking delay"`
	MaxThink time.Duration `default:"2.5s" help:"Longest thinking delay"`
	Seed     *int64        `help:"Deterministic RNG seed for thinking delays (optional)"`
}

func (c *BotCmd) Run() error {
	if err := gameid.ValidateMatchID(c.Match); err != nil {
		return err
	}
	r, err := c.connect()
	if err != nil {
		return err
	}
	defer r.close()

	name, err := r.player(c.As)
	if err != nil {
		return err
	}

	ctrl := match.New(r.client, r.catalog, c.Match, match.Config{Self: name, Logger: r.logger})
	player := bot.NewPlayer(ctrl, bot.PlayerConfig{
		MinThink: c.MinThink,
		MaxThink: c.MaxThink,
		Rand:     randutil.New(randutil.Seed(c.Seed)),
		Logger:   r.logger,
	})

	r.logger.Info("Bot joined match", "match", c.Match, "bot", name)
	if err := player.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	r.logger.Info("Bot finished", "match", c.Match, "bot", name)
	return nil
}
