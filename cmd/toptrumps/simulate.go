package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/toptrumps/cmd/toptrumps/shared"
	"github.com/lox/toptrumps/internal/bot"
	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/fileutil"
	"github.com/lox/toptrumps/internal/game"
	"github.com/lox/toptrumps/internal/gameid"
	"github.com/lox/toptrumps/internal/match"
	"github.com/lox/toptrumps/internal/monitor"
	"github.com/lox/toptrumps/internal/randutil"
	"github.com/lox/toptrumps/internal/server"
	"github.com/lox/toptrumps/internal/statistics"
	"github.com/lox/toptrumps/internal/store"
)

// SimulateCmd plays matches between bots sharing an in-memory store
type SimulateCmd struct {
	Config   string `default:"toptrumps-server.hcl" help:"HCL configuration for pacing and extra decks"`
	Deck     string `default:"paises" help:"Deck to play with"`
	Bots     int    `default:"4" help:"Number of bots (2..8)"`
	Matches  int    `default:"1" help:"Number of matches to play"`
	Seed     *int64 `help:"Deterministic RNG seed (optional)"`
	Fast     bool   `help:"Skip every delay"`
	SaveDir  string `type:"existingdir" help:"Write each finished match document here"`
	Quiet    bool   `help:"Only print the summary"`
	Verbose  bool   `help:"Print every card as it is played"`
	NoColor  bool   `help:"Disable colored output"`
	LogLevel string `default:"warn" help:"Log level (debug|info|warn|error)"`
	LogJSON  bool   `help:"Output JSON logs instead of console format"`
}

type simulation struct {
	cmd      *SimulateCmd
	catalog  *deck.Catalog
	deck     *deck.Deck
	store    store.Store
	logger   *log.Logger
	spin     time.Duration
	reveal   time.Duration
	advance  time.Duration
	minThink time.Duration
	maxThink time.Duration
}

func (c *SimulateCmd) Run() error {
	logger, err := shared.SetupLogger(c.LogLevel, c.LogJSON)
	if err != nil {
		return err
	}
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	catalog, err := shared.LoadCatalog(cfg.DeckFiles...)
	if err != nil {
		return err
	}
	d, ok := catalog.Deck(c.Deck)
	if !ok {
		return fmt.Errorf("unknown deck %q", c.Deck)
	}

	ctx := shared.SetupSignalHandler(logger)
	mem := store.NewMemoryStore(logger)
	defer mem.Close()

	sim := &simulation{cmd: c, catalog: catalog, deck: d, store: mem, logger: logger}
	sim.spin, sim.reveal, sim.advance = cfg.SpinDelay(), cfg.RevealDelay(), cfg.AdvanceDelay()
	sim.minThink, sim.maxThink = cfg.ThinkRange()
	if c.Fast {
		sim.spin, sim.reveal, sim.advance = time.Millisecond, time.Millisecond, time.Millisecond
		sim.minThink, sim.maxThink = time.Millisecond, time.Millisecond
	}

	seed := randutil.Seed(c.Seed)
	stats := &statistics.Statistics{}
	for i := range max(c.Matches, 1) {
		matchSeed := seed + int64(i)
		room, err := sim.play(ctx, matchSeed)
		if errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			return err
		}
		result, err := statistics.FromRoom(room, matchSeed)
		if err != nil {
			return err
		}
		stats.Add(result)
	}

	if c.Matches > 1 && stats.Matches > 0 {
		printSummary(os.Stdout, stats)
	}
	return nil
}

// play runs one match to the end and returns its final document.
func (s *simulation) play(ctx context.Context, seed int64) (*game.Room, error) {
	rng := randutil.New(seed)
	s.logger.Info("Simulating match", "deck", s.deck.ID, "bots", s.cmd.Bots, "seed", seed)

	var names []string
	var players []game.Player
	for i := range s.cmd.Bots {
		name := bot.PickName(rng, names)
		names = append(names, name)
		players = append(players, game.Player{Nickname: name, IsBot: true, IsHost: i == 0})
	}

	matchID := gameid.NewMatchID()
	fleet := bot.NewFleet()
	for i, name := range names {
		ctrl := match.New(s.store, s.catalog, matchID, match.Config{
			Self:         name,
			SpinDelay:    s.spin,
			RevealDelay:  s.reveal,
			AdvanceDelay: s.advance,
			Logger:       s.logger,
		})
		if i == 0 {
			if _, err := ctrl.Start(ctx, s.deck.ID, game.Setup{Code: gameid.NewRoomCode(rng), Players: players}, rng); err != nil {
				return nil, err
			}
		}
		fleet.Add(bot.NewPlayer(ctrl, bot.PlayerConfig{
			MinThink: s.minThink,
			MaxThink: s.maxThink,
			Rand:     randutil.New(seed + int64(i) + 1),
			Logger:   s.logger,
		}))
	}

	var out io.Writer = os.Stdout
	if s.cmd.Quiet {
		out = io.Discard
	}
	mon := monitor.New(out, s.deck, monitor.Options{NoColor: s.cmd.NoColor, Verbose: s.cmd.Verbose})
	bus := game.NewEventBus()
	bus.Subscribe(mon)

	var mu sync.Mutex
	var last *game.Room
	keepLast := func(_, next *game.Room) {
		mu.Lock()
		last = next
		mu.Unlock()
	}

	if err := fleet.Run(ctx, monitor.Observer(bus), keepLast); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if s.cmd.SaveDir != "" {
		filename := filepath.Join(s.cmd.SaveDir, matchID+".json")
		if err := fileutil.WriteJSON(filename, last); err != nil {
			return nil, err
		}
		s.logger.Info("Saved match", "file", filename)
	}
	return last, nil
}

func printSummary(w io.Writer, stats *statistics.Statistics) {
	lo, hi := stats.ConfidenceInterval95()
	fmt.Fprintf(w, "\n%d matches, %d draws, %d tied rounds\n", stats.Matches, stats.Draws, stats.Ties)
	fmt.Fprintf(w, "Rounds per match: mean %.1f (95%% CI %.1f-%.1f), median %.0f, p90 %.0f\n",
		stats.Mean(), lo, hi, stats.Median(), stats.Percentile(0.9))
	for _, p := range stats.Leaders() {
		fmt.Fprintf(w, "  %-12s %3d wins (%.0f%%)\n", p, stats.Wins[p], stats.WinRate(p)*100)
	}
	for seat, n := range stats.SeatWins {
		if n > 0 {
			fmt.Fprintf(w, "  seat %d won %d\n", seat, n)
		}
	}
	if err := stats.Validate(); err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}
}
