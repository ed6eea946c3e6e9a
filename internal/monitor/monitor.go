// Package monitor prints a running commentary of a match.
package monitor

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/game"
)

// Monitor renders game events as text. It is an EventSubscriber.
type Monitor struct {
	mu      sync.Mutex
	writer  io.Writer
	styles  *Styles
	deck    *deck.Deck
	verbose bool

	ties   int
	winner string
}

var _ game.EventSubscriber = (*Monitor)(nil)

// Options configures a Monitor
type Options struct {
	NoColor bool
	// Verbose also prints every card as it is played.
	Verbose bool
}

// New creates a monitor writing to w. Card names and values are looked up
// in d.
func New(w io.Writer, d *deck.Deck, opts Options) *Monitor {
	if w == nil {
		w = os.Stdout
	}
	return &Monitor{
		writer:  w,
		styles:  NewStyles(w, opts.NoColor),
		deck:    d,
		verbose: opts.Verbose,
	}
}

// Observer returns a match observer that publishes the events between
// successive snapshots on bus.
func Observer(bus game.EventBus) func(prev, next *game.Room) {
	return func(prev, next *game.Room) {
		for _, ev := range game.Diff(prev, next, time.Now()) {
			bus.Publish(ev)
		}
	}
}

// Winner returns the match winner once a GameFinishedEvent was seen.
func (m *Monitor) Winner() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// OnEvent implements game.EventSubscriber.
func (m *Monitor) OnEvent(event game.GameEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := event.(type) {
	case game.MatchStartedEvent:
		m.printf("%s\n", m.styles.Header.Render(fmt.Sprintf("%s • %d players", m.deckName(), len(e.Players))))
		m.printf("Players: %s\n", strings.Join(e.Players, ", "))
		m.printf("%s starts\n", e.CurrentPlayer)

	case game.CardPlayedEvent:
		if m.verbose {
			m.printf("%s\n", m.styles.Info.Render(fmt.Sprintf("  %s played a card", e.Player)))
		}

	case game.AttributeSelectedEvent:
		m.printf("%s chose %s\n", e.Player, m.styles.Attribute.Render(e.Attribute))

	case game.RoundResolvedEvent:
		m.printRound(e)

	case game.PlayerEliminatedEvent:
		m.printf("%s\n", m.styles.Eliminated.Render(fmt.Sprintf("✗ %s is out of cards", e.Player)))

	case game.GameFinishedEvent:
		m.winner = e.Winner
		m.printf("\n%s\n", m.styles.Header.Render("MATCH FINISHED"))
		if e.Winner == "" {
			m.printf("%s after %d rounds\n", m.styles.Tie.Render("Draw"), e.Rounds)
		} else {
			m.printf("%s wins after %d rounds\n", m.styles.Winner.Render(e.Winner), e.Rounds)
		}
		if m.ties > 0 {
			m.printf("%s\n", m.styles.Info.Render(fmt.Sprintf("%d tied rounds", m.ties)))
		}
	}
}

func (m *Monitor) printRound(e game.RoundResolvedEvent) {
	res := e.Result
	m.printf("\n%s %s\n",
		m.styles.Round.Render(fmt.Sprintf("Round %d", res.Round)),
		m.styles.Attribute.Render(res.Attribute))

	players := make([]string, 0, len(res.Cards))
	for p := range res.Cards {
		players = append(players, p)
	}
	sort.Strings(players)

	for _, p := range players {
		pc := res.Cards[p]
		marker := " "
		if !res.Tie && len(res.Winners) == 1 && res.Winners[0] == p {
			marker = "★"
		}
		m.printf("  %s %-12s %-20s %s\n", marker, p, m.cardName(pc.CardID), game.FormatAttributeValue(res.Attribute, pc.Value))
	}

	if res.Tie {
		m.ties++
		who := "Nobody wins"
		if len(res.Winners) > 0 {
			who = "Tie between " + strings.Join(res.Winners, " and ")
		}
		m.printf("%s\n", m.styles.Tie.Render(fmt.Sprintf("%s, %d cards in the pot", who, e.TiePot)))
	} else if len(res.Winners) == 1 {
		m.printf("%s takes the round\n", m.styles.Winner.Render(res.Winners[0]))
	}

	sizes := make([]string, 0, len(e.HandSizes))
	for _, p := range players {
		if n, ok := e.HandSizes[p]; ok {
			sizes = append(sizes, fmt.Sprintf("%s %d", p, n))
		}
	}
	if len(sizes) > 0 {
		m.printf("%s\n", m.styles.Info.Render("Cards: "+strings.Join(sizes, " · ")))
	}
	m.printf("%s\n", m.styles.Separator.Render(strings.Repeat("─", 40)))
}

func (m *Monitor) deckName() string {
	if m.deck == nil {
		return "Top Trumps"
	}
	return m.deck.Name
}

func (m *Monitor) cardName(id string) string {
	if m.deck != nil {
		if c, ok := m.deck.Card(id); ok {
			return c.Name
		}
	}
	return id
}

func (m *Monitor) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.writer, format, args...)
}
