// Package bot implements automated players. A bot sees the same snapshots
// as any other client and acts only through the match controller.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/toptrumps/internal/deck"
	"github.com/lox/toptrumps/internal/game"
)

// ErrEmptyHand is returned when the bot has nothing left to play.
var ErrEmptyHand = errors.New("no playable cards")

// Decision is a card to play and the attribute to call with it.
type Decision struct {
	CardID    string
	Attribute string
	// Strength is the share of opposing cards the pair beats, in [0, 1].
	Strength   float64
	Confidence float64
	Reasoning  string
}

// Bot picks the (card, attribute) pair most likely to win. It is given
// full information: every opposing hand still in play is visible to it.
type Bot struct {
	logger *log.Logger
}

// NewBot creates a new bot
func NewBot(logger *log.Logger) *Bot {
	return &Bot{logger: logger.WithPrefix("bot")}
}

// MakeDecision evaluates every card in self's hand against every card
// still held by the other active players. The pair with the highest win
// strength is kept; the first one found wins ties, scanning the hand in
// order and each card's attributes in deck category order.
func (b *Bot) MakeDecision(self string, r *game.Room, d *deck.Deck) (Decision, error) {
	st := r.GameState
	if st == nil {
		return Decision{}, fmt.Errorf("no game state")
	}
	thinking := &ThinkingContext{}

	hand := b.cards(st.Hand(self), d)
	if len(hand) == 0 {
		return Decision{}, ErrEmptyHand
	}
	opponents := b.opponentCards(self, r, d)
	thinking.AddThought(fmt.Sprintf("%d cards in hand against %d in play", len(hand), len(opponents)))

	best := Decision{Strength: -1}
	for _, card := range hand {
		for _, attr := range d.AttributeOrder(card) {
			strength := winStrength(card, attr, opponents, d)
			if strength > best.Strength {
				best = Decision{CardID: card.ID, Attribute: attr, Strength: strength}
			}
		}
	}

	if best.CardID == "" {
		return Decision{}, fmt.Errorf("no card in hand carries an attribute")
	}
	card, _ := d.Card(best.CardID)
	value, _ := card.Value(best.Attribute)
	thinking.AddThought(fmt.Sprintf("%s on %s (%s) beats %.0f%% of opposing cards",
		card.Name, best.Attribute, game.FormatAttributeValue(best.Attribute, value), best.Strength*100))
	if d.LowerIsBetter(best.Attribute) {
		thinking.AddThought(fmt.Sprintf("lower %s wins", best.Attribute))
	}
	best.Confidence = confidence(best.Strength, len(opponents))
	best.Reasoning = thinking.GetThoughts()

	b.logger.Debug("Bot decision made",
		"player", self,
		"card", best.CardID,
		"attribute", best.Attribute,
		"strength", best.Strength,
		"reasoning", best.Reasoning)
	return best, nil
}

// BestAttribute picks the attribute to call for a card that has already
// been played, using the same win strength measure.
func (b *Bot) BestAttribute(self, cardID string, r *game.Room, d *deck.Deck) (string, error) {
	card, ok := d.Card(cardID)
	if !ok {
		return "", fmt.Errorf("unknown card %q", cardID)
	}
	opponents := b.opponentCards(self, r, d)
	best, bestStrength := "", -1.0
	for _, attr := range d.AttributeOrder(card) {
		if s := winStrength(card, attr, opponents, d); s > bestStrength {
			best, bestStrength = attr, s
		}
	}
	if best == "" {
		return "", fmt.Errorf("card %q has no attributes", cardID)
	}
	return best, nil
}

func (b *Bot) cards(ids []string, d *deck.Deck) []deck.Card {
	out := make([]deck.Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := d.Card(id); ok {
			out = append(out, c)
		} else {
			b.logger.Warn("Unknown card in hand", "card", id)
		}
	}
	return out
}

// opponentCards returns the cards other active players can still play.
func (b *Bot) opponentCards(self string, r *game.Room, d *deck.Deck) []deck.Card {
	var out []deck.Card
	for _, p := range r.ActivePlayers() {
		if p == self {
			continue
		}
		out = append(out, b.cards(r.GameState.Hand(p), d)...)
	}
	return out
}

// winStrength is the fraction of opposing cards carrying attr that card
// strictly beats. It is 0 when no opposing card carries attr.
func winStrength(card deck.Card, attr string, opponents []deck.Card, d *deck.Deck) float64 {
	v, ok := card.Value(attr)
	if !ok {
		return 0
	}
	beaten, compared := 0, 0
	for _, o := range opponents {
		ov, ok := o.Value(attr)
		if !ok {
			continue
		}
		compared++
		if d.Beats(attr, v, ov) {
			beaten++
		}
	}
	if compared == 0 {
		return 0
	}
	return float64(beaten) / float64(compared)
}

// confidence discounts strength measured against few cards.
func confidence(strength float64, sample int) float64 {
	if sample == 0 {
		return 0
	}
	weight := float64(sample) / float64(sample+2)
	return strength * weight
}

// ThinkingContext accumulates the reasoning behind a decision
type ThinkingContext struct {
	thoughts []string
}

// AddThought adds a thought to the thinking process
func (tc *ThinkingContext) AddThought(thought string) {
	tc.thoughts = append(tc.thoughts, thought)
}

// GetThoughts returns the complete stream of thoughts
func (tc *ThinkingContext) GetThoughts() string {
	if len(tc.thoughts) == 0 {
		return "No clear reasoning available"
	}
	return strings.Join(tc.thoughts, ". ")
}
