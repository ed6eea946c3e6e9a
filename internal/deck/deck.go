// Package deck holds the static card catalogs matches are played with.
//
// Decks are described in HCL and never mutated once loaded:
//
//	deck "capitais" {
//	  name       = "Capitais"
//	  categories = ["População", "Altitude", "Fundação"]
//	  lower_wins = ["Fundação"]
//
//	  card "brasilia" {
//	    name       = "Brasília"
//	    attributes = { "População" = 3055149, "Altitude" = 1172, "Fundação" = 1960 }
//	  }
//	}
package deck

import (
	"fmt"
	"slices"
)

// FoundingAttribute is the founding-year attribute. Older wins, so a lower
// value beats a higher one. Decks that declare no lower_wins list fall back
// to treating this attribute that way.
const FoundingAttribute = "Fundação"

// Card is a single immutable playing card.
type Card struct {
	ID          string             `hcl:"id,label" json:"id"`
	Name        string             `hcl:"name" json:"name"`
	Description string             `hcl:"description,optional" json:"description,omitempty"`
	Image       string             `hcl:"image,optional" json:"image,omitempty"`
	Attributes  map[string]float64 `hcl:"attributes" json:"attributes"`
}

// Value returns the named attribute and whether the card carries it.
func (c Card) Value(attribute string) (float64, bool) {
	v, ok := c.Attributes[attribute]
	return v, ok
}

// Deck is a named, ordered set of categories and the fixed cards that use them.
type Deck struct {
	ID          string   `hcl:"id,label" json:"id"`
	Name        string   `hcl:"name" json:"name"`
	Description string   `hcl:"description,optional" json:"description,omitempty"`
	Categories  []string `hcl:"categories" json:"categories"`
	LowerWins   []string `hcl:"lower_wins,optional" json:"lowerWins,omitempty"`
	Cards       []Card   `hcl:"card,block" json:"cards"`

	index map[string]int
}

// New builds and validates a deck from its parts.
func New(id, name string, categories []string, cards []Card) (*Deck, error) {
	d := &Deck{ID: id, Name: name, Categories: categories, Cards: cards}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deck) init() error {
	if d.ID == "" {
		return fmt.Errorf("deck has no id")
	}
	if len(d.Cards) == 0 {
		return fmt.Errorf("deck %s: no cards", d.ID)
	}
	d.index = make(map[string]int, len(d.Cards))
	for i, c := range d.Cards {
		if c.ID == "" {
			return fmt.Errorf("deck %s: card %d has no id", d.ID, i)
		}
		if _, dup := d.index[c.ID]; dup {
			return fmt.Errorf("deck %s: duplicate card id %q", d.ID, c.ID)
		}
		if len(c.Attributes) == 0 {
			return fmt.Errorf("deck %s: card %s has no attributes", d.ID, c.ID)
		}
		for attr := range c.Attributes {
			if !slices.Contains(d.Categories, attr) {
				return fmt.Errorf("deck %s: card %s attribute %q is not a category", d.ID, c.ID, attr)
			}
		}
		d.index[c.ID] = i
	}
	for _, low := range d.LowerWins {
		if !slices.Contains(d.Categories, low) {
			return fmt.Errorf("deck %s: lower_wins attribute %q is not a category", d.ID, low)
		}
	}
	return nil
}

// Card looks a card up by id.
func (d *Deck) Card(id string) (Card, bool) {
	i, ok := d.index[id]
	if !ok {
		return Card{}, false
	}
	return d.Cards[i], true
}

// CardIDs returns the ids of every card in catalog order.
func (d *Deck) CardIDs() []string {
	ids := make([]string, len(d.Cards))
	for i, c := range d.Cards {
		ids[i] = c.ID
	}
	return ids
}

// LowerIsBetter reports whether the smaller value wins for attribute.
func (d *Deck) LowerIsBetter(attribute string) bool {
	if len(d.LowerWins) == 0 {
		return attribute == FoundingAttribute
	}
	return slices.Contains(d.LowerWins, attribute)
}

// Beats reports whether value a beats value b for attribute. Equal values never beat each other.
func (d *Deck) Beats(attribute string, a, b float64) bool {
	if d.LowerIsBetter(attribute) {
		return a < b
	}
	return a > b
}

// AttributeOrder returns the attributes card carries, in deck category order.
func (d *Deck) AttributeOrder(card Card) []string {
	out := make([]string, 0, len(card.Attributes))
	for _, cat := range d.Categories {
		if _, ok := card.Attributes[cat]; ok {
			out = append(out, cat)
		}
	}
	return out
}
