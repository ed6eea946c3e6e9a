package deck

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed decks/*.hcl
var builtinFS embed.FS

type deckFile struct {
	Decks []*Deck `hcl:"deck,block"`
}

// Catalog is a read-only lookup of decks by id.
type Catalog struct {
	decks map[string]*Deck
}

// NewCatalog returns a catalog holding decks.
func NewCatalog(decks ...*Deck) (*Catalog, error) {
	c := &Catalog{decks: make(map[string]*Deck)}
	for _, d := range decks {
		if err := c.add(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Builtin returns the catalog of decks shipped with the binary.
func Builtin() (*Catalog, error) {
	c := &Catalog{decks: make(map[string]*Deck)}
	entries, err := fs.ReadDir(builtinFS, "decks")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := path.Join("decks", e.Name())
		src, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if err := c.parse(src, name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFiles adds every deck found in the given HCL files.
func (c *Catalog) LoadFiles(filenames ...string) error {
	for _, filename := range filenames {
		src, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read deck file: %w", err)
		}
		if err := c.parse(src, filename); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) parse(src []byte, filename string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var df deckFile
	if diags := gohcl.DecodeBody(file.Body, nil, &df); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	for _, d := range df.Decks {
		if err := c.add(d); err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	return nil
}

func (c *Catalog) add(d *Deck) error {
	if err := d.init(); err != nil {
		return err
	}
	if _, dup := c.decks[d.ID]; dup {
		return fmt.Errorf("deck %s already loaded", d.ID)
	}
	c.decks[d.ID] = d
	return nil
}

// Deck returns the deck with id.
func (c *Catalog) Deck(id string) (*Deck, bool) {
	d, ok := c.decks[id]
	return d, ok
}

// GetDeckCards returns the cards of deck id, or nil when the deck is unknown.
func (c *Catalog) GetDeckCards(id string) []Card {
	d, ok := c.decks[id]
	if !ok {
		return nil
	}
	return d.Cards
}

// Decks lists all decks ordered by id.
func (c *Catalog) Decks() []*Deck {
	out := make([]*Deck, 0, len(c.decks))
	for _, d := range c.decks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
