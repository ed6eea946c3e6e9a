package shared

import (
	"fmt"

	"github.com/lox/toptrumps/internal/deck"
)

// LoadCatalog returns the built-in decks plus any from extra HCL files.
func LoadCatalog(files ...string) (*deck.Catalog, error) {
	catalog, err := deck.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in decks: %w", err)
	}
	if err := catalog.LoadFiles(files...); err != nil {
		return nil, err
	}
	return catalog, nil
}
