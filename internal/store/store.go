// Package store defines the shared document store every client of a match
// reads from and writes to, plus an in-process implementation.
//
// The store offers last-write-wins per path and nothing more: it performs
// no validation and no locking beyond making a single Update atomic.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/toptrumps/internal/doctree"
)

// ErrNotFound is returned by Get when nothing is stored at the path.
var ErrNotFound = errors.New("document not found")

// Store is a hierarchical JSON document store addressed by slash paths.
type Store interface {
	// Get returns the JSON value at path, or ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Update writes every path in values in one atomic step. A nil value
	// deletes the path.
	Update(ctx context.Context, values map[string]any) error
	// Set replaces the subtree at path.
	Set(ctx context.Context, path string, value any) error
	// Subscribe calls fn with the current value at path, then again after
	// every change that touches it, sequentially and in commit order. A nil
	// value means the path is absent. The subscription ends when ctx is
	// done or unsubscribe is called.
	Subscribe(ctx context.Context, path string, fn func(json.RawMessage)) (unsubscribe func(), err error)
}

// MatchesRoot is the collection every match document lives under.
const MatchesRoot = "matches"

// MatchPath returns the root path of a match document.
func MatchPath(matchID string) string {
	return doctree.Join(MatchesRoot, matchID)
}

// GetJSON reads path from s and decodes it into out.
func GetJSON(ctx context.Context, s Store, path string, out any) error {
	raw, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
