package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/toptrumps/internal/doctree"
)

// MemoryStore is an in-process Store. It backs single-process simulations
// and the WebSocket server.
type MemoryStore struct {
	mu     sync.Mutex
	root   any
	feed   *Feed
	logger *log.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(logger *log.Logger) *MemoryStore {
	return &MemoryStore{
		feed:   NewFeed(),
		logger: logger.WithPrefix("store"),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	root := m.root
	m.mu.Unlock()

	raw, err := doctree.Marshal(root, path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", doctree.Clean(path), ErrNotFound)
	}
	return raw, nil
}

// Update implements Store. Paths are applied in sorted order, so a parent
// written in the same batch as one of its children is written first.
func (m *MemoryStore) Update(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	paths := make([]string, 0, len(values))
	normalized := make(map[string]any, len(values))
	for p, v := range values {
		n, err := doctree.Normalize(v)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		p = doctree.Clean(p)
		paths = append(paths, p)
		normalized[p] = n
	}
	slices.Sort(paths)

	m.mu.Lock()
	defer m.mu.Unlock()

	root := m.root
	for _, p := range paths {
		var err error
		if root, err = doctree.Set(root, p, normalized[p]); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	m.root = root
	m.logger.Debug("Committed update", "paths", len(paths), "subscribers", m.feed.Len())

	m.feed.Publish(paths, func(path string) json.RawMessage {
		raw, err := doctree.Marshal(root, path)
		if err != nil {
			m.logger.Error("Failed to encode subscription value", "path", path, "error", err)
			return nil
		}
		return raw
	})
	return nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, path string, value any) error {
	return m.Update(ctx, map[string]any{path: value})
}

// Subscribe implements Store.
func (m *MemoryStore) Subscribe(ctx context.Context, path string, fn func(json.RawMessage)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	initial, err := doctree.Marshal(m.root, path)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	unsubscribe := m.feed.Add(path, initial, fn)
	m.mu.Unlock()

	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

// Close ends every subscription.
func (m *MemoryStore) Close() {
	m.feed.Close()
}
