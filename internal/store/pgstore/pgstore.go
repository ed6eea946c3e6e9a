// Package pgstore is a store.Store kept in PostgreSQL.
//
// Each namespace is one jsonb document row. Update locks the row, applies
// every path and bumps the version in one transaction, then announces the
// changed paths with NOTIFY. Subscribers share a single LISTEN connection,
// so changes reach them in commit order. A subscriber reads the document as
// it is when the notification arrives, so changes committed in quick
// succession may reach it as one callback carrying the latest value.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/toptrumps/internal/doctree"
	"github.com/lox/toptrumps/internal/store"
)

const (
	// Channel is the NOTIFY channel changes are announced on.
	Channel = "toptrumps_documents"

	schema = `
CREATE TABLE IF NOT EXISTS toptrumps_documents (
	namespace  text PRIMARY KEY,
	doc        jsonb,
	version    bigint NOT NULL DEFAULT 0,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
)

// notification is the NOTIFY payload.
type notification struct {
	Namespace string   `json:"ns"`
	Version   int64    `json:"v"`
	Paths     []string `json:"paths"`
}

// Store is a PostgreSQL backed store.Store.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	logger    *log.Logger
	feed      *store.Feed

	// listenMu orders initial subscription reads against notification
	// handling so no change slips between them.
	listenMu  sync.Mutex
	listenOn  sync.Once
	listenErr error
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ store.Store = (*Store)(nil)

// Open connects to databaseURL and makes sure the table exists.
// Stores with different namespaces share a database without seeing each
// other's documents.
func Open(ctx context.Context, databaseURL, namespace string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if namespace == "" {
		namespace = "default"
	}
	return &Store{
		pool:      pool,
		namespace: namespace,
		logger:    logger.WithPrefix("pgstore").With("namespace", namespace),
		feed:      store.NewFeed(),
		done:      make(chan struct{}),
	}, nil
}

// Close stops the listener and closes the pool.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.feed.Close()
	s.pool.Close()
}

func (s *Store) load(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, forUpdate bool) (any, error) {
	sql := `SELECT doc FROM toptrumps_documents WHERE namespace = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var raw []byte
	err := q.QueryRow(ctx, sql, s.namespace).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("corrupt document: %w", err)
	}
	return tree, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	tree, err := s.load(ctx, s.pool, false)
	if err != nil {
		return nil, err
	}
	raw, err := doctree.Marshal(tree, path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", doctree.Clean(path), store.ErrNotFound)
	}
	return raw, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, values map[string]any) error {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO toptrumps_documents (namespace) VALUES ($1) ON CONFLICT (namespace) DO NOTHING`,
		s.namespace); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	tree, err := s.load(ctx, tx, true)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if tree, err = doctree.Set(tree, p, normalized[p]); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	var doc []byte
	if tree != nil {
		if doc, err = json.Marshal(tree); err != nil {
			return err
		}
	}
	var version int64
	err = tx.QueryRow(ctx, `
		UPDATE toptrumps_documents
		SET doc = $2, version = version + 1, updated_at = now()
		WHERE namespace = $1
		RETURNING version`, s.namespace, doc).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	payload, err := json.Marshal(notification{Namespace: s.namespace, Version: version, Paths: paths})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Debug("Committed update", "version", version, "paths", len(paths))
	return nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(json.RawMessage)) (func(), error) {
	s.listenOn.Do(func() { s.listenErr = s.startListener() })
	if s.listenErr != nil {
		return nil, s.listenErr
	}

	s.listenMu.Lock()
	tree, err := s.load(ctx, s.pool, false)
	if err != nil {
		s.listenMu.Unlock()
		return nil, err
	}
	initial, err := doctree.Marshal(tree, path)
	if err != nil {
		s.listenMu.Unlock()
		return nil, err
	}
	unsubscribe := s.feed.Add(path, initial, fn)
	s.listenMu.Unlock()

	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

func (s *Store) startListener() error {
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Release()
		cancel()
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.cancel = cancel

	go func() {
		defer close(s.done)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error("Listener stopped", "error", err)
				}
				return
			}
			var msg notification
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				s.logger.Warn("Ignoring malformed notification", "payload", n.Payload)
				continue
			}
			if msg.Namespace != s.namespace {
				continue
			}
			s.dispatch(ctx, msg)
		}
	}()
	return nil
}

func (s *Store) dispatch(ctx context.Context, msg notification) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()

	tree, err := s.load(ctx, s.pool, false)
	if err != nil {
		s.logger.Error("Failed to read document for subscribers", "version", msg.Version, "error", err)
		return
	}
	s.feed.Publish(msg.Paths, func(path string) json.RawMessage {
		raw, err := doctree.Marshal(tree, path)
		if err != nil {
			return nil
		}
		return raw
	})
}
