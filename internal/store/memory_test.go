package store

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// recorder collects subscription callbacks.
type recorder struct {
	mu     sync.Mutex
	values []string
	ch     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 100)}
}

func (r *recorder) fn(v json.RawMessage) {
	r.mu.Lock()
	r.values = append(r.values, string(v))
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []string {
	t.Helper()
	for {
		r.mu.Lock()
		got := len(r.values)
		r.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-r.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d values, got %d", n, got)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())

	_, err := s.Get(ctx, "matches/m1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, MatchPath("m1"), map[string]any{
		"deckId":    "paises",
		"gameState": map[string]any{"gamePhase": "spinning", "currentRound": 1},
	}))

	raw, err := s.Get(ctx, "matches/m1/gameState/gamePhase")
	require.NoError(t, err)
	assert.JSONEq(t, `"spinning"`, string(raw))

	var phase string
	require.NoError(t, GetJSON(ctx, s, "matches/m1/gameState/gamePhase", &phase))
	assert.Equal(t, "spinning", phase)
}

func TestMemoryStoreUpdateIsAtomicAndDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())
	require.NoError(t, s.Set(ctx, "matches/m1/gameState", map[string]any{
		"currentRoundCards": map[string]any{"alice": "brasil"},
		"selectedAttribute": "PIB",
	}))

	require.NoError(t, s.Update(ctx, map[string]any{
		"matches/m1/gameState/currentRoundCards": nil,
		"matches/m1/gameState/selectedAttribute": nil,
		"matches/m1/gameState/gamePhase":         "selecting",
	}))

	raw, err := s.Get(ctx, "matches/m1/gameState")
	require.NoError(t, err)
	assert.JSONEq(t, `{"gamePhase":"selecting"}`, string(raw))

	require.NoError(t, s.Set(ctx, "matches/m1", nil))
	_, err = s.Get(ctx, "matches")
	assert.ErrorIs(t, err, ErrNotFound, "empty parents are pruned")
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())
	require.NoError(t, s.Set(ctx, "matches/m1/status", "playing"))

	rec := newRecorder()
	unsubscribe, err := s.Subscribe(ctx, "matches/m1", rec.fn)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "matches/m2/status", "waiting"), "unrelated path")
	require.NoError(t, s.Set(ctx, "matches/m1/status", "finished"))
	require.NoError(t, s.Set(ctx, "matches/m1/status", "finished"), "unchanged value")
	require.NoError(t, s.Set(ctx, "matches", map[string]any{"m1": map[string]any{"status": "waiting"}}), "ancestor write")

	got := rec.wait(t, 3)
	assert.Equal(t, []string{
		`{"status":"playing"}`,
		`{"status":"finished"}`,
		`{"status":"waiting"}`,
	}, got)

	unsubscribe()
	require.NoError(t, s.Set(ctx, "matches/m1/status", "playing"))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.wait(t, 3), 3)
}

func TestMemoryStoreSubscribeAbsentPath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore(testLogger())

	rec := newRecorder()
	_, err := s.Subscribe(ctx, "matches/m1/gameState", rec.fn)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "matches/m1/gameState/gamePhase", "spinning"))

	got := rec.wait(t, 2)
	assert.Equal(t, "", got[0], "absent value is delivered as nil")
	assert.JSONEq(t, `{"gamePhase":"spinning"}`, got[1])

	cancel()
	assert.Eventually(t, func() bool { return s.feed.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreOrderedDelivery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger())

	rec := newRecorder()
	_, err := s.Subscribe(ctx, "counter", rec.fn)
	require.NoError(t, err)

	for i := 1; i <= 50; i++ {
		require.NoError(t, s.Set(ctx, "counter", i))
	}

	got := rec.wait(t, 51)
	for i, v := range got[1:] {
		var n int
		require.NoError(t, json.Unmarshal([]byte(v), &n))
		assert.Equal(t, i+1, n)
	}
}
