package pgstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/toptrumps/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TOPTRUMPS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TOPTRUMPS_TEST_DATABASE_URL not set")
	}
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, url, "test-"+uuid.NewString(), logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestUpdateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "matches/m1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "matches/m1/gameState", map[string]any{
		"gamePhase":         "revealing",
		"selectedAttribute": "PIB",
	}))
	require.NoError(t, s.Update(ctx, map[string]any{
		"matches/m1/gameState/gamePhase":         "selecting",
		"matches/m1/gameState/selectedAttribute": nil,
	}))

	raw, err := s.Get(ctx, "matches/m1/gameState")
	require.NoError(t, err)
	assert.JSONEq(t, `{"gamePhase":"selecting"}`, string(raw))
}

func TestSubscribe(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got := make(chan json.RawMessage, 10)
	unsubscribe, err := s.Subscribe(ctx, "matches/m1/status", func(v json.RawMessage) { got <- v })
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, s.Set(ctx, "matches/m1/status", "playing"))
	require.NoError(t, s.Set(ctx, "matches/m1/status", "finished"))

	var values []string
	for len(values) == 0 || values[len(values)-1] != `"finished"` {
		select {
		case v := <-got:
			values = append(values, string(v))
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", values)
		}
	}
	assert.Equal(t, "", values[0], "initial value of an absent path")
	assert.LessOrEqual(t, len(values), 3)
}
