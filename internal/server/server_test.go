package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/toptrumps/internal/store"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func startTestServer(t *testing.T) (*Server, *store.MemoryStore, *websocket.Conn) {
	t.Helper()

	mem := store.NewMemoryStore(testLogger())
	srv := NewServer("", mem, testLogger())
	ts := httptest.NewServer(srv.Handler())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ts.Close()
		_ = srv.Stop(context.Background())
		mem.Close()
	})
	return srv, mem, conn
}

func send(t *testing.T, conn *websocket.Conn, requestID string, messageType MessageType, data any) {
	t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(t, err)
	msg.RequestID = requestID
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv := NewServer("", store.NewMemoryStore(testLogger()), testLogger())
	defer func() { _ = srv.Stop(context.Background()) }()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServerGetMissingPath(t *testing.T) {
	t.Parallel()
	_, _, conn := startTestServer(t)

	send(t, conn, "r1", MessageTypeGet, GetData{Path: "matches/nope"})
	msg := receive(t, conn)

	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, ErrorCodeNotFound, data.Code)
}

func TestServerUpdateAndGet(t *testing.T) {
	t.Parallel()
	_, mem, conn := startTestServer(t)

	send(t, conn, "u1", MessageTypeUpdate, UpdateData{Values: map[string]json.RawMessage{
		"matches/m1/phase":      json.RawMessage(`"selecting"`),
		"matches/m1/round":      json.RawMessage(`2`),
		"matches/m1/attributes": json.RawMessage(`null`),
	}})
	ack := receive(t, conn)
	assert.Equal(t, MessageTypeAck, ack.Type)
	assert.Equal(t, "u1", ack.RequestID)

	raw, err := mem.Get(context.Background(), "matches/m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"selecting","round":2}`, string(raw))

	send(t, conn, "g1", MessageTypeGet, GetData{Path: "matches/m1/round"})
	msg := receive(t, conn)
	require.Equal(t, MessageTypeValue, msg.Type)
	var data ValueData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.JSONEq(t, `2`, string(data.Value))
}

func TestServerSubscribe(t *testing.T) {
	t.Parallel()
	srv, mem, conn := startTestServer(t)
	ctx := context.Background()

	send(t, conn, "s1", MessageTypeSubscribe, SubscribeData{Path: "matches/m1/phase"})
	initial := receive(t, conn)
	require.Equal(t, MessageTypeSnapshot, initial.Type)
	var snap SnapshotData
	require.NoError(t, json.Unmarshal(initial.Data, &snap))
	assert.Equal(t, "s1", snap.SubscriptionID)
	assert.Equal(t, "null", string(snap.Value))

	require.NoError(t, mem.Set(ctx, "matches/m1/phase", "spinning"))
	next := receive(t, conn)
	require.NoError(t, json.Unmarshal(next.Data, &snap))
	assert.Equal(t, `"spinning"`, string(snap.Value))

	send(t, conn, "s2", MessageTypeUnsubscribe, UnsubscribeData{SubscriptionID: "s1"})
	ack := receive(t, conn)
	assert.Equal(t, MessageTypeAck, ack.Type)
	assert.Equal(t, "s2", ack.RequestID)

	// The only connection has no subscriptions left.
	srv.mu.RLock()
	for c := range srv.connections {
		assert.Zero(t, c.Subscriptions())
	}
	srv.mu.RUnlock()
}

func TestServerUnknownMessage(t *testing.T) {
	t.Parallel()
	_, _, conn := startTestServer(t)

	send(t, conn, "x", MessageType("bogus"), struct{}{})
	msg := receive(t, conn)

	assert.Equal(t, MessageTypeError, msg.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, ErrorCodeUnknownType, data.Code)
}

func TestServerSubscribeNeedsRequestID(t *testing.T) {
	t.Parallel()
	_, _, conn := startTestServer(t)

	send(t, conn, "", MessageTypeSubscribe, SubscribeData{Path: "matches"})
	msg := receive(t, conn)

	assert.Equal(t, MessageTypeError, msg.Type)
}
