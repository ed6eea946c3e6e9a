package server

import (
	"encoding/json"
	"time"
)

// Message represents the base WebSocket message structure. Responses echo
// the RequestID of the request they answer.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type GetData struct {
	Path string `json:"path"`
}

// UpdateData carries absolute values; a JSON null deletes the path.
type UpdateData struct {
	Values map[string]json.RawMessage `json:"values"`
}

type SetData struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type SubscribeData struct {
	Path string `json:"path"`
}

type UnsubscribeData struct {
	SubscriptionID string `json:"subscriptionId"`
}

// Server → Client Messages

type ValueData struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// SnapshotData is pushed for a subscription; the subscription id is the
// request id of the subscribe message. Value is null while the path is absent.
type SnapshotData struct {
	SubscriptionID string          `json:"subscriptionId"`
	Path           string          `json:"path"`
	Value          json.RawMessage `json:"value"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
