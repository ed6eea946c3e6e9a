package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeGet         MessageType = "get"
	MessageTypeUpdate      MessageType = "update"
	MessageTypeSet         MessageType = "set"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"

	// Server to client messages
	MessageTypeValue    MessageType = "value"
	MessageTypeAck      MessageType = "ack"
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeError    MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes carried by ErrorData.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUnknownType    = "unknown_message_type"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeStoreFailure   = "store_failure"
)
