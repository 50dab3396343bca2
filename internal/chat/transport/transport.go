package transport

import (
	"context"
	"encoding/json"
	"errors"

	"exotoura_chat/internal/chat/domain"
)

var (
	// ErrNotConnected no live connection, the emit was dropped
	ErrNotConnected = errors.New("transport: not connected")
	// ErrSendQueueFull outbound buffer saturated, the emit was dropped
	ErrSendQueueFull = errors.New("transport: send queue full")
	// ErrClosed transport was closed and cannot be reused
	ErrClosed = errors.New("transport: closed")
	// ErrUnauthorized gateway refused the token
	ErrUnauthorized = errors.New("transport: unauthorized")
)

// Handler receives the raw data of one inbound event
type Handler func(data json.RawMessage)

// Transport bidirectional named-event channel authenticated by a bearer token
type Transport interface {
	// Connect opens the connection. Reconnects after a drop are handled internally.
	Connect(ctx context.Context, token string) error
	// Emit queues payload under event; fire-and-forget.
	Emit(event domain.EventName, payload interface{}) error
	// Subscribe registers h for event. Handlers survive reconnects.
	Subscribe(event domain.EventName, h Handler)
	Connected() bool
	Close() error
}

// Envelope wire frame
type Envelope struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

// Encode builds the frame for event and payload
func Encode(event domain.EventName, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
