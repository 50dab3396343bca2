package app

import (
	"context"
	"encoding/json"
	"sync"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/internal/chat/transport"

	"github.com/stretchr/testify/mock"
)

// Emission one payload handed to MockTransport.Emit
type Emission struct {
	Event   domain.EventName
	Payload interface{}
}

// MockTransport mock transport.Transport; Connect, Emit and Close go through
// testify, subscriptions and the connected flag are kept locally so events can be fired
type MockTransport struct {
	mock.Mock

	mu        sync.Mutex
	handlers  map[domain.EventName][]transport.Handler
	connected bool
	emitted   []Emission
}

// NewMockTransport mock transport, not connected
func NewMockTransport() *MockTransport {
	return &MockTransport{handlers: make(map[domain.EventName][]transport.Handler)}
}

// Connect moke connect, success marks the transport connected
func (m *MockTransport) Connect(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	if args.Error(0) == nil {
		m.SetConnected(true)
	}
	return args.Error(0)
}

// Emit moke emit, the payload is recorded
func (m *MockTransport) Emit(event domain.EventName, payload interface{}) error {
	m.mu.Lock()
	m.emitted = append(m.emitted, Emission{Event: event, Payload: payload})
	m.mu.Unlock()
	args := m.Called(event, payload)
	return args.Error(0)
}

// Subscribe keep h for Fire
func (m *MockTransport) Subscribe(event domain.EventName, h transport.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

// Connected moke connection state
func (m *MockTransport) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetConnected flip the connection state, e.g. to simulate a drop
func (m *MockTransport) SetConnected(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = v
}

// Close moke close
func (m *MockTransport) Close() error {
	m.SetConnected(false)
	args := m.Called()
	return args.Error(0)
}

// Subscriptions number of handlers registered for event
func (m *MockTransport) Subscriptions(event domain.EventName) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers[event])
}

// Fire deliver payload to the handlers of event. A string or []byte payload
// is sent as raw JSON, anything else is marshaled.
func (m *MockTransport) Fire(event domain.EventName, payload interface{}) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case string:
		raw = json.RawMessage(p)
	case []byte:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			panic(err)
		}
		raw = b
	}

	m.mu.Lock()
	hs := append([]transport.Handler(nil), m.handlers[event]...)
	m.mu.Unlock()
	for _, h := range hs {
		h(raw)
	}
}

// Emitted payloads emitted under event, oldest first
func (m *MockTransport) Emitted(event domain.EventName) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interface{}
	for _, e := range m.emitted {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// StaticIdentity fixed Identity
type StaticIdentity struct {
	UserID string
	Tok    string
}

// CurrentUserID implements Identity
func (i StaticIdentity) CurrentUserID() string { return i.UserID }

// Token implements Identity
func (i StaticIdentity) Token() string { return i.Tok }
