package app

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/internal/chat/transport"
	"exotoura_chat/pkg/logger"

	"go.uber.org/zap"
)

// DefaultTypingTimeout inactivity after which a typing burst ends
const DefaultTypingTimeout = 3 * time.Second

// seenLimit how many recent message ids are remembered for duplicate detection
const seenLimit = 4096

// Identity the signed-in user
type Identity interface {
	CurrentUserID() string
	Token() string
}

// Dialer builds a fresh, unconnected transport
type Dialer func() transport.Transport

// Option configures a ChatStore
type Option func(*ChatStore)

// WithTypingTimeout overrides DefaultTypingTimeout for both directions
func WithTypingTimeout(d time.Duration) Option {
	return func(s *ChatStore) {
		if d > 0 {
			s.typingTimeout = d
		}
	}
}

// WithClock replaces time.Now, used to stamp messages without a timestamp
func WithClock(now func() time.Time) Option {
	return func(s *ChatStore) {
		if now != nil {
			s.now = now
		}
	}
}

type typingKey struct {
	chat domain.ChatID
	user string
}

// ChatStore owns the chat list, message lists, typing and read state of one
// signed-in session, and the transport connection that keeps them in sync.
// All mutations run under mu; transport emits and listeners run after it is released.
type ChatStore struct {
	dial          Dialer
	identity      Identity
	typingTimeout time.Duration
	now           func() time.Time

	mu         sync.Mutex
	socket     transport.Transport
	connecting bool
	closed     bool

	chats     []domain.Chat
	messages  map[domain.ChatID][]domain.Message
	fetched   map[domain.ChatID]struct{}
	seen      map[string]struct{}
	seenOrder []string
	seenLimit int
	typing    map[domain.ChatID][]string
	typingOut map[domain.ChatID]bool
	selected  domain.ChatID
	listeners []func()

	outTyping *TaskSet[domain.ChatID]
	inTyping  *TaskSet[typingKey]
}

// NewChatStore create a store; nothing is connected until InitializeSocket
func NewChatStore(dial Dialer, identity Identity, opts ...Option) *ChatStore {
	s := &ChatStore{
		dial:          dial,
		identity:      identity,
		typingTimeout: DefaultTypingTimeout,
		now:           time.Now,
		messages:      make(map[domain.ChatID][]domain.Message),
		fetched:       make(map[domain.ChatID]struct{}),
		seen:          make(map[string]struct{}),
		seenLimit:     seenLimit,
		typing:        make(map[domain.ChatID][]string),
		typingOut:     make(map[domain.ChatID]bool),
		outTyping:     NewTaskSet[domain.ChatID](),
		inTyping:      NewTaskSet[typingKey](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeSocket connects the transport with the current token.
// No-op without a token or while a connection is live. Handlers are
// registered once per transport, and reconnects reuse them.
func (s *ChatStore) InitializeSocket(ctx context.Context) {
	token := s.identity.Token()
	if token == "" {
		logger.Log.Debug("chat socket skipped: no token")
		return
	}

	s.mu.Lock()
	if s.closed || s.connecting || (s.socket != nil && s.socket.Connected()) {
		s.mu.Unlock()
		return
	}
	s.connecting = true
	sock := s.socket
	if sock == nil {
		sock = s.dial()
		for _, name := range domain.InboundEvents {
			name := name
			sock.Subscribe(name, func(data json.RawMessage) { s.handle(name, data) })
		}
		s.socket = sock
	}
	s.mu.Unlock()

	err := sock.Connect(ctx, token)

	s.mu.Lock()
	s.connecting = false
	s.mu.Unlock()

	if err != nil {
		logger.Log.Warn("chat socket connect failed", zap.Error(err))
		return
	}
	logger.Log.Info("chat socket connected", zap.String("user_id", s.identity.CurrentUserID()))
	s.notify()
}

// Connected reports whether emits currently reach the transport
func (s *ChatStore) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedLocked()
}

func (s *ChatStore) connectedLocked() bool {
	return !s.closed && s.socket != nil && s.socket.Connected()
}

// Close stops every timer and closes the transport
func (s *ChatStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sock := s.socket
	s.socket = nil
	s.mu.Unlock()

	s.outTyping.Stop()
	s.inTyping.Stop()
	if sock != nil {
		return sock.Close()
	}
	return nil
}

// OnChange registers fn, called after every state change outside the store lock
func (s *ChatStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *ChatStore) notify() {
	s.mu.Lock()
	ls := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

// commit runs deferred effects once the lock is released, then notifies
func (s *ChatStore) commit(effects []func()) {
	for _, fx := range effects {
		if fx != nil {
			fx()
		}
	}
	s.notify()
}

// emitLocked returns an effect sending ev on the current socket, nil when offline
func (s *ChatStore) emitLocked(ev domain.OutboundEvent) func() {
	if !s.connectedLocked() {
		return nil
	}
	sock := s.socket
	return func() {
		if err := sock.Emit(ev.Name(), ev); err != nil {
			logger.Log.Debug("chat emit dropped", zap.String("event", string(ev.Name())), zap.Error(err))
		}
	}
}

func (s *ChatStore) handle(name domain.EventName, data json.RawMessage) {
	ev, err := domain.DecodeInbound(name, data)
	if err != nil {
		inboundEvents.WithLabelValues(string(name), "dropped").Inc()
		logger.Log.Warn("chat event dropped", zap.String("event", string(name)), zap.Error(err))
		return
	}
	inboundEvents.WithLabelValues(string(name), "applied").Inc()

	switch e := ev.(type) {
	case domain.IncomingChatMessage:
		s.onIncoming(e)
	case domain.UserTyping:
		s.onUserTyping(e)
	case domain.UserStoppedTyping:
		s.onUserStoppedTyping(e)
	case domain.MessagesRead:
		s.onMessagesRead(e)
	}
}

// Chats snapshot of the chat list, head first
func (s *ChatStore) Chats() []domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.Clone())
	}
	return out
}

// Chat one chat by id
func (s *ChatStore) Chat(id domain.ChatID) (domain.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.chats[i].Clone(), true
	}
	return domain.Chat{}, false
}

// Messages snapshot of the loaded messages of id
func (s *ChatStore) Messages(id domain.ChatID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.messages[id]
	out := make([]domain.Message, 0, len(src))
	for _, m := range src {
		out = append(out, m.Clone())
	}
	return out
}

// TypingUsers users currently typing in id, sorted
func (s *ChatStore) TypingUsers(id domain.ChatID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string{}, s.typing[id]...)
	sort.Strings(out)
	return out
}

// SelectedChatID the chat open in the UI, zero when none
func (s *ChatStore) SelectedChatID() domain.ChatID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// IsFetched whether the full history of id was loaded
func (s *ChatStore) IsFetched(id domain.ChatID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fetched[id]
	return ok
}

// TotalUnread sum of unread counts
func (s *ChatStore) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.chats {
		total += c.UnreadCount
	}
	return total
}

// seenLocked records message id and reports whether it was already recorded.
// Only the newest seenLimit ids are kept.
func (s *ChatStore) seenLocked(id string) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	s.seenOrder = append(s.seenOrder, id)
	if len(s.seenOrder) > s.seenLimit {
		delete(s.seen, s.seenOrder[0])
		s.seenOrder = s.seenOrder[1:]
	}
	return false
}

func (s *ChatStore) indexLocked(id domain.ChatID) int {
	if id.IsZero() {
		return -1
	}
	for i := range s.chats {
		if s.chats[i].ID == id {
			return i
		}
	}
	return -1
}
