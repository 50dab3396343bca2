package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/pkg/config"
	"exotoura_chat/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
	defaultSendBuffer     = 256
)

// ReconnectPolicy exponential backoff used after a dropped connection
type ReconnectPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime 0 keeps retrying until Close
	MaxElapsedTime time.Duration
}

func (p ReconnectPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Reset()
	return b
}

// Options socket settings, zero values fall back to defaults
type Options struct {
	URL            string
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// DialRetries extra attempts made by Connect before giving up
	DialRetries uint64
	Reconnect   ReconnectPolicy
	Dialer      *websocket.Dialer
}

// OptionsFromConfig maps the client config onto Options
func OptionsFromConfig(cfg config.Client) Options {
	return Options{
		URL:            cfg.Gateway.URL,
		WriteWait:      cfg.Gateway.WriteWait,
		PongWait:       cfg.Gateway.PongWait,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
		SendBuffer:     cfg.Gateway.SendBuffer,
		Reconnect: ReconnectPolicy{
			InitialInterval: cfg.Reconnect.InitialInterval,
			MaxInterval:     cfg.Reconnect.MaxInterval,
			MaxElapsedTime:  cfg.Reconnect.MaxElapsedTime,
		},
	}
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// SocketTransport Transport over a gorilla websocket connection.
// One read pump and one write pump run per live connection.
type SocketTransport struct {
	opts Options

	mu       sync.RWMutex
	handlers map[domain.EventName][]Handler
	conn     *websocket.Conn
	send     chan []byte
	token    string
	closed   bool

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSocketTransport create a transport, nothing is dialed until Connect
func NewSocketTransport(opts Options) *SocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &SocketTransport{
		opts:     opts.withDefaults(),
		handlers: make(map[domain.EventName][]Handler),
		runCtx:   ctx,
		cancel:   cancel,
	}
}

// Connect dial the gateway with token. A live connection makes it a no-op.
func (s *SocketTransport) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.token = token
	s.mu.Unlock()

	var conn *websocket.Conn
	op := func() error {
		c, err := s.dial(ctx, token)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.opts.Reconnect.backOff(), s.opts.DialRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return err
	}
	return s.attach(conn)
}

func (s *SocketTransport) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := s.opts.Dialer.DialContext(ctx, s.opts.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status))
		}
		return nil, fmt.Errorf("dial %s: %w", s.opts.URL, err)
	}
	conn.SetReadLimit(s.opts.MaxMessageSize)
	return conn, nil
}

func (s *SocketTransport) attach(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return ErrClosed
	}
	if s.conn != nil {
		// lost a race with a concurrent Connect
		_ = conn.Close()
		return nil
	}

	send := make(chan []byte, s.opts.SendBuffer)
	quit := make(chan struct{})
	s.conn = conn
	s.send = send

	s.wg.Add(2)
	connects.Inc()
	go s.readPump(conn, quit)
	go s.writePump(conn, send, quit)

	logger.Log.Info("socket connected", zap.String("url", s.opts.URL))
	return nil
}

// detach drops conn and, unless closed, starts the reconnect loop
func (s *SocketTransport) detach(conn *websocket.Conn, quit chan struct{}) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.send = nil
	}
	close(quit)
	reconnect := !s.closed
	if reconnect {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	_ = conn.Close()
	if reconnect {
		logger.Log.Warn("socket dropped, reconnecting", zap.String("url", s.opts.URL))
		go s.reconnect()
	}
}

func (s *SocketTransport) reconnect() {
	defer s.wg.Done()

	op := func() error {
		s.mu.RLock()
		closed, token := s.closed, s.token
		s.mu.RUnlock()
		if closed {
			return backoff.Permanent(ErrClosed)
		}

		conn, err := s.dial(s.runCtx, token)
		if err != nil {
			logger.Log.Debug("socket redial failed", zap.Error(err))
			return err
		}
		if err := s.attach(conn); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.opts.Reconnect.backOff(), s.runCtx)); err != nil {
		logger.Log.Warn("socket reconnect abandoned", zap.Error(err))
	}
}

func (s *SocketTransport) readPump(conn *websocket.Conn, quit chan struct{}) {
	defer s.wg.Done()
	defer s.detach(conn, quit)

	pongWait := s.opts.PongWait
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warn("socket read", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			framesReceived.WithLabelValues(resultDropped).Inc()
			logger.Log.Warn("socket frame dropped", zap.ByteString("frame", data))
			continue
		}
		s.dispatch(env)
	}
}

func (s *SocketTransport) writePump(conn *websocket.Conn, send <-chan []byte, quit <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Log.Warn("socket write", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-quit:
			return
		}
	}
}

func (s *SocketTransport) dispatch(env Envelope) {
	s.mu.RLock()
	hs := append([]Handler(nil), s.handlers[env.Event]...)
	s.mu.RUnlock()

	if len(hs) == 0 {
		framesReceived.WithLabelValues(resultUnhandled).Inc()
		logger.Log.Debug("socket event without handler", zap.String("event", string(env.Event)))
		return
	}
	framesReceived.WithLabelValues(resultDispatched).Inc()
	for _, h := range hs {
		s.call(env, h)
	}
}

func (s *SocketTransport) call(env Envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanics.WithLabelValues(string(env.Event)).Inc()
			logger.Log.Error("socket handler panic", zap.String("event", string(env.Event)), zap.Any("recover", r))
		}
	}()
	h(env.Data)
}

// Emit queue event for the write pump
func (s *SocketTransport) Emit(event domain.EventName, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.conn == nil {
		emits.WithLabelValues(string(event), resultNotConnected).Inc()
		return ErrNotConnected
	}
	select {
	case s.send <- frame:
		emits.WithLabelValues(string(event), resultQueued).Inc()
		return nil
	default:
		emits.WithLabelValues(string(event), resultQueueFull).Inc()
		return ErrSendQueueFull
	}
}

// Subscribe add h to the handlers of event
func (s *SocketTransport) Subscribe(event domain.EventName, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// Connected true while a connection is live
func (s *SocketTransport) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.conn != nil
}

// Close stop reconnecting, close the connection and wait for the pumps
func (s *SocketTransport) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.send = nil
	s.cancel()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.opts.WriteWait))
		_ = conn.Close()
	}
	s.wg.Wait()
	return nil
}
