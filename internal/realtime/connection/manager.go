// internal/realtime/connection/manager.go

// Package connection owns push channel lifecycle: opening, monitoring, and
// reconnecting logical channels with capped exponential backoff. Disconnects
// are never fatal; a channel retries until its owner calls Close.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-client/internal/common/auth"
	"collab-client/internal/common/errors"
	"collab-client/internal/common/logger"
	"collab-client/internal/common/metrics"
	"collab-client/internal/realtime/clock"
)

// FrameHandler receives raw frames from one channel, in transport order.
type FrameHandler func(raw []byte)

// Handle identifies one logical channel to its owner. After Close the
// handle is invalid: callbacks still in flight for it are ignored.
type Handle struct {
	key string
	id  string
}

// Key returns the logical channel key the handle was opened for.
func (h *Handle) Key() string {
	return h.key
}

// Options configures channel lifecycle behavior.
type Options struct {
	// BackoffBase and BackoffCap bound the reconnect delay:
	// delay(attempt) = min(cap, base * 2^attempt).
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// SendPingOnOpen sends a keepalive frame right after a successful open.
	SendPingOnOpen bool
	// PingInterval re-sends keepalives while open. Zero disables.
	PingInterval time.Duration
	// DialTimeout bounds a single connect attempt.
	DialTimeout time.Duration
}

func (o *Options) defaults() {
	if o.BackoffBase == 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap == 0 {
		o.BackoffCap = 30 * time.Second
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
}

type pingFrame struct {
	Type string `json:"type"`
}

// Manager owns at most one active channel per logical key.
type Manager struct {
	mu       sync.Mutex
	dialer   Dialer
	tokens   auth.TokenSource
	clk      clock.Clock
	logger   logger.Logger
	opts     Options
	channels map[string]*channel
}

type channel struct {
	key      string
	buildURL func(token string) string
	onFrame  FrameHandler
	handle   *Handle
	state    State
	attempt  int
	conn     Conn
	retry    clock.Timer
	ping     clock.Timer
}

func NewManager(dialer Dialer, tokens auth.TokenSource, clk clock.Clock, log logger.Logger, opts Options) *Manager {
	opts.defaults()
	return &Manager{
		dialer:   dialer,
		tokens:   tokens,
		clk:      clk,
		logger:   log.WithFields(map[string]interface{}{"component": "connection"}),
		opts:     opts,
		channels: make(map[string]*channel),
	}
}

// Open creates the channel for key and starts connecting. It fails fast
// with no retry loop when no token is available. A construction failure
// after that point enters the retry path exactly like a runtime disconnect.
// Opening a key that already has an active channel returns the existing
// handle.
func (m *Manager) Open(ctx context.Context, key string, buildURL func(token string) string, onFrame FrameHandler) (*Handle, error) {
	m.mu.Lock()
	if existing, ok := m.channels[key]; ok && existing.state != StateClosedFinal {
		handle := existing.handle
		m.mu.Unlock()
		return handle, nil
	}

	m.mu.Unlock()
	token, err := m.tokens.Token(ctx)
	if err != nil || token == "" {
		m.logger.Warn("not opening channel without token", map[string]interface{}{
			"channel": key,
		})
		if err != nil {
			return nil, err
		}
		return nil, errors.NewAuthTokenMissingError()
	}

	m.mu.Lock()
	if existing, ok := m.channels[key]; ok && existing.state != StateClosedFinal {
		handle := existing.handle
		m.mu.Unlock()
		return handle, nil
	}

	ch := &channel{
		key:      key,
		buildURL: buildURL,
		onFrame:  onFrame,
		handle:   &Handle{key: key, id: uuid.NewString()},
		state:    StateConnecting,
	}
	m.channels[key] = ch
	m.setStateGauge(ch)
	handle := ch.handle
	m.mu.Unlock()

	m.connect(ch, handle, token)
	return handle, nil
}

// Close transitions the channel to ClosedFinal, cancels any pending
// reconnect timer, and invalidates the handle. Late transport callbacks for
// the handle are ignored from here on. Closing twice is a no-op.
func (m *Manager) Close(h *Handle) {
	if h == nil {
		return
	}

	m.mu.Lock()
	ch, ok := m.channels[h.key]
	if !ok || ch.handle != h {
		m.mu.Unlock()
		return
	}

	ch.state = StateClosedFinal
	if ch.retry != nil {
		ch.retry.Stop()
		ch.retry = nil
	}
	if ch.ping != nil {
		ch.ping.Stop()
		ch.ping = nil
	}
	conn := ch.conn
	ch.conn = nil
	m.setStateGauge(ch)
	delete(m.channels, h.key)
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.logger.Info("channel closed", map[string]interface{}{"channel": h.key})
}

// CloseAll tears down every channel. Used on logout and shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.channels))
	for _, ch := range m.channels {
		handles = append(handles, ch.handle)
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.Close(h)
	}
}

// State reports the channel's current lifecycle state. A closed or unknown
// handle reports ClosedFinal.
func (m *Manager) State(h *Handle) State {
	if h == nil {
		return StateClosedFinal
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[h.key]
	if !ok || ch.handle != h {
		return StateClosedFinal
	}
	return ch.state
}

func (m *Manager) connect(ch *channel, h *Handle, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.DialTimeout)
	defer cancel()

	conn, err := m.dialer.Dial(ctx, ch.buildURL(token))

	m.mu.Lock()
	if m.stale(ch, h) {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		stdErr := errors.NewChannelConnectError(ch.key, err)
		m.logger.Warn("channel connect failed", map[string]interface{}{
			"channel": ch.key,
			"code":    string(stdErr.Code),
			"error":   err.Error(),
		})
		m.scheduleRetryLocked(ch)
		m.mu.Unlock()
		return
	}

	ch.conn = conn
	ch.state = StateOpen
	ch.attempt = 0
	m.setStateGauge(ch)
	m.mu.Unlock()

	m.logger.Info("channel open", map[string]interface{}{"channel": ch.key})

	if m.opts.SendPingOnOpen {
		// Best effort: a write failure surfaces through the read loop.
		_ = conn.WriteJSON(pingFrame{Type: "ping"})
	}
	if m.opts.PingInterval > 0 {
		m.schedulePing(ch, h)
	}

	go m.readLoop(ch, h, conn)
}

// readLoop is the single reader of one live connection; calling onFrame
// from here preserves the transport's frame order for this channel.
func (m *Manager) readLoop(ch *channel, h *Handle, conn Conn) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			m.onDisconnect(ch, h, conn, err)
			return
		}
		ch.onFrame(raw)
	}
}

// onDisconnect handles remote close and transport errors. The identity
// checks make late callbacks for a superseded connection inert: a closed
// channel must never resurrect its reconnect loop.
func (m *Manager) onDisconnect(ch *channel, h *Handle, conn Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stale(ch, h) || ch.conn != conn {
		return
	}

	stdErr := errors.NewChannelDisconnectedError(ch.key, err)
	m.logger.Warn("channel disconnected", map[string]interface{}{
		"channel": ch.key,
		"code":    string(stdErr.Code),
		"error":   stdErr.Details,
	})

	ch.conn = nil
	if ch.ping != nil {
		ch.ping.Stop()
		ch.ping = nil
	}
	m.scheduleRetryLocked(ch)
}

// scheduleRetryLocked arms the backoff timer for the next attempt. Caller
// holds m.mu and has ruled out ClosedFinal.
func (m *Manager) scheduleRetryLocked(ch *channel) {
	ch.state = StateClosedWillRetry
	ch.attempt++
	delay := m.backoffDelay(ch.attempt)
	m.setStateGauge(ch)
	metrics.ChannelReconnects.WithLabelValues(ch.key).Inc()

	m.logger.Info("scheduling reconnect", map[string]interface{}{
		"channel": ch.key,
		"attempt": ch.attempt,
		"delay":   delay.String(),
	})

	h := ch.handle
	ch.retry = m.clk.AfterFunc(delay, func() {
		m.reconnect(ch, h)
	})
}

func (m *Manager) reconnect(ch *channel, h *Handle) {
	m.mu.Lock()
	if m.stale(ch, h) || ch.state != StateClosedWillRetry {
		m.mu.Unlock()
		return
	}
	ch.state = StateConnecting
	ch.retry = nil
	m.setStateGauge(ch)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.DialTimeout)
	token, err := m.tokens.Token(ctx)
	cancel()
	if err != nil || token == "" {
		// The token may come back (refresh in flight); keep the retry
		// loop alive rather than silently parking the channel.
		m.mu.Lock()
		if !m.stale(ch, h) {
			m.scheduleRetryLocked(ch)
		}
		m.mu.Unlock()
		return
	}

	m.connect(ch, h, token)
}

func (m *Manager) schedulePing(ch *channel, h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stale(ch, h) || ch.state != StateOpen {
		return
	}
	ch.ping = m.clk.AfterFunc(m.opts.PingInterval, func() {
		m.mu.Lock()
		if m.stale(ch, h) || ch.state != StateOpen || ch.conn == nil {
			m.mu.Unlock()
			return
		}
		conn := ch.conn
		m.mu.Unlock()

		_ = conn.WriteJSON(pingFrame{Type: "ping"})
		m.schedulePing(ch, h)
	})
}

// stale reports whether the handle no longer identifies the active channel
// for its key. Caller holds m.mu.
func (m *Manager) stale(ch *channel, h *Handle) bool {
	current, ok := m.channels[ch.key]
	return !ok || current != ch || ch.handle != h || ch.state == StateClosedFinal
}

func (m *Manager) backoffDelay(attempt int) time.Duration {
	// Shift saturates well before overflow: the cap wins long first.
	if attempt > 30 {
		attempt = 30
	}
	delay := m.opts.BackoffBase * time.Duration(1<<uint(attempt))
	if delay > m.opts.BackoffCap || delay <= 0 {
		delay = m.opts.BackoffCap
	}
	return delay
}

func (m *Manager) setStateGauge(ch *channel) {
	metrics.ChannelState.WithLabelValues(ch.key).Set(float64(ch.state))
}
