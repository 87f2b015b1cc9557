// Package conn owns the WebSocket connection to the chat backend.
//
// The manager keeps exactly one transport instance alive, scoped to one
// subscribed channel. Changing the channel tears the transport down and
// starts a fresh connect cycle; there is no in-place resubscription. The
// manager never retries on its own; reconnect policy belongs to the
// caller, via the OnClose hook.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/api"
	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/session"
	"github.com/cristianoliveira/chat-intray/internal/store"
	"github.com/gorilla/websocket"
)

// Status is the connection lifecycle phase.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	default:
		return "idle"
	}
}

// ErrorEvent is the structured payload reported through the error callback.
type ErrorEvent struct {
	Code      int
	Reason    string
	Timestamp time.Time
	Err       error
}

// InboundEvent is a routed inbound message. Kind is "message" for a single
// transport frame and "messages" for a reconciliation batch fetched after a
// refresh-content signal.
type InboundEvent struct {
	Kind     string
	Raw      json.RawMessage
	Messages []api.Message
}

// Options configure a Manager. Callbacks may be nil.
type Options struct {
	// URL is the WebSocket endpoint. Defaults to the configured server_url.
	URL string
	// SubscriptionDelay is the fallback delay between the transport open
	// event and the subscription handshake, used when no subscription ack
	// arrives. Defaults to the configured subscription_delay_ms.
	SubscriptionDelay time.Duration
	// Store provides session credentials for the outbound send path.
	Store store.Store
	// API fetches channel messages for refresh-content reconciliation.
	API *api.Client

	OnMessage func(InboundEvent)
	OnError   func(ErrorEvent)
	// OnClose runs after cleanup when the transport closes for any
	// reason. Callers wanting reconnect/backoff hook it here.
	OnClose func()
}

// dialFunc is swappable for tests.
type dialFunc func(ctx context.Context, url string) (*websocket.Conn, error)

func defaultDial(ctx context.Context, url string) (*websocket.Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return c, err
}

// Manager maintains the single live transport connection.
type Manager struct {
	opts Options
	dial dialFunc

	mu         sync.Mutex
	conn       *websocket.Conn
	connecting bool
	connected  bool
	channels   []string // normalized subscription list
	active     string   // normalized first entry, set while connected
	gen        int      // bumped by cleanup so late callbacks become no-ops

	writeMu sync.Mutex

	ackCh chan struct{}
}

// NewManager creates a Manager with the given options, filling defaults
// from the global configuration.
func NewManager(opts Options) *Manager {
	if opts.URL == "" {
		opts.URL = config.Get("server_url", "")
	}
	if opts.SubscriptionDelay <= 0 {
		opts.SubscriptionDelay = time.Duration(config.GetInt("subscription_delay_ms", 1000)) * time.Millisecond
	}
	return &Manager{
		opts: opts,
		dial: defaultDial,
	}
}

// Status returns the current lifecycle phase.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.connected:
		return StatusOpen
	case m.connecting:
		return StatusConnecting
	default:
		return StatusIdle
	}
}

// ActiveChannel returns the normalized channel the live transport is
// subscribed to, or empty string when idle.
func (m *Manager) ActiveChannel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetChannels updates the subscription list. The normalized first entry is
// compared against the currently active channel; on change, the existing
// transport is unconditionally closed and a new connect cycle begins.
func (m *Manager) SetChannels(ctx context.Context, ids []string) error {
	normalized := channel.NormalizeAll(ids)

	m.mu.Lock()
	var first string
	if len(normalized) > 0 {
		first = normalized[0]
	}
	unchanged := m.connected && first != "" && first == m.active
	m.channels = normalized
	m.mu.Unlock()

	if unchanged {
		return nil
	}
	m.Cleanup()
	if len(normalized) == 0 {
		return nil
	}
	return m.Connect(ctx)
}

// Connect opens the transport. It is idempotent: a no-op while a connect
// attempt is in flight or an open connection exists. On success the
// subscription handshake is scheduled; on failure the error surfaces via
// the error callback and no retry is performed.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.connecting || m.connected {
		m.mu.Unlock()
		logging.Debug("connect skipped, already connecting or connected")
		return nil
	}
	m.connecting = true
	gen := m.gen
	url := m.opts.URL
	m.mu.Unlock()

	c, err := m.dial(ctx, url)
	if err != nil {
		m.mu.Lock()
		if gen == m.gen {
			m.connecting = false
		}
		m.mu.Unlock()
		m.reportError(ErrorEvent{Reason: "dial failed", Timestamp: time.Now(), Err: err})
		return fmt.Errorf("conn: dial %s: %w", url, err)
	}

	m.mu.Lock()
	if gen != m.gen {
		// Cleanup ran while dialing; this connection is superseded.
		m.mu.Unlock()
		_ = c.Close()
		return nil
	}
	m.conn = c
	m.connecting = false
	m.connected = true
	if len(m.channels) > 0 {
		m.active = m.channels[0]
	}
	m.ackCh = make(chan struct{}, 1)
	ackCh := m.ackCh
	m.mu.Unlock()

	go m.readLoop(gen, c)
	go m.scheduleSubscription(gen, ackCh)

	logging.Info("transport connected", "url", url)
	return nil
}

// scheduleSubscription sends the subscription handshake once the server
// acknowledges readiness, falling back to the fixed delay when no ack
// arrives. The guard re-checks the generation so a superseded connect
// cycle never sends a stale subscription.
func (m *Manager) scheduleSubscription(gen int, ackCh <-chan struct{}) {
	select {
	case <-ackCh:
	case <-time.After(m.opts.SubscriptionDelay):
	}

	m.mu.Lock()
	stale := gen != m.gen || !m.connected
	m.mu.Unlock()
	if stale {
		logging.Debug("subscription skipped, connection superseded")
		return
	}
	if err := m.SendSubscription(); err != nil {
		m.reportError(ErrorEvent{Reason: "subscription failed", Timestamp: time.Now(), Err: err})
	}
}

// SendSubscription transmits the subscription frame naming the normalized
// channel IDs. No-op (logged) when the transport is not open or the
// channel list is empty.
func (m *Manager) SendSubscription() error {
	m.mu.Lock()
	c := m.conn
	open := m.connected
	channels := append([]string(nil), m.channels...)
	m.mu.Unlock()

	if c == nil || !open {
		logging.Warn("subscription skipped, transport not open")
		return nil
	}
	if len(channels) == 0 {
		logging.Warn("subscription skipped, no channels")
		return nil
	}

	frame := buildSubscriptionFrame(
		config.Get("subscription_package", "livechat"),
		config.Get("subscription_page", "channelmessages"),
		channels,
	)
	if err := m.writeJSON(c, frame); err != nil {
		return fmt.Errorf("conn: send subscription: %w", err)
	}
	logging.Debug("subscription sent", "channels", channels)
	return nil
}

// SendMessage transmits an outbound chat message on the active channel.
// Requires an open transport and valid session credentials; failures are
// reported through the error callback and returned.
func (m *Manager) SendMessage(title, details string) error {
	m.mu.Lock()
	c := m.conn
	open := m.connected
	active := m.active
	m.mu.Unlock()

	if c == nil || !open {
		err := errors.New("conn: transport not open")
		m.reportError(ErrorEvent{Reason: "send failed", Timestamp: time.Now(), Err: err})
		return err
	}

	creds, err := session.Load(m.opts.Store)
	if err != nil {
		m.reportError(ErrorEvent{Reason: "send failed", Timestamp: time.Now(), Err: err})
		return fmt.Errorf("conn: send message: %w", err)
	}

	frame := buildMessageFrame(
		config.Get("subscription_package", "livechat"),
		config.Get("message_namespace", "livechat"),
		active,
		title,
		details,
		creds.AccountAPIKey,
	)
	if err := m.writeJSON(c, frame); err != nil {
		m.reportError(ErrorEvent{Reason: "send failed", Timestamp: time.Now(), Err: err})
		return fmt.Errorf("conn: send message: %w", err)
	}
	return nil
}

func (m *Manager) writeJSON(c *websocket.Conn, v any) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return c.WriteJSON(v)
}

// readLoop processes inbound frames in delivery order until the transport
// closes. Malformed frames are reported and dropped; the connection stays
// open.
func (m *Manager) readLoop(gen int, c *websocket.Conn) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			m.handleTransportClose(gen, err)
			return
		}

		var envelope inboundEnvelope
		if jsonErr := json.Unmarshal(data, &envelope); jsonErr != nil {
			m.reportError(ErrorEvent{Reason: "malformed frame", Timestamp: time.Now(), Err: jsonErr})
			continue
		}

		switch envelope.Type {
		case "subscribed":
			m.mu.Lock()
			ackCh := m.ackCh
			stale := gen != m.gen
			m.mu.Unlock()
			if !stale && ackCh != nil {
				select {
				case ackCh <- struct{}{}:
				default:
				}
			}
		case "refreshcontent":
			go m.RefreshMessages(context.Background())
		default:
			if m.opts.OnMessage != nil {
				m.opts.OnMessage(InboundEvent{Kind: "message", Raw: json.RawMessage(data)})
			}
		}
	}
}

// handleTransportClose reports the close and tears the connection down.
// A stale generation means cleanup already ran for this transport.
func (m *Manager) handleTransportClose(gen int, err error) {
	m.mu.Lock()
	stale := gen != m.gen
	m.mu.Unlock()
	if stale {
		return
	}

	event := ErrorEvent{Reason: "transport closed", Timestamp: time.Now(), Err: err}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		event.Code = closeErr.Code
		event.Reason = closeErr.Text
	}
	m.reportError(event)

	m.Cleanup()
	if m.opts.OnClose != nil {
		m.opts.OnClose()
	}
}

// RefreshMessages re-fetches the full message list for the active channel
// and re-emits it through the inbound-message callback as a "messages"
// batch. This reconciles state after a server-side mutation without a
// reconnect.
func (m *Manager) RefreshMessages(ctx context.Context) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == "" || m.opts.API == nil {
		return
	}

	creds, err := session.Load(m.opts.Store)
	if err != nil {
		m.reportError(ErrorEvent{Reason: "refresh failed", Timestamp: time.Now(), Err: err})
		return
	}
	messages, err := m.opts.API.FetchChannelMessages(ctx, creds, active)
	if err != nil {
		m.reportError(ErrorEvent{Reason: "refresh failed", Timestamp: time.Now(), Err: err})
		return
	}
	if m.opts.OnMessage != nil {
		m.opts.OnMessage(InboundEvent{Kind: "messages", Messages: messages})
	}
}

// Cleanup closes the transport if present and resets all internal refs.
// Idempotent; late callbacks from the torn-down connection become no-ops.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.connecting = false
	m.connected = false
	m.active = ""
	m.ackCh = nil
	m.gen++
	m.mu.Unlock()

	if c != nil {
		// The close frame goes through writeMu: gorilla allows only one
		// concurrent writer, and an in-flight send may still hold the pen.
		m.writeMu.Lock()
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		_ = c.Close()
	}
}

func (m *Manager) reportError(event ErrorEvent) {
	logging.Warn("transport error", "code", event.Code, "reason", event.Reason, "error", event.Err)
	if m.opts.OnError != nil {
		m.opts.OnError(event)
	}
}
