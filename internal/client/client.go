// Package client implements the realtime chat session client: one streaming
// connection to the agent service per chat view, incremental assembly of
// assistant replies, tool invocation tracking and automatic reconnection.
package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mentorcrm/chat/internal/metrics"
	"github.com/mentorcrm/chat/internal/model/chat"
)

// Callbacks receive connection lifecycle notifications from a Transport.
// They may be invoked from any goroutine but never concurrently for the
// same connection.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnClose   func(code int, reason string)
}

// Conn is one streaming connection returned by Transport.Open.
type Conn interface {
	Send(payload []byte) error
	Close(code int, reason string) error
}

// Transport opens streaming connections. Open must not block; failures are
// reported through OnClose, which may run before Open returns.
type Transport interface {
	Open(rawURL string, cb Callbacks) Conn
}

// TokenSource supplies the bearer credential.
type TokenSource interface {
	Token() (string, error)
}

// Options configures a Client. Origin, Tokens and Transport are required.
type Options struct {
	Origin    string
	Mode      chat.Mode
	Tokens    TokenSource
	Transport Transport
	Sessions  SessionStore
	Scheduler Scheduler
	Backoff   Backoff
	// ToolRetention is how long finished tool invocations stay visible.
	ToolRetention time.Duration
	Metrics       *metrics.Collector
	Now           func() time.Time

	// OnChange receives a snapshot after every state transition.
	OnChange func(State)
	// OnSessionChange is told when the active session changes, so the
	// host can reflect it in its address bar, prompt or title.
	OnSessionChange func(mode chat.Mode, sessionID string)
}

type toolTimer struct {
	timer Timer
	seq   uint64
}

// Client is the session client of one chat view. Construct it with New,
// call Connect, and Disconnect when the view goes away.
type Client struct {
	opts      Options
	backoff   Backoff
	scheduler Scheduler
	now       func() time.Time
	retention time.Duration

	mu             sync.Mutex
	state          State
	conn           Conn
	gen            uint64
	closedGen      uint64
	reconnectTimer Timer
	reconnectSeq   uint64
	toolTimers     map[string]toolTimer
	timerSeq       uint64
}

// New validates opts and returns a disconnected client.
func New(opts Options) (*Client, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("client: token source is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("client: transport is required")
	}
	if _, err := StreamURL(opts.Origin, "probe"); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = chat.ModeChat
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("client: unknown mode %q", opts.Mode)
	}

	c := &Client{
		opts:       opts,
		backoff:    opts.Backoff.withDefaults(),
		scheduler:  opts.Scheduler,
		now:        opts.Now,
		retention:  opts.ToolRetention,
		toolTimers: make(map[string]toolTimer),
	}
	if c.scheduler == nil {
		c.scheduler = WallClock()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.retention <= 0 {
		c.retention = defaultToolRetention
	}
	c.state = NewState(opts.Mode, c.backoff.Floor)
	return c, nil
}

// StreamURL derives the websocket endpoint from the API origin.
func StreamURL(origin, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return "", fmt.Errorf("client: invalid origin %q: %w", origin, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("client: invalid origin %q: unsupported scheme", origin)
	}
	if u.Host == "" {
		return "", fmt.Errorf("client: invalid origin %q: missing host", origin)
	}
	u.Path += "/api/chat/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// Snapshot returns a copy of the current state.
func (c *Client) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Connect opens the streaming connection unless one is already open or
// opening, superseding any pending reconnect. It returns immediately; the
// outcome is visible through State.Connected and State.Error. The reconnect
// budget is only restored by a successful open.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.open()
}

// open dials a new connection, superseding any pending reconnect.
func (c *Client) open() {
	token, err := c.opts.Tokens.Token()
	if err != nil {
		log.Printf("[chat] token unavailable: %v", err)
	}

	c.mu.Lock()
	c.cancelReconnectLocked()
	if err != nil || token == "" {
		c.state.Connected = false
		c.state.Error = MsgUnauthenticated
		c.mu.Unlock()
		c.notify()
		return
	}

	rawURL, err := StreamURL(c.opts.Origin, token)
	if err != nil {
		c.state.Error = MsgGeneric
		c.mu.Unlock()
		log.Printf("[chat] %v", err)
		c.notify()
		return
	}

	old := c.conn
	c.conn = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if old != nil {
		_ = old.Close(CloseNormal, "superseded")
	}

	conn := c.opts.Transport.Open(rawURL, Callbacks{
		OnOpen:    func() { c.handleOpen(gen) },
		OnMessage: func(data []byte) { c.handleMessage(gen, data) },
		OnClose:   func(code int, reason string) { c.handleClose(gen, code, reason) },
	})

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = conn.Close(CloseNormal, "superseded")
		return
	}
	// The transport may already have reported the close.
	if c.closedGen != gen {
		c.conn = conn
	}
	c.mu.Unlock()
}

// Disconnect closes the connection with a normal closure and cancels any
// pending reconnect. Calling it while disconnected is harmless.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.cancelReconnectLocked()
	conn := c.conn
	c.conn = nil
	c.gen++
	c.state.Connected = false
	c.state.Typing = false
	c.state.ReconnectAttempts = 0
	c.state.Backoff = c.backoff.Floor
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(CloseNormal, "client disconnect"); err != nil {
			log.Printf("[chat] close failed: %v", err)
		}
	}
	c.notify()
}

// SendMessage transmits text as a user turn. Blank input is ignored. When
// the connection is down the error banner is set, a connect is started and
// ErrNotConnected is returned.
func (c *Client) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if !c.state.Connected || c.conn == nil {
		c.state.Error = MsgNotConnected
		// A scheduled reconnect is already the next attempt.
		pending := c.reconnectTimer != nil
		c.mu.Unlock()
		c.notify()
		if !pending {
			c.Connect()
		}
		return ErrNotConnected
	}

	req := chat.SendRequest{Message: text, Mode: c.opts.Mode}
	if c.state.SessionID != "" {
		id := c.state.SessionID
		req.ConversationID = &id
	}
	c.state.Messages = append(c.state.Messages, chat.Message{
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: c.now(),
	})
	c.state.Typing = true
	c.state.Error = ""
	conn := c.conn
	gen := c.gen
	c.mu.Unlock()
	c.notify()

	payload, err := json.Marshal(req)
	if err == nil {
		err = conn.Send(payload)
	}
	if err != nil {
		log.Printf("[chat] send failed: %v", err)
		c.mu.Lock()
		if c.gen == gen {
			c.state.removeLastUserMessage()
			c.state.Typing = false
			c.state.Error = MsgSendFailed
		}
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("send message: %w", err)
	}

	c.opts.Metrics.MessageSent()
	return nil
}

// NewSession clears the transcript so the next message starts a new
// conversation.
func (c *Client) NewSession() {
	c.mu.Lock()
	c.cancelToolTimersLocked()
	c.state.clearTranscript()
	c.state.Error = ""
	c.mu.Unlock()

	c.notify()
	c.publishSession("")
}

// DismissError clears the error banner. The connection is not affected.
func (c *Client) DismissError() {
	c.mu.Lock()
	c.state.Error = ""
	c.mu.Unlock()
	c.notify()
}

func (c *Client) handleOpen(gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.cancelReconnectLocked()
	c.state.Connected = true
	c.state.Error = ""
	c.state.ReconnectAttempts = 0
	c.state.Backoff = c.backoff.Floor
	c.mu.Unlock()

	log.Printf("[chat] connected mode=%s", c.opts.Mode)
	c.opts.Metrics.ConnectionOpened()
	c.notify()
}

func (c *Client) handleMessage(gen uint64, data []byte) {
	ev, err := chat.DecodeEvent(data)
	if err != nil {
		log.Printf("[chat] dropping inbound frame: %v", err)
		c.opts.Metrics.MalformedFrame()
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	next, effects := Reduce(c.state, ev, c.now())
	c.state = next

	var changed []string
	for _, eff := range effects {
		switch eff.Kind {
		case EffectSessionChanged:
			changed = append(changed, eff.SessionID)
		case EffectScheduleToolRemoval:
			c.scheduleToolRemovalLocked(eff.ToolID)
		case EffectCancelToolRemovals:
			c.cancelToolTimersLocked()
		}
	}
	c.mu.Unlock()

	c.opts.Metrics.EventReceived(string(ev.Type))
	if ev.Type == chat.EventFatalError {
		log.Printf("[chat] server reported error: %s", ev.Message)
	}
	c.notify()
	for _, id := range changed {
		c.publishSession(id)
	}
}

func (c *Client) handleClose(gen uint64, code int, reason string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.closedGen = gen
	c.state.Connected = false
	c.state.Typing = false

	switch {
	case code == CloseNormal:
		log.Printf("[chat] connection closed")
	case code == CloseUnauthorized:
		log.Printf("[chat] connection rejected: %s", reason)
		c.state.Error = MsgSessionExpired
	case c.state.ReconnectAttempts >= c.backoff.MaxAttempts:
		log.Printf("[chat] giving up after %d reconnect attempts", c.state.ReconnectAttempts)
		c.state.Error = MsgReconnectFailed
		c.opts.Metrics.ReconnectGaveUp()
	default:
		delay := c.state.Backoff
		c.state.ReconnectAttempts++
		c.state.Backoff = c.backoff.Next(delay)
		log.Printf("[chat] connection lost code=%d reason=%q, reconnect %d/%d in %s",
			code, reason, c.state.ReconnectAttempts, c.backoff.MaxAttempts, delay)
		c.scheduleReconnectLocked(delay)
		c.opts.Metrics.ReconnectScheduled()
	}
	c.mu.Unlock()

	c.opts.Metrics.ConnectionClosed(code)
	c.notify()
}

func (c *Client) scheduleReconnectLocked(delay time.Duration) {
	c.cancelReconnectLocked()
	c.reconnectSeq++
	seq := c.reconnectSeq
	c.reconnectTimer = c.scheduler.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.reconnectSeq != seq || c.reconnectTimer == nil {
			c.mu.Unlock()
			return
		}
		c.reconnectTimer = nil
		c.mu.Unlock()
		c.open()
	})
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectSeq++
}

func (c *Client) scheduleToolRemovalLocked(id string) {
	if prev, ok := c.toolTimers[id]; ok {
		prev.timer.Stop()
	}
	c.timerSeq++
	seq := c.timerSeq
	timer := c.scheduler.AfterFunc(c.retention, func() { c.removeTool(id, seq) })
	c.toolTimers[id] = toolTimer{timer: timer, seq: seq}
}

func (c *Client) cancelToolTimersLocked() {
	for id, tt := range c.toolTimers {
		tt.timer.Stop()
		delete(c.toolTimers, id)
	}
}

func (c *Client) removeTool(id string, seq uint64) {
	c.mu.Lock()
	tt, ok := c.toolTimers[id]
	if !ok || tt.seq != seq {
		c.mu.Unlock()
		return
	}
	delete(c.toolTimers, id)
	if rec, ok := c.state.Tools[id]; ok && rec.Finished() {
		delete(c.state.Tools, id)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Client) notify() {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(c.Snapshot())
}

func (c *Client) publishSession(id string) {
	if c.opts.OnSessionChange != nil {
		c.opts.OnSessionChange(c.opts.Mode, id)
	}
}
