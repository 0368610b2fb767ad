// Package ws is the gorilla/websocket implementation of the chat client's
// streaming transport.
package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mentorcrm/chat/internal/client"
)

var ErrNotOpen = errors.New("ws: connection not open")

// Options tunes the websocket connection.
type Options struct {
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // extended by every pong or message
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultOptions returns the timeouts used in production.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     54 * time.Second,
	}
}

// Transport dials websocket connections.
type Transport struct {
	dialer *websocket.Dialer
	opts   Options
}

// New returns a Transport. Zero fields in opts take their defaults.
func New(opts Options) *Transport {
	def := DefaultOptions()
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = def.HandshakeTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = def.PingInterval
	}
	return &Transport{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		opts: opts,
	}
}

// Open starts dialing rawURL in the background and returns immediately.
func (t *Transport) Open(rawURL string, cb client.Callbacks) client.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{opts: t.opts, cancel: cancel}
	go c.run(ctx, t.dialer, rawURL, cb)
	return c
}

type conn struct {
	opts   Options
	cancel context.CancelFunc

	mu          sync.Mutex
	ws          *websocket.Conn
	closed      bool
	closeCode   int
	closeReason string
}

func (c *conn) run(ctx context.Context, dialer *websocket.Dialer, rawURL string, cb client.Callbacks) {
	ws, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if code, reason, ok := c.localClose(); ok {
			cb.OnClose(code, reason)
			return
		}
		code := client.CloseAbnormal
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			code = client.CloseUnauthorized
		}
		log.Printf("[ws] dial failed: %v", err)
		cb.OnClose(code, err.Error())
		return
	}

	c.mu.Lock()
	if c.closed {
		code, reason := c.closeCode, c.closeReason
		c.mu.Unlock()
		ws.Close()
		cb.OnClose(code, reason)
		return
	}
	c.ws = ws
	c.mu.Unlock()

	ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		return nil
	})

	cb.OnOpen()
	go c.pingLoop(ctx, ws)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.cancel()
			ws.Close()
			if code, reason, ok := c.localClose(); ok {
				cb.OnClose(code, reason)
				return
			}
			code, reason := closeStatus(err)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, client.CloseUnauthorized) {
				log.Printf("[ws] read error: %v", err)
			}
			cb.OnClose(code, reason)
			return
		}
		ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		cb.OnMessage(data)
	}
}

func (c *conn) localClose() (int, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason, c.closed
}

// closeStatus maps a read error to the close code reported to the client.
func closeStatus(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return client.CloseAbnormal, err.Error()
}

// pingLoop sends keepalive pings until the connection ends.
func (c *conn) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil || c.closed {
		return ErrNotOpen
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame with code and tears the connection down. A
// dial still in progress is abandoned.
func (c *conn) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	ws := c.ws
	c.mu.Unlock()

	c.cancel()
	if ws == nil {
		return nil
	}

	deadline := time.Now().Add(c.opts.WriteTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	err := ws.WriteControl(websocket.CloseMessage, msg, deadline)
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	ws.Close()
	return err
}
