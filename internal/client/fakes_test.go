package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mentorcrm/chat/internal/model/chat"
)

type staticTokens string

func (s staticTokens) Token() (string, error) { return string(s), nil }

type fakeConn struct {
	url       string
	cb        Callbacks
	sent      [][]byte
	closed    bool
	closeCode int
	sendErr   error
}

func (c *fakeConn) Send(payload []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) open() { c.cb.OnOpen() }

func (c *fakeConn) recv(frame string) { c.cb.OnMessage([]byte(frame)) }

func (c *fakeConn) drop(code int) { c.cb.OnClose(code, "test") }

type fakeTransport struct {
	conns []*fakeConn
	// failFast, when set, reports a close with that code before Open
	// returns, like a dial that fails immediately.
	failFast int
}

func (t *fakeTransport) Open(rawURL string, cb Callbacks) Conn {
	conn := &fakeConn{url: rawURL, cb: cb}
	t.conns = append(t.conns, conn)
	if t.failFast != 0 {
		done := make(chan struct{})
		go func() {
			defer close(done)
			cb.OnClose(t.failFast, "dial failed")
		}()
		<-done
	}
	return conn
}

func (t *fakeTransport) last(tb testing.TB) *fakeConn {
	tb.Helper()
	if len(t.conns) == 0 {
		tb.Fatal("no connection opened")
	}
	return t.conns[len(t.conns)-1]
}

// manualClock is a Scheduler whose time only moves when Advance is called.
type manualClock struct {
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (m *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{at: m.now + d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualClock) nextPending() *manualTimer {
	var next *manualTimer
	for _, t := range m.timers {
		if t.stopped || t.fired {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	return next
}

// Advance moves time forward by d, firing due timers in order.
func (m *manualClock) Advance(d time.Duration) {
	target := m.now + d
	for {
		next := m.nextPending()
		if next == nil || next.at > target {
			break
		}
		m.now = next.at
		next.fired = true
		next.f()
	}
	m.now = target
}

func (m *manualClock) pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeSessions struct {
	cached   []chat.Session
	sessions []chat.Session
	messages map[string][]chat.Message
	deleted  []string
	err      error
}

func (f *fakeSessions) ListSessions(_ context.Context, _ chat.Mode, emit func([]chat.Session)) ([]chat.Session, error) {
	if f.cached != nil && emit != nil {
		emit(f.cached)
	}
	if f.err != nil {
		return nil, f.err
	}
	if emit != nil {
		emit(f.sessions)
	}
	return f.sessions, nil
}

func (f *fakeSessions) LoadMessages(_ context.Context, _ chat.Mode, id string) ([]chat.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	msgs, ok := f.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msgs, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, _ chat.Mode, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type harness struct {
	client    *Client
	transport *fakeTransport
	clock     *manualClock
	sessions  *fakeSessions
	published []string
}

func newHarness(t *testing.T, tokens TokenSource) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		clock:     &manualClock{},
		sessions:  &fakeSessions{messages: map[string][]chat.Message{}},
	}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := New(Options{
		Origin:    "https://api.example.com",
		Mode:      chat.ModeChat,
		Tokens:    tokens,
		Transport: h.transport,
		Sessions:  h.sessions,
		Scheduler: h.clock,
		Now:       func() time.Time { return base.Add(h.clock.now) },
		OnSessionChange: func(_ chat.Mode, id string) {
			h.published = append(h.published, id)
		},
	})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	h.client = c
	return h
}

// connected returns a harness whose first connection is open.
func connected(t *testing.T) (*harness, *fakeConn) {
	t.Helper()
	h := newHarness(t, staticTokens("tok"))
	h.client.Connect()
	conn := h.transport.last(t)
	conn.open()
	if !h.client.Snapshot().Connected {
		t.Fatal("expected connected after open")
	}
	return h, conn
}
