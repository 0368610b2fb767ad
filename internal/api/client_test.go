package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentorcrm/chat/internal/auth"
	"github.com/mentorcrm/chat/internal/cache"
	"github.com/mentorcrm/chat/internal/model/chat"
)

type backend struct {
	mu       sync.Mutex
	sessions []chat.Session
	messages map[string][]chat.Message
	lists    int
	auths    []string
}

func (b *backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			b.mu.Lock()
			b.auths = append(b.auths, req.Header.Get("Authorization"))
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/{mode}/sessions", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lists++
		json.NewEncoder(w).Encode(b.sessions)
	})
	r.Get("/api/{mode}/sessions/{id}/messages", func(w http.ResponseWriter, req *http.Request) {
		msgs, ok := b.messages[chi.URLParam(req, "id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Sessão não encontrada"}`))
			return
		}
		json.NewEncoder(w).Encode(msgs)
	})
	r.Delete("/api/{mode}/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/admin/mentors", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"id":"m1","name":"Ana"},{"id":"m2","name":"Bruno"}]`))
	})
	r.Get("/api/assessments", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`oops`))
	})
	return r
}

func newTestClient(t *testing.T, b *backend, c *cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(b.router())
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, auth.Static("tok"), c, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	return client
}

func TestListSessionsServesCacheThenNetwork(t *testing.T) {
	b := &backend{sessions: []chat.Session{{ID: "s1", Title: "Primeira", MessageCount: 3}}}
	c := cache.New(cache.NewMemoryStore(), time.Minute)
	client := newTestClient(t, b, c)
	ctx := context.Background()

	if _, err := client.ListSessions(ctx, chat.ModeChat, nil); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}

	b.mu.Lock()
	b.sessions = append(b.sessions, chat.Session{ID: "s2"})
	b.mu.Unlock()
	var emitted [][]chat.Session
	got, err := client.ListSessions(ctx, chat.ModeChat, func(s []chat.Session) { emitted = append(emitted, s) })
	if err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected fresh list of 2, got %d", len(got))
	}
	if len(emitted) != 2 || len(emitted[0]) != 1 || len(emitted[1]) != 2 {
		t.Fatalf("expected cached then fresh, got %v", emitted)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.auths[0] != "Bearer tok" {
		t.Fatalf("unexpected auth header %q", b.auths[0])
	}
}

func TestCacheIsKeyedPerMode(t *testing.T) {
	b := &backend{sessions: []chat.Session{{ID: "s1"}}}
	c := cache.New(cache.NewMemoryStore(), time.Minute)
	client := newTestClient(t, b, c)
	ctx := context.Background()

	if _, err := client.ListSessions(ctx, chat.ModeChat, nil); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}

	emits := 0
	if _, err := client.ListSessions(ctx, chat.ModeDiagnostico, func([]chat.Session) { emits++ }); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if emits != 1 {
		t.Fatalf("diagnostico must not see chat's cached list, got %d emissions", emits)
	}
}

func TestLoadMessagesNotFoundDetail(t *testing.T) {
	b := &backend{messages: map[string][]chat.Message{
		"s1": {{Role: chat.RoleUser, Content: "a"}, {Role: chat.RoleAssistant, Content: "b"}},
	}}
	client := newTestClient(t, b, nil)
	ctx := context.Background()

	msgs, err := client.LoadMessages(ctx, chat.ModeChat, "s1")
	if err != nil {
		t.Fatalf("LoadMessages err: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "b" {
		t.Fatalf("unexpected messages %+v", msgs)
	}

	_, err = client.LoadMessages(ctx, chat.ModeChat, "missing")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}
	if got := UserMessage(err); got != "Sessão não encontrada" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestDeleteSessionInvalidatesCache(t *testing.T) {
	b := &backend{sessions: []chat.Session{{ID: "s1"}}}
	c := cache.New(cache.NewMemoryStore(), time.Minute)
	client := newTestClient(t, b, c)
	ctx := context.Background()

	if _, err := client.ListSessions(ctx, chat.ModeChat, nil); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if err := client.DeleteSession(ctx, chat.ModeChat, "s1"); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}

	var cached []chat.Session
	if ok, _ := c.Load("sessions:chat", &cached); ok {
		t.Fatal("expected cache entry invalidated")
	}
}

func TestListResource(t *testing.T) {
	client := newTestClient(t, &backend{}, cache.New(cache.NewMemoryStore(), time.Minute))
	ctx := context.Background()

	items, err := client.List(ctx, ResourceMentors, nil)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 mentors, got %d", len(items))
	}

	_, err = client.List(ctx, ResourceAssessments, nil)
	if UserMessage(err) != GenericMessage {
		t.Fatalf("expected generic message, got %q (%v)", UserMessage(err), err)
	}

	if _, err := client.List(ctx, Resource("payroll"), nil); err == nil {
		t.Fatal("expected error for unknown resource")
	}
}

func TestMissingTokenSkipsRequest(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.router())
	defer srv.Close()

	client, err := New(srv.URL, auth.Static(""), nil, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if _, err := client.LoadMessages(context.Background(), chat.ModeChat, "s1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auths) != 0 {
		t.Fatal("no request may be sent without a token")
	}
}

func TestNewRejectsBadOrigin(t *testing.T) {
	if _, err := New("ws://example.com", auth.Static("t"), nil, nil); err == nil {
		t.Fatal("expected error for non-http origin")
	}
}

func TestDecodeErrorShapes(t *testing.T) {
	if e := decodeError(400, []byte(`{"error":"mode is required"}`)); e.Detail != "mode is required" {
		t.Fatalf("unexpected detail %q", e.Detail)
	}
	if e := decodeError(422, []byte(`{"detail":[{"loc":["body"]}]}`)); e.Detail != "" {
		t.Fatalf("structured detail must fall back, got %q", e.Detail)
	}
	if UserMessage(nil) != "" {
		t.Fatal("nil error has no message")
	}
}
