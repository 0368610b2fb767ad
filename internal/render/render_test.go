package render

import (
	"strings"
	"testing"
	"time"

	"github.com/mentorcrm/chat/internal/model/chat"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-30 * time.Second), "agora"},
		{now.Add(-5 * time.Minute), "há 5 min"},
		{now.Add(-3 * time.Hour), "há 3 h"},
		{now.Add(-30 * time.Hour), "ontem"},
		{time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), "01/02/2025"},
	}
	for _, tc := range cases {
		if got := RelativeTime(tc.at, now); got != tc.want {
			t.Fatalf("RelativeTime(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestPlainRendering(t *testing.T) {
	r, err := New(60, true)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	out := r.Message(chat.Message{Role: chat.RoleAssistant, Content: "Olá **mundo**"})
	if !strings.Contains(out, "Olá") || !strings.Contains(out, "mundo") {
		t.Fatalf("markdown lost content: %q", out)
	}

	user := r.Message(chat.Message{Role: chat.RoleUser, Content: "oi", AttachmentURL: "https://img/x.png"})
	if !strings.Contains(user, "você › oi") || !strings.Contains(user, "anexo: https://img/x.png") {
		t.Fatalf("unexpected user line %q", user)
	}
}

func TestToolLines(t *testing.T) {
	r, err := New(60, true)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := r.Tool(chat.ToolInvocation{Tool: "lookup", Status: chat.ToolRunning}); got != "… lookup" {
		t.Fatalf("unexpected running line %q", got)
	}
	done := chat.ToolInvocation{Tool: "lookup", Status: chat.ToolDone, StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}
	if got := r.Tool(done); got != "✓ lookup (1.5s)" {
		t.Fatalf("unexpected done line %q", got)
	}
	failed := chat.ToolInvocation{Tool: "lookup", Status: chat.ToolError, Result: "timeout"}
	if got := r.Tool(failed); got != "✗ lookup: timeout" {
		t.Fatalf("unexpected error line %q", got)
	}
}

func TestSessionRow(t *testing.T) {
	r, err := New(60, true)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	row := r.Session(chat.Session{ID: "s1", MessageCount: 4, UpdatedAt: now.Add(-10 * time.Minute)}, now)
	if row != "s1  (sem título)  4 mensagens · há 10 min" {
		t.Fatalf("unexpected row %q", row)
	}
}
