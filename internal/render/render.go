// Package render formats chat state for a terminal.
package render

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/mentorcrm/chat/internal/model/chat"
)

// Renderer turns messages, tool records and banners into terminal text.
type Renderer struct {
	md *glamour.TermRenderer

	user    lipgloss.Style
	banner  lipgloss.Style
	running lipgloss.Style
	done    lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
}

// New builds a renderer wrapping markdown at width columns. plain disables
// colour, for pipes and tests.
func New(width int, plain bool) (*Renderer, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if plain {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	r := &Renderer{md: md}
	if plain {
		return r, nil
	}
	r.user = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	r.banner = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Padding(0, 1)
	r.running = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	r.done = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	r.failed = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	r.muted = lipgloss.NewStyle().Faint(true)
	return r, nil
}

// Markdown renders assistant content. Content that fails to render is
// returned unchanged.
func (r *Renderer) Markdown(content string) string {
	out, err := r.md.Render(content)
	if err != nil {
		log.Printf("[render] markdown failed: %v", err)
		return content
	}
	return strings.Trim(out, "\n")
}

// Message renders one transcript entry.
func (r *Renderer) Message(m chat.Message) string {
	var b strings.Builder
	switch m.Role {
	case chat.RoleUser:
		b.WriteString(r.user.Render("você › "))
		b.WriteString(m.Content)
	default:
		b.WriteString(r.Markdown(m.Content))
	}
	if m.AttachmentURL != "" {
		b.WriteString("\n")
		b.WriteString(r.muted.Render("anexo: " + m.AttachmentURL))
	}
	return b.String()
}

// Tool renders the status line of a tool invocation.
func (r *Renderer) Tool(t chat.ToolInvocation) string {
	switch t.Status {
	case chat.ToolDone:
		line := "✓ " + t.Tool
		if d := t.EndedAt.Sub(t.StartedAt); d > 0 && !t.StartedAt.IsZero() {
			line += fmt.Sprintf(" (%s)", d.Round(10*time.Millisecond))
		}
		return r.done.Render(line)
	case chat.ToolError:
		line := "✗ " + t.Tool
		if t.Result != "" {
			line += ": " + t.Result
		}
		return r.failed.Render(line)
	default:
		return r.running.Render("… " + t.Tool)
	}
}

// Banner renders an error banner.
func (r *Renderer) Banner(msg string) string {
	return r.banner.Render("! " + msg)
}

// Session renders one row of the session list.
func (r *Renderer) Session(s chat.Session, now time.Time) string {
	title := s.Title
	if strings.TrimSpace(title) == "" {
		title = "(sem título)"
	}
	meta := fmt.Sprintf("%d mensagens · %s", s.MessageCount, RelativeTime(s.UpdatedAt, now))
	return fmt.Sprintf("%s  %s  %s", s.ID, title, r.muted.Render(meta))
}

// RelativeTime formats t relative to now the way the session list shows it.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "agora"
	case d < time.Hour:
		return fmt.Sprintf("há %d min", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("há %d h", int(d.Hours()))
	case d < 48*time.Hour:
		return "ontem"
	default:
		return t.In(now.Location()).Format("02/01/2006")
	}
}
