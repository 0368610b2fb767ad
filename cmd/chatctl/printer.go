package main

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/mentorcrm/chat/internal/client"
	"github.com/mentorcrm/chat/internal/model/chat"
	"github.com/mentorcrm/chat/internal/render"
)

// printer turns successive client snapshots into incremental terminal
// output. Streaming assistant text is written raw as it arrives; finished
// messages that were never streamed go through the markdown renderer.
type printer struct {
	out io.Writer
	r   *render.Renderer

	mu      sync.Mutex
	printed int // messages fully written
	partial int // bytes written of Messages[printed] while streaming
	tools   map[string]chat.ToolStatus
	lastErr string
}

func newPrinter(out io.Writer, r *render.Renderer) *printer {
	return &printer{out: out, r: r, tools: make(map[string]chat.ToolStatus)}
}

func (p *printer) update(s client.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(s.Messages) < p.printed {
		// transcript replaced or rolled back
		p.printed = len(s.Messages)
		p.endStream()
	}

	p.printTools(s.Tools)

	for p.printed < len(s.Messages) {
		i := p.printed
		m := s.Messages[i]
		streaming := m.Role == chat.RoleAssistant && s.Typing && i == len(s.Messages)-1

		switch {
		case streaming:
			if p.partial <= len(m.Content) {
				fmt.Fprint(p.out, m.Content[p.partial:])
				p.partial = len(m.Content)
			}
			return
		case p.partial > 0:
			if p.partial <= len(m.Content) {
				fmt.Fprint(p.out, m.Content[p.partial:])
			}
			p.endStream()
		default:
			fmt.Fprintln(p.out, p.r.Message(m))
		}
		p.printed++
	}
	p.endStream()

	if s.Error != "" && s.Error != p.lastErr {
		fmt.Fprintln(p.out, p.r.Banner(s.Error))
	}
	p.lastErr = s.Error
}

func (p *printer) endStream() {
	if p.partial > 0 {
		fmt.Fprintln(p.out)
		p.partial = 0
	}
}

// printTools writes a line whenever a tool appears or changes status.
func (p *printer) printTools(tools map[string]chat.ToolInvocation) {
	list := make([]chat.ToolInvocation, 0, len(tools))
	for _, t := range tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartedAt.Before(list[j].StartedAt)
	})

	seen := make(map[string]chat.ToolStatus, len(list))
	for _, t := range list {
		seen[t.ID] = t.Status
		if p.tools[t.ID] == t.Status {
			continue
		}
		p.endStream()
		fmt.Fprintln(p.out, p.r.Tool(t))
	}
	p.tools = seen
}

// println writes a line outside the snapshot flow.
func (p *printer) println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endStream()
	fmt.Fprintln(p.out, a...)
}

// reset forgets everything printed, for when the transcript is redrawn.
func (p *printer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endStream()
	p.printed = 0
	p.tools = make(map[string]chat.ToolStatus)
	p.lastErr = ""
}
