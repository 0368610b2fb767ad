package client

import (
	"maps"
	"slices"
	"time"

	"github.com/mentorcrm/chat/internal/model/chat"
)

// State is everything a chat view renders. Values handed out by the Client
// are deep copies and may be kept by the caller.
type State struct {
	Mode      chat.Mode
	SessionID string
	Messages  []chat.Message
	Tools     map[string]chat.ToolInvocation
	Insight   string
	Sessions  []chat.Session

	Connected         bool
	Typing            bool
	Error             string
	ReconnectAttempts int
	Backoff           time.Duration
}

// NewState returns the idle state for mode with the backoff at its floor.
func NewState(mode chat.Mode, floor time.Duration) State {
	return State{
		Mode:    mode,
		Tools:   make(map[string]chat.ToolInvocation),
		Backoff: floor,
	}
}

// Clone returns a copy that shares no mutable storage with s.
func (s State) Clone() State {
	out := s
	out.Messages = slices.Clone(s.Messages)
	out.Sessions = slices.Clone(s.Sessions)
	if s.Tools == nil {
		out.Tools = make(map[string]chat.ToolInvocation)
	} else {
		out.Tools = maps.Clone(s.Tools)
	}
	return out
}

// LastMessage returns the most recent transcript entry, if any.
func (s State) LastMessage() (chat.Message, bool) {
	if len(s.Messages) == 0 {
		return chat.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// streamingOpen reports whether the last message may still receive deltas.
func (s State) streamingOpen() bool {
	last, ok := s.LastMessage()
	return ok && s.Typing && last.Role == chat.RoleAssistant
}

// removeLastUserMessage drops the most recently appended user message.
func (s *State) removeLastUserMessage() {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == chat.RoleUser {
			s.Messages = slices.Delete(s.Messages, i, i+1)
			return
		}
	}
}

// clearTranscript resets everything tied to the active conversation.
func (s *State) clearTranscript() {
	s.SessionID = ""
	s.Messages = nil
	s.Tools = make(map[string]chat.ToolInvocation)
	s.Insight = ""
	s.Typing = false
}
