package client

import (
	"strings"
	"time"

	"github.com/mentorcrm/chat/internal/model/chat"
)

// EffectKind names a side effect requested by Reduce.
type EffectKind int

const (
	// EffectSessionChanged asks the owner to publish the new active session,
	// the equivalent of rewriting the visible URL without navigating.
	EffectSessionChanged EffectKind = iota + 1
	// EffectScheduleToolRemoval asks for ToolID to be dropped after the
	// retention delay.
	EffectScheduleToolRemoval
	// EffectCancelToolRemovals cancels every pending removal timer.
	EffectCancelToolRemovals
)

// Effect is a side effect the reducer cannot perform itself.
type Effect struct {
	Kind      EffectKind
	SessionID string
	ToolID    string
}

// Reduce applies one inbound event to s and returns the new state together
// with the effects the caller must carry out. s is never modified.
func Reduce(s State, ev chat.Event, now time.Time) (State, []Effect) {
	next := s.Clone()
	var effects []Effect

	switch ev.Type {
	case chat.EventSessionStarted:
		next.SessionID = ev.ConversationID
		next.Typing = true
		next.Error = ""
		effects = append(effects, Effect{Kind: EffectSessionChanged, SessionID: ev.ConversationID})

	case chat.EventTextDelta:
		if next.streamingOpen() {
			last := len(next.Messages) - 1
			next.Messages[last].Content += ev.Delta
		} else {
			next.Messages = append(next.Messages, chat.Message{
				Role:      chat.RoleAssistant,
				Content:   ev.Delta,
				Timestamp: now,
			})
			next.Typing = true
		}

	case chat.EventReasoningDelta:
		next.Insight += ev.Delta

	case chat.EventToolStarted:
		if ev.ID == "" {
			return s, nil
		}
		next.Tools[ev.ID] = chat.ToolInvocation{
			ID:        ev.ID,
			Tool:      ev.Tool,
			Status:    chat.ToolRunning,
			Input:     ev.Input,
			StartedAt: now,
		}

	case chat.EventToolFinished:
		rec, ok := next.Tools[ev.ID]
		if !ok {
			return s, nil
		}
		rec.Status = chat.ToolDone
		if ev.Error {
			rec.Status = chat.ToolError
		}
		rec.Result = ev.Result
		rec.EndedAt = now
		next.Tools[ev.ID] = rec
		effects = append(effects, Effect{Kind: EffectScheduleToolRemoval, ToolID: ev.ID})

	case chat.EventTurnComplete:
		next.Typing = false
		next.Insight = ""
		next.Tools = make(map[string]chat.ToolInvocation)
		effects = append(effects, Effect{Kind: EffectCancelToolRemovals})

	case chat.EventFatalError:
		next.Typing = false
		next.Error = strings.TrimSpace(ev.Message)
		if next.Error == "" {
			next.Error = MsgGeneric
		}
		next.Tools = make(map[string]chat.ToolInvocation)
		next.removeLastUserMessage()
		effects = append(effects, Effect{Kind: EffectCancelToolRemovals})

	default:
		return s, nil
	}

	return next, effects
}
