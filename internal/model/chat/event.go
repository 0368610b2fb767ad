package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the `type` discriminator of frames sent by the agent service.
type EventType string

const (
	EventSessionStarted EventType = "conversation_started"
	EventTextDelta      EventType = "text_delta"
	EventReasoningDelta EventType = "reasoning_delta"
	EventToolStarted    EventType = "tool_start"
	EventToolFinished   EventType = "tool_end"
	EventTurnComplete   EventType = "done"
	EventFatalError     EventType = "error"
)

var (
	ErrMissingType  = errors.New("event type missing")
	ErrUnknownEvent = errors.New("unknown event type")
)

// Event is a decoded inbound frame. Only the fields relevant to Type are set.
type Event struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	ID             string          `json:"id,omitempty"`
	Tool           string          `json:"tool,omitempty"`
	Input          json.RawMessage `json:"input,omitempty"`
	Error          bool            `json:"error,omitempty"`
	Result         string          `json:"result,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// DecodeEvent parses one inbound frame. Frames that are not JSON objects or
// carry an unknown type are rejected.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	switch ev.Type {
	case "":
		return Event{}, ErrMissingType
	case EventSessionStarted, EventTextDelta, EventReasoningDelta,
		EventToolStarted, EventToolFinished, EventTurnComplete, EventFatalError:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}

// SendRequest is the outbound frame carrying a user message.
type SendRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
	Mode           Mode    `json:"mode"`
}
