package chat

import (
	"encoding/json"
	"time"
)

// ToolStatus is the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolRunning ToolStatus = "running"
	ToolDone    ToolStatus = "done"
	ToolError   ToolStatus = "error"
)

// ToolInvocation tracks one server-side tool call, keyed by its invocation id.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	Status    ToolStatus      `json:"status"`
	Input     json.RawMessage `json:"input,omitempty"`
	Result    string          `json:"result,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

// Finished reports whether the invocation has left the running state.
func (t ToolInvocation) Finished() bool {
	return t.Status == ToolDone || t.Status == ToolError
}
