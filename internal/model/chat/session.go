package chat

import "time"

// Mode selects which server-side conversation flow a session belongs to.
type Mode string

const (
	ModeChat        Mode = "chat"
	ModeDiagnostico Mode = "diagnostico"
)

// Valid reports whether m is one of the known conversation flows.
func (m Mode) Valid() bool {
	return m == ModeChat || m == ModeDiagnostico
}

// Session summarises a stored conversation as listed by the REST API.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
