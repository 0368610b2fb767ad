package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericMessage is shown when the server gives no usable detail.
const GenericMessage = "Ocorreu um erro inesperado. Tente novamente."

var ErrUnauthenticated = errors.New("api: no bearer token available")

// Error is a non-2xx response from the REST backend.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// UserMessage maps a REST failure to the text shown in the error banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail
	}
	return GenericMessage
}

// decodeError reads the server's error body. Both {"detail": ...} and
// {"error": ...} shapes are accepted.
func decodeError(status int, body []byte) *Error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	e := &Error{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil {
		e.Detail = detail
	} else if payload.Error != "" {
		e.Detail = payload.Error
	}
	return e
}
