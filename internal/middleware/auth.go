package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mentorcrm/chat/pkg/utils"
)

// Tokens validates bearer tokens. An empty set accepts any non-empty token,
// which is what local development wants.
type Tokens struct {
	allowed []string
}

// NewTokens builds a validator for the given tokens.
func NewTokens(allowed []string) *Tokens {
	return &Tokens{allowed: append([]string(nil), allowed...)}
}

// Valid reports whether token may access the API.
func (t *Tokens) Valid(token string) bool {
	if token == "" {
		return false
	}
	if len(t.allowed) == 0 {
		return true
	}
	for _, a := range t.allowed {
		if subtle.ConstantTimeCompare([]byte(a), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

// Bearer checks the Authorization header and answers 401 on failure.
func (t *Tokens) Bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !t.Valid(strings.TrimSpace(token)) {
			utils.RespondError(w, http.StatusUnauthorized, "Credenciais inválidas.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
