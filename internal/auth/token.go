// Package auth provides bearer token sources for the chat client. Obtaining
// the token (login) happens elsewhere; these sources only read it.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNoToken = errors.New("auth: no token configured")

// Static always returns the same token.
type Static string

func (s Static) Token() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(string(s)), nil
}

// Env reads the token from an environment variable on every call.
type Env string

func (e Env) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(string(e)))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, string(e))
	}
	return token, nil
}

// File reads the token from a file on every call, so a token refreshed by
// an external login flow is picked up on the next reconnect.
type File string

func (f File) Token() (string, error) {
	data, err := os.ReadFile(string(f))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoToken, string(f))
	}
	if err != nil {
		return "", fmt.Errorf("auth: read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, string(f))
	}
	return token, nil
}

// Source is anything that can produce a bearer token.
type Source interface {
	Token() (string, error)
}

// First returns the token of the first source that has one.
type First []Source

func (f First) Token() (string, error) {
	var errs []error
	for _, src := range f {
		token, err := src.Token()
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoToken
	}
	return "", errors.Join(errs...)
}
