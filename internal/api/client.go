// Package api is the REST collaborator of the chat client: session history
// and the cached list resources of the platform.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mentorcrm/chat/internal/cache"
	"github.com/mentorcrm/chat/internal/model/chat"
)

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the REST backend rooted at an API origin.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	cache  *cache.Cache
}

// New builds a client for origin. cache may be nil to disable caching.
func New(origin string, tokens TokenSource, c *cache.Cache, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api origin %q: %w", origin, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api origin %q: scheme must be http or https", origin)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: base, http: httpClient, tokens: tokens, cache: c}, nil
}

func sessionsKey(mode chat.Mode) string {
	return "sessions:" + string(mode)
}

// ListSessions returns the sessions of mode. A fresh cached list is passed
// to emit before the network result.
func (c *Client) ListSessions(ctx context.Context, mode chat.Mode, emit func([]chat.Session)) ([]chat.Session, error) {
	path := fmt.Sprintf("/api/%s/sessions", mode)
	return cache.Revalidate(ctx, c.cache, sessionsKey(mode), func(ctx context.Context) ([]chat.Session, error) {
		var sessions []chat.Session
		if err := c.do(ctx, http.MethodGet, path, &sessions); err != nil {
			return nil, err
		}
		return sessions, nil
	}, emit)
}

// LoadMessages returns every message of a session in server order.
func (c *Client) LoadMessages(ctx context.Context, mode chat.Mode, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	path := fmt.Sprintf("/api/%s/sessions/%s/messages", mode, url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteSession removes a session and drops the cached list for its mode.
func (c *Client) DeleteSession(ctx context.Context, mode chat.Mode, sessionID string) error {
	path := fmt.Sprintf("/api/%s/sessions/%s", mode, url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Invalidate(sessionsKey(mode)); err != nil {
			return fmt.Errorf("invalidate session cache: %w", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if token == "" {
		return ErrUnauthenticated
	}

	target := *c.base
	target.Path = c.base.Path + path
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
