package client

import (
	"context"
	"slices"

	"github.com/mentorcrm/chat/internal/api"
	"github.com/mentorcrm/chat/internal/model/chat"
)

// SessionStore is the REST side of session history.
type SessionStore interface {
	ListSessions(ctx context.Context, mode chat.Mode, emit func([]chat.Session)) ([]chat.Session, error)
	LoadMessages(ctx context.Context, mode chat.Mode, sessionID string) ([]chat.Message, error)
	DeleteSession(ctx context.Context, mode chat.Mode, sessionID string) error
}

// ListSessions refreshes State.Sessions for the client's mode. A cached
// list is applied first when the store has one.
func (c *Client) ListSessions(ctx context.Context) ([]chat.Session, error) {
	if c.opts.Sessions == nil {
		return nil, ErrNoSessionStore
	}

	sessions, err := c.opts.Sessions.ListSessions(ctx, c.opts.Mode, func(list []chat.Session) {
		c.mu.Lock()
		c.state.Sessions = slices.Clone(list)
		c.mu.Unlock()
		c.notify()
	})
	if err != nil {
		c.setError(api.UserMessage(err))
		return nil, err
	}
	return sessions, nil
}

// LoadSession replaces the transcript with the stored messages of
// sessionID and makes it the active session.
func (c *Client) LoadSession(ctx context.Context, sessionID string) error {
	if c.opts.Sessions == nil {
		return ErrNoSessionStore
	}

	messages, err := c.opts.Sessions.LoadMessages(ctx, c.opts.Mode, sessionID)
	if err != nil {
		c.setError(api.UserMessage(err))
		return err
	}

	c.mu.Lock()
	c.cancelToolTimersLocked()
	c.state.clearTranscript()
	c.state.SessionID = sessionID
	c.state.Messages = slices.Clone(messages)
	c.state.Error = ""
	c.mu.Unlock()

	c.notify()
	c.publishSession(sessionID)
	return nil
}

// DeleteSession deletes sessionID on the server and drops it from the
// local list. Deleting the active session also clears the transcript.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if c.opts.Sessions == nil {
		return ErrNoSessionStore
	}

	if err := c.opts.Sessions.DeleteSession(ctx, c.opts.Mode, sessionID); err != nil {
		c.setError(api.UserMessage(err))
		return err
	}

	c.mu.Lock()
	c.state.Sessions = slices.DeleteFunc(c.state.Sessions, func(s chat.Session) bool {
		return s.ID == sessionID
	})
	active := c.state.SessionID == sessionID
	if active {
		c.cancelToolTimersLocked()
		c.state.clearTranscript()
	}
	c.mu.Unlock()

	c.notify()
	if active {
		c.publishSession("")
	}
	return nil
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.state.Error = msg
	c.mu.Unlock()
	c.notify()
}
