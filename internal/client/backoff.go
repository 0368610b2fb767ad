package client

import "time"

const (
	defaultBackoffFloor   = time.Second
	defaultBackoffCeiling = 15 * time.Second
	defaultMaxAttempts    = 5
	defaultToolRetention  = 5 * time.Second
)

// Backoff is the reconnect policy: the delay starts at Floor, doubles after
// every scheduled attempt up to Ceiling, and gives up after MaxAttempts.
type Backoff struct {
	Floor       time.Duration
	Ceiling     time.Duration
	MaxAttempts int
}

// DefaultBackoff returns the 1s..15s, five attempt policy.
func DefaultBackoff() Backoff {
	return Backoff{
		Floor:       defaultBackoffFloor,
		Ceiling:     defaultBackoffCeiling,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Next returns the delay that follows cur.
func (b Backoff) Next(cur time.Duration) time.Duration {
	next := cur * 2
	if next > b.Ceiling {
		next = b.Ceiling
	}
	if next < b.Floor {
		next = b.Floor
	}
	return next
}

func (b Backoff) withDefaults() Backoff {
	def := DefaultBackoff()
	if b.Floor <= 0 {
		b.Floor = def.Floor
	}
	if b.Ceiling < b.Floor {
		b.Ceiling = def.Ceiling
		if b.Ceiling < b.Floor {
			b.Ceiling = b.Floor
		}
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = def.MaxAttempts
	}
	return b
}
