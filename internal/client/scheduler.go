package client

import "time"

// Timer is a cancellable delayed callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Production code uses wall-clock timers;
// tests drive a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock returns the Scheduler backed by time.AfterFunc.
func WallClock() Scheduler { return wallClock{} }
