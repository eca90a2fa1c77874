package scheduler

import "time"

// Timer is an armed callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall-clock time and timer arming so scheduler behavior is
// testable without real waiting.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
