package application

import "time"

// Clock dipakai service untuk timestamp request, report dan task audit.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function, mostly a fixed time in tests.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
