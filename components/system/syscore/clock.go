package syscore

import "time"

// Clock reads the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// LocalClock is a wrapper around the standard time package.
//
// Remarks:
//   - Returned time is in UTC, with the monotonic reading preserved.
type LocalClock struct{}

// Now returns the current local time in UTC.
func (LocalClock) Now() time.Time {
	return time.Now().UTC()
}

// FuncClock is a function type that implements the Clock interface.
type FuncClock func() time.Time

// Now calls the function itself to fulfill the Clock interface.
func (f FuncClock) Now() time.Time {
	return f()
}
