package timezone

import "time"

// Clock supplies the current instant. Conversions anchored to "the next occurrence of a weekday" read it
// instead of the wall clock so results stay reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant in UTC.
func (c FixedClock) Now() time.Time {
	return c.At.UTC()
}
