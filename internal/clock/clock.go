// Package clock provides an injectable source of the current UTC time.
package clock

import "time"

// Source returns the current time. Implementations must return a value
// with a UTC timezone attached.
type Source func() time.Time

// Now is the default Source: the system clock, normalized to UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Source that always returns t, normalized to UTC.
// Useful for deterministic tests that need one shared timestamp across
// a call.
func Fixed(t time.Time) Source {
	fixed := t.UTC()
	return func() time.Time {
		return fixed
	}
}
