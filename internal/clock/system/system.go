// Package system provides the wall clock used for crawl timestamps.
package system

import "time"

// Clock reports the current time in UTC so stored timestamps compare equal
// regardless of the host time zone.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
