package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrBinaryContent marks a body that decoded to far fewer bytes than it
	// arrived with, which means it was not really text.
	ErrBinaryContent = errors.New("binary content served as text")
	// ErrRedirectBlocked is returned when a redirect target fails policy.
	ErrRedirectBlocked = errors.New("redirect target not crawlable")
	// ErrNonCanonical marks a claimed URL that is invalid or not in
	// canonical form. Its row is deleted.
	ErrNonCanonical = errors.New("url not canonical")
	// ErrSeedRejected is returned for seeds outside the crawled protocol or
	// blocked by policy.
	ErrSeedRejected = errors.New("seed rejected")
)

// StatusError is a completed fetch whose Gemini status is neither input,
// success nor redirect.
type StatusError struct {
	Status int
	Meta   string
}

func (e *StatusError) Error() string {
	if e.Meta == "" {
		return fmt.Sprintf("gemini status: %d", e.Status)
	}
	return fmt.Sprintf("gemini status: %d %s", e.Status, e.Meta)
}
