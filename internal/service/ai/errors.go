package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrOverloaded marks an upstream error that signals temporary unavailability.
	// Providers wrap their native overload errors with it.
	ErrOverloaded = errors.New("upstream temporarily overloaded")
	// ErrRetriesExhausted matches an UpstreamError whose attempts all hit overload.
	ErrRetriesExhausted = errors.New("upstream retries exhausted")
	ErrEmptyRequest     = errors.New("request has no content")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrOverloaded)
}

// UpstreamError is returned when a reply could not be generated.
type UpstreamError struct {
	Provider  string
	Attempts  int
	Transient bool
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Transient {
		return fmt.Sprintf("%s unavailable after %d attempts: %v", e.Provider, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRetriesExhausted) match overload failures.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Transient
}

// FallbackMessage returns the text shown to the user in place of a reply.
func FallbackMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Transient {
			return fmt.Sprintf("%s is busy. Please try again in a moment.", upstream.Provider)
		}
		return fmt.Sprintf("%s could not answer this message. Please try again.", upstream.Provider)
	}
	if errors.Is(err, ErrEmptyRequest) {
		return "Please type a message or attach an image."
	}
	return "Something went wrong while generating the reply."
}
