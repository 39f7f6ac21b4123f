package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind tells whether a failed call is worth retrying
type Kind int

const (
	// Transient covers rate limits, server errors and timeouts
	Transient Kind = iota + 1
	// Permanent covers malformed requests and authentication failures
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// AdapterError is a classified failure of a model call
type AdapterError struct {
	Kind     Kind
	Provider string
	Status   int // HTTP status when known
	Err      error
}

func (e *AdapterError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (HTTP %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Fatal reports failures that will repeat for every batch, such as a
// rejected API key.
func (e *AdapterError) Fatal() bool {
	return e.Kind == Permanent && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// ResponseShapeError means the reply did not carry exactly one segment per
// input. It is retryable, preferably with a smaller batch.
type ResponseShapeError struct {
	Expected int
	Got      int // -1 when the reply could not be parsed at all
	Err      error
}

func (e *ResponseShapeError) Error() string {
	if e.Got < 0 {
		return fmt.Sprintf("unparseable response, expected %d segments: %v", e.Expected, e.Err)
	}
	return fmt.Sprintf("response has %d segments, expected %d", e.Got, e.Expected)
}

func (e *ResponseShapeError) Unwrap() error { return e.Err }

// IsTransient reports whether err may succeed on retry
func IsTransient(err error) bool {
	var shape *ResponseShapeError
	if errors.As(err, &shape) {
		return true
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind == Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsShape reports whether err is a ResponseShapeError
func IsShape(err error) bool {
	var shape *ResponseShapeError
	return errors.As(err, &shape)
}

// IsFatal reports whether err should stop the whole run
func IsFatal(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Fatal()
}

// classifyStatus maps an HTTP status to an error kind
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return Transient
	case status >= 400:
		return Permanent
	default:
		return Transient
	}
}

// newError classifies err from provider. Deadline and network errors without
// a status are transient; a cancelled parent context is passed through.
func newError(provider string, status int, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := Transient
	if status != 0 {
		kind = classifyStatus(status)
	}
	return &AdapterError{Kind: kind, Provider: provider, Status: status, Err: err}
}
