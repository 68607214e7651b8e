package trends

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fetch failure for retry and reporting decisions.
type ErrorKind string

const (
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindRateLimited         ErrorKind = "rate_limited"
	KindTimeout             ErrorKind = "timeout"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
)

// FetchError is the typed failure surfaced by the external client.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("trends fetch %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("trends fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Invalid requests are
// never retried.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUpstreamUnavailable:
		return true
	default:
		return false
	}
}

// KindOf extracts the error kind, defaulting to upstream_unavailable for
// untyped errors.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUpstreamUnavailable
}
