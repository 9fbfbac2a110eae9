package sourcing

import (
	"context"
	"errors"
)

var (
	// ErrInvalidRequest is the only error Aggregate returns for a bad request.
	ErrInvalidRequest = errors.New("invalid search request")

	ErrUnauthenticated   = errors.New("provider unauthenticated")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrTransient         = errors.New("provider transient failure")
	ErrMalformedResponse = errors.New("provider malformed response")
	// ErrMisconfigured marks a source whose own settings make a search impossible.
	ErrMisconfigured = errors.New("provider misconfigured")
)

// Failure tags used in logs, results and the state store.
const (
	TagUnauthenticated   = "unauthenticated"
	TagRateLimited       = "rate_limited"
	TagTransient         = "transient"
	TagMalformedResponse = "malformed_response"
	TagMisconfigured     = "misconfigured"
	TagCancelled         = "cancelled"
)

// FailureTag maps a provider error onto the failure taxonomy.
// Unknown errors are reported as transient.
func FailureTag(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return TagUnauthenticated
	case errors.Is(err, ErrRateLimited):
		return TagRateLimited
	case errors.Is(err, ErrMalformedResponse):
		return TagMalformedResponse
	case errors.Is(err, ErrMisconfigured):
		return TagMisconfigured
	case errors.Is(err, context.Canceled):
		return TagCancelled
	default:
		return TagTransient
	}
}
