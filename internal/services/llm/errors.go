package llm

import (
	"context"
	"errors"
	"fmt"
)

// AuthError indicates the provider rejected the credentials (401/403)
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %s authorization failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimitError indicates the provider rejected the call on rate or quota
// grounds (429)
type RateLimitError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider %s rate limited (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransportError indicates a generic transport failure: network error,
// timeout, or an unexpected provider status
type TransportError struct {
	Provider string
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s transport failure: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s transport failure: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsProviderUnavailable reports whether err is any of the typed transport
// failures (auth, rate limit, transport/timeout). These are all non-fatal
// to an analysis run: the caller records a placeholder observation and
// continues the matrix.
func IsProviderUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	var rateErr *RateLimitError
	var transportErr *TransportError
	return errors.As(err, &authErr) ||
		errors.As(err, &rateErr) ||
		errors.As(err, &transportErr) ||
		errors.Is(err, context.DeadlineExceeded)
}
