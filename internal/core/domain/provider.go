package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ProviderError is a request an AI provider or vector server answered with
// an error status.
type ProviderError struct {
	// Provider names the service, e.g. "openai" or "qdrant".
	Provider string

	// Status is the HTTP status code.
	Status int

	// Message is the provider's own error text.
	Message string

	// RetryAfter is the wait the provider asked for, zero when it gave none.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// Retryable reports whether the same request may succeed later: rate
// limits, timeouts and server-side failures.
func (e *ProviderError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout ||
		e.Status >= http.StatusInternalServerError
}

// IsRetryable reports whether repeating the call that returned err may
// succeed. Provider rejections such as bad credentials or an unknown model
// are permanent, as is a cancelled context; transport failures are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return err != nil
}

// RetryDelay returns the wait before the next attempt: backoff, or longer
// when the provider asked for it.
func RetryDelay(err error, backoff time.Duration) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > backoff {
		return pe.RetryAfter
	}
	return backoff
}
