package driven

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RateLimitError signals that the remote quota was exceeded. It is the only retryable kind.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration // Server-provided wait hint; zero when absent.
	ResetAt    time.Time     // Quota reset time when known.
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s: rate limited", e.Op)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure: timeout, refused connection, DNS.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is any other failure reported by the platform (permission, not found,
// validation, server error).
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote error (HTTP %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: remote error: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Classification names used in logs.
const (
	ClassRateLimit = "rate_limit"
	ClassNetwork   = "network"
	ClassRemote    = "remote"
	ClassCanceled  = "canceled"
	ClassUnknown   = "unknown"
)

// Classify returns the log classification of err.
func Classify(err error) string {
	var rl *RateLimitError
	var ne *NetworkError
	var re *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rl):
		return ClassRateLimit
	case errors.As(err, &ne):
		return ClassNetwork
	case errors.As(err, &re):
		return ClassRemote
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	default:
		return ClassUnknown
	}
}

// IsRetryable reports whether err is a rate-limit error.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
