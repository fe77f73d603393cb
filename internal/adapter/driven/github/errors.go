package github

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/reviewnudge/internal/domain/port/driven"
)

// classifyError converts a go-github or transport error into the driven error taxonomy.
// Cancellation is returned unchanged so callers see context.Canceled.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		return &driven.RateLimitError{
			Op:         op,
			RetryAfter: untilReset(rle.Rate.Reset.Time),
			ResetAt:    rle.Rate.Reset.Time,
			Err:        err,
		}
	}

	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return &driven.RateLimitError{
			Op:         op,
			RetryAfter: abuse.GetRetryAfter(),
			Err:        err,
		}
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) {
		status := 0
		if errResp.Response != nil {
			status = errResp.Response.StatusCode
		}
		if status == http.StatusTooManyRequests {
			return &driven.RateLimitError{
				Op:         op,
				RetryAfter: retryAfterHeader(errResp.Response.Header),
				Err:        err,
			}
		}
		return &driven.RemoteError{
			Op:         op,
			StatusCode: status,
			Message:    errResp.Message,
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &driven.NetworkError{Op: op, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &driven.NetworkError{Op: op, Err: err}
	}

	return &driven.RemoteError{Op: op, Message: err.Error(), Err: err}
}

// retryAfterHeader parses a Retry-After header expressed in seconds.
func retryAfterHeader(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func untilReset(reset time.Time) time.Duration {
	if reset.IsZero() {
		return 0
	}
	d := time.Until(reset)
	if d < 0 {
		return 0
	}
	return d.Round(time.Second)
}
