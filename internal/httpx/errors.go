package httpx

import (
	"errors"
	"fmt"
	"time"
)

// ErrRequestFailed indicates the request could not be completed at the
// transport level (connection refused, timeout, DNS failure).
var ErrRequestFailed = errors.New("http request failed")

// RateLimitError indicates the server throttled or blocked the client.
type RateLimitError struct {
	StatusCode     int
	RetryAfter     time.Duration
	IsBotDetection bool
}

func (e *RateLimitError) Error() string {
	if e.IsBotDetection {
		return fmt.Sprintf("request blocked (HTTP %d), possible bot detection", e.StatusCode)
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (HTTP %d), retry after %s", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (HTTP %d)", e.StatusCode)
}

// HTTPError represents a non-2xx response that is not a throttling signal.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// IsNotFound reports whether err is an HTTPError with status 404.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == 404
}

// IsRateLimited reports whether err is a throttling or block response.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
