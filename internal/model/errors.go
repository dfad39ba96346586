package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrThrottled is matched by errors.Is for any provider throttling signal
// (HTTP 429). It is the only provider error that crosses the adapter boundary.
var ErrThrottled = errors.New("provider throttled")

// HTTPError wraps an HTTP status code so retry and pacing logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is reports 429 responses as ErrThrottled.
func (e *HTTPError) Is(target error) bool {
	return target == ErrThrottled && e.StatusCode == http.StatusTooManyRequests
}

// ErrorKind classifies err into a short label for logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		httpErr   *HTTPError
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return "decode"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "transport"
	}
}
