package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// transientPatterns catch network failures that HTTP clients flatten into
// plain strings.
var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err looks like a network-level failure that
// may succeed on retry: timeouts, resets, refused connections. A deadline
// on a single attempt counts; caller cancellation does not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying:
// 408, 429 and the 5xx gateway family.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}

// HTTPRetryPolicy builds a ShouldRetry func for API clients. statusOf
// extracts the HTTP status from an error, returning 0 when there is none.
// Errors with a status retry only on transient statuses; errors without
// one fall back to IsTransient.
func HTTPRetryPolicy(statusOf func(error) int) func(error) bool {
	return func(err error) bool {
		if code := statusOf(err); code != 0 {
			return IsTransientHTTPStatus(code)
		}
		return IsTransient(err)
	}
}
