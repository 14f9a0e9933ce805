package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// statusCoder is implemented by the API client errors in pkg/.
type statusCoder interface {
	HTTPStatus() int
}

// Retryable reports whether err is worth another attempt: a retryable HTTP
// status from an API client, a network timeout or a dropped connection.
// Context cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return RetryableStatus(sc.HTTPStatus())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// RetryableStatus reports whether an HTTP status signals a temporary
// upstream condition.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
