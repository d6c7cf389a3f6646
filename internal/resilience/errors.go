package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
)

// IsTimeout reports whether err (or any error in its chain) is a network
// timeout or an expired deadline. Plain cancellation is not a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTimeoutStatus reports whether an HTTP status code means the upstream
// gave up waiting rather than rejecting the request.
func IsTimeoutStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
