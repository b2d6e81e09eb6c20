package netutil

import (
	"context"
	"errors"
	"net"
)

// ShouldRetry reports whether err is a transient dial or timeout failure.
// Cancelled requests are never retried.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
