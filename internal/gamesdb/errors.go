package gamesdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// StatusError is returned when the API responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

// IsConnectivityError reports whether err is a transport-level failure:
// unreachable host, refused connection, DNS failure, timeout. HTTP status
// errors and decode errors are not connectivity errors.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	// url.Error wraps transport failures from http.Client.Do. Decode errors
	// never pass through url.Error, so any remaining one is transport-level.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
