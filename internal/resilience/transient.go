package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// TransientStatus reports whether a provider status code is worth retrying.
func TransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// transientMarkers appear in provider and transport error text that did not
// keep a typed cause.
var transientMarkers = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"tls handshake timeout",
	"server closed idle connection",
	"rate limit",
	"overloaded",
	"resource_exhausted",
	"unavailable",
	"error 429",
	"error 500",
	"error 503",
}

// Transient reports whether err is likely to clear on retry: a retryable
// StatusError, a network timeout, a refused or reset connection, or
// provider text saying so.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return TransientStatus(se.Code)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
