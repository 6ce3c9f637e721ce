package routing

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/upb/persona-relay/services/providers"
)

// ErrorKind classifies a failed provider attempt. It only feeds logs and
// metrics; every kind moves the dispatcher on to the next provider.
type ErrorKind string

const (
	KindOverload    ErrorKind = "overload"
	KindAuthFailure ErrorKind = "auth_failure"
	KindTimeout     ErrorKind = "timeout"
	KindUnknown     ErrorKind = "unknown"
)

// Classify maps a provider error to an ErrorKind. Deadlines win, then the
// structured status code when the client exposed one, then the error text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) && provErr.StatusCode != 0 {
		return classifyStatus(provErr.StatusCode)
	}

	return classifyText(err.Error())
}

func classifyStatus(code int) ErrorKind {
	switch code {
	case http.StatusServiceUnavailable, http.StatusTooManyRequests, 529:
		return KindOverload
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthFailure
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnknown
	}
}

func classifyText(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "503"), strings.Contains(msg, "overloaded"):
		return KindOverload
	case strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return KindAuthFailure
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return KindTimeout
	default:
		return KindUnknown
	}
}
