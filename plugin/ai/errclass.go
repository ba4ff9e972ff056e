package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// IsTransient reports whether a model invocation failure is worth retrying.
// Rate limiting, server errors, timeouts and network failures are
// transient; auth and invalid-request failures are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout:
			return true
		case http.StatusUnauthorized, http.StatusForbidden,
			http.StatusBadRequest, http.StatusNotFound,
			http.StatusUnprocessableEntity:
			return false
		}
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		return reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}

	// Per-attempt deadline expiry is transient; parent cancellation is
	// handled by the retry loop before this check.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return hasNetworkPattern(err.Error())
}

func hasNetworkPattern(msg string) bool {
	msg = strings.ToLower(msg)
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"i/o timeout",
		"deadline exceeded",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
