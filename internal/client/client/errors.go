package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/workledger/internal/common"
)

// StatusError is an unexpected non-2xx relay answer that is neither an
// authentication failure nor a retryable server error.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relay returned status %d", e.Code)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.Code, e.Body)
}

// mapStatus converts a relay status code into the client error kinds.
func mapStatus(op string, code int, body string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d)", op, common.ErrAuthentication, code)
	case code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (status %d)", op, common.ErrNetwork, code)
	default:
		return fmt.Errorf("%s: %w", op, &StatusError{Code: code, Body: body})
	}
}

// IsRetryable reports whether err is a network failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, common.ErrNetwork)
}
