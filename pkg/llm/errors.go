package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyResponse = errors.New("llm: empty response")

// StatusError is a non-2xx reply from a model backend.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Code, e.Body)
}

// Retryable is true for throttling and server side failures. Other client
// errors (bad key, unknown model, oversized prompt) fail the same way again.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout || e.Code >= 500
}

// IsPermanent reports whether err carries a backend status that retrying
// cannot change.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && !se.Retryable()
}

// truncate keeps error bodies readable in logs.
func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}

// NewStatusError builds a StatusError from a raw response body.
func NewStatusError(provider string, code int, body []byte) *StatusError {
	return &StatusError{Provider: provider, Code: code, Body: truncate(body, 512)}
}
