package api

import (
	"errors"
	"fmt"
)

// APIError is any non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform http %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.HTTPStatusCode()
	}
	return 0
}

// IsRetryable reports whether the request that produced err is worth retrying.
func IsRetryable(err error) bool {
	return isRetryableError(err)
}
