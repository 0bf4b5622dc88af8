package api

import (
	"errors"
	"fmt"
	"net/http"

	"toolbox/internal/models"
)

// ErrSignedOut is returned, before any network call, by operations that need
// a bearer token when none is set.
var ErrSignedOut = models.NewUnauthorizedError("No authentication token found")

// APIError is a non-2xx response.
type APIError struct {
	Status   int
	Message  string
	Method   string
	Endpoint string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unauthorized reports a 401 or 403.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NotFound reports a 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// StatusOf returns the HTTP status behind err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func statusMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
