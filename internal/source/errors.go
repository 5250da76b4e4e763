package source

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tinytelemetry/dealboard/internal/model"
)

// ErrNotFound is returned when the backend or file has no such resource.
var ErrNotFound = errors.New("source: not found")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("source: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("source: unexpected status %d: %s", e.Code, e.Body)
}

// Is lets callers match throttling and missing resources with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case model.ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// Transient reports whether the failure is worth retrying on the next pass.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}
