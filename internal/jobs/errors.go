package jobs

import (
	"errors"
	"net/http"
)

// Domain errors for job operations.
var (
	ErrNotFound    = errors.New("job not found")
	ErrDuplicate   = errors.New("job already exists")
	ErrInvalidKind = errors.New("invalid job kind")
	ErrInvalidJob  = errors.New("invalid job")
)

// MapHTTPStatus maps job domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidKind) || errors.Is(err, ErrInvalidJob) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
