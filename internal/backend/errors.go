package backend

import (
	"errors"
	"fmt"
)

// APIError is a response the backend rejected, either with a non-2xx status
// or with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status >= 200 && e.Status < 300 {
		return "request was not successful"
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// ValidationError is raised before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrTransport = errors.New("backend unreachable")
	ErrDecode    = errors.New("backend response is not valid JSON")
)

// Message returns the text a page shows for err, or fallback when err
// carries nothing user-facing.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	return fallback
}

func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
