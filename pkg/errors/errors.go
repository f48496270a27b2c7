package errors

import (
	"fmt"
	"net/http"
)

// ApiError is the JSON error body returned by every endpoint. Message is the
// user-facing text; Title is the status class.
type ApiError struct {
	Code      int    `json:"code"`
	Title     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var (
	ErrBadRequest       = func(message string) *ApiError { return New(http.StatusBadRequest, "Bad Request", message) }
	ErrNotFound         = func(message string) *ApiError { return New(http.StatusNotFound, "Not Found", message) }
	ErrMethodNotAllowed = func(message string) *ApiError { return New(http.StatusMethodNotAllowed, "Method Not Allowed", message) }
	ErrInternalServer   = func(message string) *ApiError {
		return New(http.StatusInternalServerError, "Internal Server Error", message)
	}
	ErrServiceUnavailable = func(message string) *ApiError {
		return New(http.StatusServiceUnavailable, "Service Unavailable", message)
	}
	// ErrUpstream reports a failed call to the document parser, the
	// generator or a job posting site.
	ErrUpstream = func(message string) *ApiError {
		return New(http.StatusInternalServerError, "Upstream Request Failed", message)
	}
)

func New(code int, title, message string) *ApiError {
	return &ApiError{
		Code:    code,
		Title:   title,
		Message: message,
	}
}

func (e *ApiError) WithRequestID(requestID string) *ApiError {
	e.RequestID = requestID
	return e
}

func (e *ApiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	return e.Title
}

func (e *ApiError) StatusCode() int {
	return e.Code
}
