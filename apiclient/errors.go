package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNetwork
	ErrorTypeAuthentication
	ErrorTypeAPI
	ErrorTypeValidation
)

// Error represents a structured error with type information
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

func NewNetworkError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: message, Cause: cause}
}

// IsAuthenticationError checks if an error is authentication-related
func IsAuthenticationError(err error) bool {
	if cErr, ok := err.(*Error); ok {
		return cErr.IsType(ErrorTypeAuthentication)
	}
	return false
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	if cErr, ok := err.(*Error); ok {
		return cErr.StatusCode
	}
	return 0
}

// WrapHTTPError wraps an HTTP response into an appropriate Error type. The
// server's plain-text error message is included when present.
func WrapHTTPError(resp *http.Response, message string) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if detail := strings.TrimSpace(string(body)); detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	errorType := ErrorTypeAPI
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errorType = ErrorTypeAuthentication
	case http.StatusBadRequest:
		errorType = ErrorTypeValidation
	}
	return &Error{
		Type:       errorType,
		Message:    fmt.Sprintf("%s (%s)", message, resp.Status),
		StatusCode: resp.StatusCode,
	}
}
