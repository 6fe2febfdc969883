package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Standard error types
var (
	ErrAuthentication = errors.New("authentication error")
	ErrConfiguration  = errors.New("configuration error")
	ErrHTTPRequest    = errors.New("HTTP request error")
	ErrHTTPResponse   = errors.New("HTTP response error")
	ErrExtraction     = errors.New("data extraction error")
	ErrValidation     = errors.New("validation error")
	ErrTransport      = errors.New("transport error")
	ErrProtocol       = errors.New("GraphQL protocol error")
	ErrDomain         = errors.New("API domain error")
)

// WrapError wraps an error with a standard error type
func WrapError(err error, errType error, message string) error {
	wrapped := fmt.Errorf("%s: %w", message, err)
	return fmt.Errorf("%w: %v", errType, wrapped)
}

// Is provides a convenience wrapper around errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As provides a convenience wrapper around errors.As
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap provides a convenience wrapper around errors.Unwrap
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// TransportError reports a failed HTTP exchange: the connection failed, the
// request timed out, or the server answered with a non-2xx status or a body
// that is not a JSON object. StatusCode is 0 when no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, truncate(e.Body, 500))
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return "request failed"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Retryable reports whether a caller-side policy may repeat the request.
// Network failures, timeouts, 429 and 5xx are retryable; cancellation is not.
func (e *TransportError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ProtocolError reports a 2xx response carrying a top-level GraphQL errors
// array. Errors holds the list exactly as the server sent it.
type ProtocolError struct {
	Errors []map[string]any
}

func (e *ProtocolError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		if m, ok := item["message"].(string); ok && m != "" {
			msgs = append(msgs, m)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%v", item))
	}
	return "GraphQL errors: " + strings.Join(msgs, "; ")
}

// Is matches ErrProtocol
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// DomainError reports an operation-level failure reported inside the data
// payload, such as a typed mutation error.
type DomainError struct {
	Operation   string
	Type        string
	Description string
}

func (e *DomainError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Type
	}
	if msg == "" {
		msg = "unknown error"
	}
	if e.Operation == "" {
		return msg
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, msg)
}

// Is matches ErrDomain
func (e *DomainError) Is(target error) bool { return target == ErrDomain }

// ValidationError names a single offending field
type ValidationError struct {
	Field   string
	Message string
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationError collects every violation found while resolving configuration
type ConfigurationError struct {
	Violations []ValidationError
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%v: %s", ErrConfiguration, strings.Join(parts, "; "))
}

// Is matches ErrConfiguration
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Fields returns the offending field names in report order
func (e *ConfigurationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fields
}

// HasField reports whether field is among the violations
func (e *ConfigurationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
