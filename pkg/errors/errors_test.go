package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	err := WrapError(fmt.Errorf("boom"), ErrValidation, "account id")

	assert.True(t, Is(err, ErrValidation))
	assert.Equal(t, "validation error: account id: boom", err.Error())
}

func TestTransportErrorRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *TransportError
		want bool
	}{
		{"network failure", &TransportError{Err: fmt.Errorf("connection refused")}, true},
		{"rate limited", &TransportError{StatusCode: 429}, true},
		{"server error", &TransportError{StatusCode: 502, Body: "bad gateway"}, true},
		{"unauthorized", &TransportError{StatusCode: 401, Body: "bad key"}, false},
		{"canceled", &TransportError{Err: fmt.Errorf("do: %w", context.Canceled)}, false},
		{"deadline", &TransportError{Err: context.DeadlineExceeded}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	var err error = &TransportError{StatusCode: 500}
	assert.True(t, Is(fmt.Errorf("call: %w", err), ErrTransport))
	assert.False(t, Is(err, ErrProtocol))

	err = &ProtocolError{Errors: []map[string]any{{"message": "x"}}}
	assert.True(t, Is(err, ErrProtocol))
	assert.Equal(t, "GraphQL errors: x", err.Error())

	var pe *ProtocolError
	require.True(t, As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, "x", pe.Errors[0]["message"])

	err = &DomainError{Operation: "Destination creation", Description: "invalid url"}
	assert.True(t, Is(err, ErrDomain))
	assert.Equal(t, "Destination creation failed: invalid url", err.Error())
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Violations: []ValidationError{
		{Field: "api_key", Message: "is required"},
		{Field: "region", Message: "must be US or EU"},
	}}

	assert.True(t, Is(err, ErrConfiguration))
	assert.Equal(t, []string{"api_key", "region"}, err.Fields())
	assert.True(t, err.HasField("region"))
	assert.False(t, err.HasField("timeout"))
	assert.Contains(t, err.Error(), "api_key: is required")
}
