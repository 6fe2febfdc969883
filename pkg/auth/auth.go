package auth

import (
	"fmt"
	"net/http"

	"github.com/saturnines/newrelic-mcp/pkg/config"
)

var ErrMissingCredentials = fmt.Errorf("missing credentials")

// HeaderAPIKey is the header NerdGraph reads the user key from
const HeaderAPIKey = "Api-Key"

// Handler defines the interface for auth handlers
type Handler interface {
	ApplyAuth(req *http.Request) error
}

// APIKeyAuth implements the Handler interface for API key authentication
type APIKeyAuth struct {
	HeaderName string // Header name, "Api-Key" for NerdGraph
	value      string
	masked     string
}

// NewAPIKeyAuth creates a new API key authentication handler
func NewAPIKeyAuth(headerName, value string) *APIKeyAuth {
	return &APIKeyAuth{
		HeaderName: headerName,
		value:      value,
		masked:     config.Mask(value),
	}
}

// FromCredentials builds the NerdGraph key handler. This is the only place the
// raw key leaves Credentials.
func FromCredentials(creds *config.Credentials) *APIKeyAuth {
	return &APIKeyAuth{
		HeaderName: HeaderAPIKey,
		value:      creds.APIKey(),
		masked:     creds.MaskedAPIKey(),
	}
}

// ApplyAuth adds the API key to the request header
func (a *APIKeyAuth) ApplyAuth(req *http.Request) error {
	if a.value == "" {
		return fmt.Errorf("%w: API key value is required", ErrMissingCredentials)
	}
	if a.HeaderName == "" {
		return fmt.Errorf("API key auth requires a header name")
	}

	req.Header.Set(a.HeaderName, a.value)
	return nil
}

// String returns a string representation of this auth method
func (a *APIKeyAuth) String() string {
	return fmt.Sprintf("APIKeyAuth(header: %s, key: %s)", a.HeaderName, a.masked)
}
