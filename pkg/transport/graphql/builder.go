package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/saturnines/newrelic-mcp/pkg/auth"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// Builder constructs GraphQL requests.
type Builder struct {
	Endpoint    string
	Query       string
	Variables   map[string]any
	Headers     map[string]string
	AuthHandler auth.Handler
}

// NewBuilder sets up a GraphQL Builder.
// Endpoint is the full URL of the GraphQL endpoint.
func NewBuilder(
	endpoint, query string,
	variables map[string]any,
	headers map[string]string,
	authHandler auth.Handler,
) *Builder {
	return &Builder{
		Endpoint:    endpoint,
		Query:       query,
		Variables:   variables,
		Headers:     headers,
		AuthHandler: authHandler,
	}
}

// Body returns the JSON payload. Variables are omitted when empty.
func (b *Builder) Body() ([]byte, error) {
	body := map[string]any{
		"query": b.Query,
	}
	if len(b.Variables) > 0 {
		body["variables"] = b.Variables
	}
	return json.Marshal(body)
}

// Build creates the *http.Request with JSON body.
func (b *Builder) Build(ctx context.Context) (*http.Request, error) {
	buf, err := b.Body()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.AuthHandler != nil {
		if err := b.AuthHandler.ApplyAuth(req); err != nil {
			return nil, errors.WrapError(err, errors.ErrAuthentication, "apply auth")
		}
	}
	return req, nil
}
