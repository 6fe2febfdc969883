package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/auth"
	"github.com/saturnines/newrelic-mcp/pkg/config"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

// HTTPDoer is the minimal interface satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Transport runs NerdGraph documents. Implementations return the full
// decoded response body on success and a *errors.TransportError or
// *errors.ProtocolError on failure.
type Transport interface {
	Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error)
	QueryNRQL(ctx context.Context, accountID, nrql string) (map[string]any, error)
}

// Observer receives one call per request with its outcome:
// "ok", "transport" or "protocol".
type Observer interface {
	ObserveRequest(result string, elapsed time.Duration)
}

// Client executes GraphQL operations.
type Client struct {
	doer     HTTPDoer
	endpoint string
	auth     auth.Handler
	headers  map[string]string
	logger   *zap.Logger
	observer Observer
}

// Endpoint returns the GraphQL URL under a base API URL.
func Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/graphql"
}

// NewClient creates a client for endpoint. The default doer is an
// *http.Client with a 30s timeout.
func NewClient(endpoint string, authHandler auth.Handler, opts ...ClientOption) *Client {
	c := &Client{
		doer:     &http.Client{Timeout: time.Duration(config.DefaultTimeoutSeconds) * time.Second},
		endpoint: endpoint,
		auth:     authHandler,
		headers:  map[string]string{},
		logger:   zap.NewNop(),
	}
	c.ApplyOptions(opts...)
	return c
}

// NewClientFromCredentials wires region endpoint, API key, timeout and the
// per-minute request budget from creds. Options are applied afterwards.
func NewClientFromCredentials(creds *config.Credentials, opts ...ClientOption) *Client {
	httpClient := &http.Client{Timeout: creds.Timeout()}
	base := []ClientOption{
		WithHTTPDoer(NewRateLimitedDoer(httpClient, creds.RateLimit())),
	}
	return NewClient(Endpoint(creds.Region().BaseURL()), auth.FromCredentials(creds), append(base, opts...)...)
}

// Execute posts query and variables and returns the decoded body.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	start := time.Now()
	builder := NewBuilder(c.endpoint, query, variables, c.headers, c.auth)

	req, err := builder.Build(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrAuthentication) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "build GraphQL request")
	}

	body, err := c.roundTrip(req)
	c.observe(err, time.Since(start))
	if err != nil {
		c.logger.Warn("graphql request failed",
			zap.String("operation", operationName(query)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("graphql request completed",
		zap.String("operation", operationName(query)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

// QueryNRQL runs nrql against accountID through the actor.account.nrql field.
func (c *Client) QueryNRQL(ctx context.Context, accountID, nrql string) (map[string]any, error) {
	vars, err := NRQLVariables(accountID, nrql)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, NRQLQuery, vars)
}

// NRQLQuery wraps an NRQL string in a NerdGraph document.
const NRQLQuery = `query($accountId: Int!, $nrql: Nrql!) {
  actor {
    account(id: $accountId) {
      nrql(query: $nrql) {
        results
      }
    }
  }
}`

// NRQLVariables validates the account id and builds the NRQLQuery variables.
func NRQLVariables(accountID, nrql string) (map[string]any, error) {
	id, err := AccountIDInt(accountID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"accountId": id, "nrql": nrql}, nil
}

// AccountIDInt converts a 6 to 12 digit account id for Int! variables.
func AccountIDInt(accountID string) (int, error) {
	digits, err := validate.AccountID(accountID)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrValidation, "account id")
	}
	return id, nil
}

func (c *Client) roundTrip(req *http.Request) (map[string]any, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, &errors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		if err == nil {
			err = fmt.Errorf("response body is not a JSON object")
		}
		return nil, &errors.TransportError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        errors.WrapError(err, errors.ErrHTTPResponse, "decode GraphQL response"),
		}
	}

	if list := protocolErrors(body["errors"]); len(list) > 0 {
		return nil, &errors.ProtocolError{Errors: list}
	}

	return body, nil
}

// protocolErrors normalizes a top-level errors value. A null or empty list
// yields nothing, so such bodies count as success.
func protocolErrors(v any) []map[string]any {
	switch errs := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]map[string]any, 0, len(errs))
		for _, item := range errs {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			} else {
				out = append(out, map[string]any{"message": fmt.Sprint(item)})
			}
		}
		return out
	default:
		return []map[string]any{{"message": fmt.Sprint(errs)}}
	}
}

func (c *Client) observe(err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, errors.ErrProtocol):
		result = "protocol"
	case err != nil:
		result = "transport"
	}
	c.observer.ObserveRequest(result, elapsed)
}

// operationName returns the keyword and first selected field for log lines,
// e.g. "mutation alertsPolicyCreate".
func operationName(query string) string {
	query = strings.TrimSpace(query)
	kind := "query"
	if strings.HasPrefix(query, "mutation") {
		kind = "mutation"
	}

	open := strings.Index(query, "{")
	if open < 0 {
		return kind
	}
	fields := strings.FieldsFunc(query[open+1:], func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	for _, f := range fields {
		if f != "actor" {
			return kind + " " + f
		}
	}
	return kind
}
