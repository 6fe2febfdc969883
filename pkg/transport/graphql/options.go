package graphql

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/auth"
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPDoer swaps the underlying HTTPDoer.
func WithHTTPDoer(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		c.doer = doer
	}
}

// WithTimeout sets a timeout on the HTTP client. It reaches through a
// RateLimitedDoer to the *http.Client beneath it.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		doer := c.doer
		if limited, ok := doer.(*RateLimitedDoer); ok {
			doer = limited.doer
		}
		if httpClient, ok := doer.(*http.Client); ok {
			httpClient.Timeout = timeout
		}
	}
}

// WithEndpoint overrides the GraphQL URL.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithAuthHandler sets a custom auth handler.
func WithAuthHandler(h auth.Handler) ClientOption {
	return func(c *Client) {
		c.auth = h
	}
}

// WithHeader adds a header to every GraphQL request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(userAgent string) ClientOption {
	return WithHeader("User-Agent", userAgent)
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named("graphql")
		}
	}
}

// WithObserver reports every request outcome to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// ApplyOptions applies ClientOption functions in order.
func (c *Client) ApplyOptions(opts ...ClientOption) {
	for _, opt := range opts {
		opt(c)
	}
}
