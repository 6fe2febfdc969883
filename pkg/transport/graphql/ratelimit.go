package graphql

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedDoer spaces requests to a per-minute budget. Waiting honours
// the request context.
type RateLimitedDoer struct {
	doer    HTTPDoer
	limiter *rate.Limiter
}

// NewRateLimitedDoer wraps doer with a token bucket refilled at perMinute/60
// tokens per second. A non-positive budget disables limiting.
func NewRateLimitedDoer(doer HTTPDoer, perMinute int) *RateLimitedDoer {
	d := &RateLimitedDoer{doer: doer}
	if perMinute > 0 {
		burst := perMinute / 10
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
	return d
}

// Do waits for a token and then sends req.
func (d *RateLimitedDoer) Do(req *http.Request) (*http.Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return d.doer.Do(req)
}
