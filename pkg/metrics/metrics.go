// Package metrics exposes Prometheus collectors for tool calls and the
// NerdGraph requests they make.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

const namespace = "newrelic_mcp"

// Outcome labels for tool calls
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

// Collectors records call and request metrics. A nil *Collectors is a no-op.
type Collectors struct {
	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	graphqlRequests *prometheus.CounterVec
	graphqlDuration prometheus.Histogram
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by operation and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		graphqlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_requests_total",
			Help:      "NerdGraph requests by result (ok, transport, protocol).",
		}, []string{"result"}),
		graphqlDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_request_duration_seconds",
			Help:      "NerdGraph request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, col := range []prometheus.Collector{c.toolCalls, c.toolDuration, c.graphqlRequests, c.graphqlDuration} {
		if err := reg.Register(col); err != nil {
			return nil, errors.WrapError(err, errors.ErrConfiguration, "register metrics")
		}
	}
	return c, nil
}

// ObserveCall records one dispatched tool call
func (c *Collectors) ObserveCall(tool, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveRequest records one NerdGraph round trip
func (c *Collectors) ObserveRequest(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.graphqlRequests.WithLabelValues(result).Inc()
	c.graphqlDuration.Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
