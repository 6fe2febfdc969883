package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

func TestObserveCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveCall("list_workflows", OutcomeSuccess, 20*time.Millisecond)
	c.ObserveCall("list_workflows", OutcomeSuccess, 30*time.Millisecond)
	c.ObserveCall("list_workflows", OutcomeError, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.toolCalls.WithLabelValues("list_workflows", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.toolCalls.WithLabelValues("list_workflows", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.toolDuration))
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveRequest("ok", time.Millisecond)
	c.ObserveRequest("protocol", time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.graphqlRequests.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.graphqlRequests.WithLabelValues("protocol")))
}

func TestNilCollectorsAreNoops(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.ObserveCall("x", OutcomeSuccess, time.Second)
		c.ObserveRequest("ok", time.Second)
	})
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)
	c.ObserveCall("query_nrql", OutcomeSuccess, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `newrelic_mcp_tool_calls_total{outcome="success",tool="query_nrql"} 1`)
}
