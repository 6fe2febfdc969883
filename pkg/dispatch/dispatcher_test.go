package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/auth"
	"github.com/saturnines/newrelic-mcp/pkg/handlers"
	"github.com/saturnines/newrelic-mcp/pkg/metrics"
	"github.com/saturnines/newrelic-mcp/pkg/registry"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
)

const testKey = "NRAK-ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type observed struct {
	tool, outcome string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (r *recordingObserver) ObserveCall(tool, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, observed{tool, outcome})
}

// stub builds a one-operation dispatcher around h
func stub(t *testing.T, h handlers.Handler, opts ...Option) *Dispatcher {
	t.Helper()
	reg, err := registry.New([]registry.Descriptor{{Name: "op", Description: "test op"}})
	require.NoError(t, err)
	d, err := New(reg, map[string]handlers.Handler{"op": h}, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return d
}

func TestAccountResolution(t *testing.T) {
	var got string
	h := handlers.HandlerFunc(func(_ context.Context, _ args.Args, accountID string) response.Envelope {
		got = accountID
		return response.Success(nil)
	})
	d := stub(t, h)

	d.Dispatch(context.Background(), "op", map[string]any{"account_id": "654321"}, "123456")
	assert.Equal(t, "654321", got)

	d.Dispatch(context.Background(), "op", map[string]any{"account_id": float64(777777)}, "123456")
	assert.Equal(t, "777777", got)

	d.Dispatch(context.Background(), "op", map[string]any{}, "123456")
	assert.Equal(t, "123456", got)

	d.Dispatch(context.Background(), "op", map[string]any{"account_id": "  "}, "123456")
	assert.Equal(t, "123456", got)
}

func TestMissingAccountNeverReachesHandler(t *testing.T) {
	called := false
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		called = true
		return response.Success(nil)
	}))

	env := d.Dispatch(context.Background(), "op", nil, "")
	assert.Equal(t, response.Envelope{"error": "Account ID not provided"}, env)
	assert.False(t, called)

	env = d.Dispatch(context.Background(), "nope", nil, "")
	assert.Equal(t, "Account ID not provided", env.ErrorMessage())
}

func TestUnknownTool(t *testing.T) {
	obs := &recordingObserver{}
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		return response.Success(nil)
	}), WithObserver(obs))
	env := d.Dispatch(context.Background(), "nope", nil, "123456")
	assert.Equal(t, response.Envelope{"error": "Unknown tool: nope"}, env)
	assert.Equal(t, []observed{{UnknownTool, "error"}}, obs.calls)
}

func TestInvalidAccountNeverReachesHandler(t *testing.T) {
	called := false
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		called = true
		return response.Success(nil)
	}))

	for _, account := range []any{"1 OR accountId > 0", "1", "+123456", "1234567890123", float64(42)} {
		env := d.Dispatch(context.Background(), "op", map[string]any{"account_id": account}, "123456")
		assert.True(t, env.IsError(), "%v", account)
		assert.Contains(t, env.ErrorMessage(), "account id")
	}
	assert.False(t, called)

	env := d.Dispatch(context.Background(), "op", nil, "12ab56")
	assert.Contains(t, env.ErrorMessage(), "must be 6 to 12 digits")
	assert.False(t, called)
}

func TestInvalidAccountNeverReachesTransport(t *testing.T) {
	srv, requests := nerdGraph(t, `{"data":{"actor":{"entitySearch":{"results":{"entities":[],"nextCursor":null}}}}}`)
	d := realDispatcher(t, srv.URL)

	for _, name := range []string{"get_dashboards", "search_all_dashboards", "list_alert_policies"} {
		env := d.Call(context.Background(), name, map[string]any{"account_id": "1 OR accountId > 0"})
		assert.True(t, env.IsError(), name)
	}
	assert.Empty(t, *requests)
}

func TestUnknownToolsShareOneMetricSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collectors, err := metrics.New(reg)
	require.NoError(t, err)
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		return response.Success(nil)
	}), WithObserver(collectors))

	for i := 0; i < 50; i++ {
		d.Call(context.Background(), fmt.Sprintf("bogus_%d", i), map[string]any{"account_id": "123456"})
	}
	d.Call(context.Background(), "op", map[string]any{"account_id": "123456"})

	count, err := testutil.GatherAndCount(reg, "newrelic_mcp_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandlerPanicBecomesEnvelope(t *testing.T) {
	obs := &recordingObserver{}
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		panic("boom")
	}), WithObserver(obs))

	var env response.Envelope
	require.NotPanics(t, func() {
		env = d.Dispatch(context.Background(), "op", nil, "123456")
	})
	assert.Equal(t, "Error executing op: boom", env.ErrorMessage())
	assert.Equal(t, []observed{{"op", "panic"}}, obs.calls)
}

func TestNilEnvelopeBecomesError(t *testing.T) {
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		return nil
	}))
	env := d.Dispatch(context.Background(), "op", nil, "123456")
	assert.Equal(t, "Error executing op: handler returned no result", env.ErrorMessage())
}

func TestEnvelopePassesThroughUnmodified(t *testing.T) {
	want := response.Envelope{"success": true, "id": "9", "extra": []any{1.0}}
	obs := &recordingObserver{}
	d := stub(t, handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope {
		return want
	}), WithObserver(obs))

	assert.Equal(t, want, d.Dispatch(context.Background(), "op", nil, "123456"))
	assert.Equal(t, []observed{{"op", "success"}}, obs.calls)
}

func TestArgumentsAreSanitized(t *testing.T) {
	var got args.Args
	d := stub(t, handlers.HandlerFunc(func(_ context.Context, a args.Args, _ string) response.Envelope {
		got = a
		return response.Success(nil)
	}))

	d.Dispatch(context.Background(), "op", map[string]any{"name": " P1\n\x00"}, "123456")
	assert.Equal(t, "P1", got["name"])
}

func TestNewChecksParity(t *testing.T) {
	reg, err := registry.New([]registry.Descriptor{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	noop := handlers.HandlerFunc(func(context.Context, args.Args, string) response.Envelope { return nil })

	_, err = New(reg, map[string]handlers.Handler{"a": noop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operations without handlers: [b]")

	_, err = New(reg, map[string]handlers.Handler{"a": noop, "b": noop, "c": noop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handlers without operations: [c]")

	_, err = New(nil, nil)
	assert.Error(t, err)
}

func TestDefaultCatalogHasEveryHandler(t *testing.T) {
	d, err := New(registry.Default(), handlers.All(nil, nil))
	require.NoError(t, err)

	ops := d.ListOperations()
	require.Len(t, ops, 25)
	assert.Equal(t, "query_nrql", ops[0].Name)
	assert.Equal(t, "list_workflows", ops[len(ops)-1].Name)
}

// nerdGraph answers every request with the next canned body and records the
// decoded request.
func nerdGraph(t *testing.T, bodies ...string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var mu sync.Mutex
	var requests []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testKey, r.Header.Get("Api-Key"))
		data, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(data, &req)

		mu.Lock()
		requests = append(requests, req)
		i := len(requests) - 1
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if i >= len(bodies) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, bodies[i])
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func realDispatcher(t *testing.T, url string) *Dispatcher {
	t.Helper()
	logger := zaptest.NewLogger(t)
	client := graphql.NewClient(url, auth.NewAPIKeyAuth(auth.HeaderAPIKey, testKey), graphql.WithLogger(logger))
	d, err := New(registry.Default(), handlers.All(client, logger),
		WithLogger(logger), WithDefaultAccountID("123456"))
	require.NoError(t, err)
	return d
}

func TestEndToEndCreateAlertPolicy(t *testing.T) {
	srv, requests := nerdGraph(t, `{"data":{"alertsPolicyCreate":{"id":"9","name":"P1","incidentPreference":"PER_POLICY"}}}`)
	d := realDispatcher(t, srv.URL)

	env := d.Call(context.Background(), "create_alert_policy", map[string]any{"name": "P1"})

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"id":"9","policy_id":"9","name":"P1","incident_preference":"PER_POLICY"}`, string(data))

	require.Len(t, *requests, 1)
	vars := (*requests)[0]["variables"].(map[string]any)
	assert.Equal(t, float64(123456), vars["accountId"])
	assert.Equal(t, map[string]any{"name": "P1", "incidentPreference": "PER_POLICY"}, vars["policy"])
}

func TestEndToEndListWorkflows(t *testing.T) {
	srv, _ := nerdGraph(t, `{"data":{"actor":{"account":{"aiWorkflows":{"workflows":{"entities":[],"nextCursor":null,"totalCount":0}}}}}}`)
	d := realDispatcher(t, srv.URL)

	env := d.Call(context.Background(), "list_workflows", nil)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"workflows":[],"total_count":0,"next_cursor":null}`, string(data))
}

func TestEndToEndProtocolError(t *testing.T) {
	srv, _ := nerdGraph(t, `{"data":null,"errors":[{"message":"Access denied"}]}`)
	d := realDispatcher(t, srv.URL)

	env := d.Call(context.Background(), "list_alert_policies", nil)
	assert.Equal(t, "listing alert policies: GraphQL errors: Access denied", env.ErrorMessage())
}

func TestEndToEndTransportError(t *testing.T) {
	srv, _ := nerdGraph(t)
	d := realDispatcher(t, srv.URL)

	env := d.Call(context.Background(), "create_dashboard", map[string]any{"name": "Ops"})
	assert.Contains(t, env.ErrorMessage(), "creating dashboard 'Ops': HTTP 500")
}
