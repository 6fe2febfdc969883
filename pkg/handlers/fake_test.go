package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

const testAccount = "123456"

type recordedCall struct {
	query string
	vars  map[string]any
	nrql  string
}

type reply struct {
	body map[string]any
	err  error
}

// fakeTransport answers calls from a queue and records every request
type fakeTransport struct {
	mu      sync.Mutex
	replies []reply
	calls   []recordedCall
}

func newFake(replies ...reply) *fakeTransport {
	return &fakeTransport{replies: replies}
}

func (f *fakeTransport) next(c recordedCall) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if len(f.replies) == 0 {
		return nil, &errors.TransportError{StatusCode: 500, Body: "no reply queued"}
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.body, r.err
}

func (f *fakeTransport) Execute(_ context.Context, query string, variables map[string]any) (map[string]any, error) {
	return f.next(recordedCall{query: query, vars: variables})
}

func (f *fakeTransport) QueryNRQL(_ context.Context, _ string, nrql string) (map[string]any, error) {
	return f.next(recordedCall{nrql: nrql})
}

func ok(t *testing.T, body string) reply {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return reply{body: m}
}

func fail(err error) reply {
	return reply{err: err}
}

func nrqlRows(t *testing.T, rows string) reply {
	t.Helper()
	return ok(t, `{"data":{"actor":{"account":{"nrql":{"results":`+rows+`}}}}}`)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func testHandlers(t *testing.T, f *fakeTransport) map[string]Handler {
	return All(f, zaptest.NewLogger(t))
}
