package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// scripted returns the queued errors in order, then succeeds.
type scripted struct {
	errs  []error
	calls int
}

func (s *scripted) next() (map[string]any, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{"data": map[string]any{"ok": true}}, nil
}

func (s *scripted) Execute(context.Context, string, map[string]any) (map[string]any, error) {
	return s.next()
}

func (s *scripted) QueryNRQL(context.Context, string, string) (map[string]any, error) {
	return s.next()
}

func newTestTransport(base *scripted, attempts int) (*Transport, *[]time.Duration) {
	var slept []time.Duration
	tr := New(base, DefaultConfig(attempts))
	tr.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return tr, &slept
}

func TestRetry_RecoversFromTransientFailures(t *testing.T) {
	base := &scripted{errs: []error{
		&errors.TransportError{StatusCode: 503},
		&errors.TransportError{Err: fmt.Errorf("connection reset")},
	}}
	tr, slept := newTestTransport(base, 3)

	body, err := tr.Execute(context.Background(), "{ x }", nil)
	require.NoError(t, err)
	assert.NotNil(t, body)
	assert.Equal(t, 3, base.calls)
	assert.Len(t, *slept, 2)
}

func TestRetry_NeverRepeatsProtocolErrors(t *testing.T) {
	base := &scripted{errs: []error{&errors.ProtocolError{Errors: []map[string]any{{"message": "bad field"}}}}}
	tr, slept := newTestTransport(base, 5)

	_, err := tr.QueryNRQL(context.Background(), "1234567", "SELECT 1 FROM Transaction")
	assert.True(t, errors.Is(err, errors.ErrProtocol))
	assert.Equal(t, 1, base.calls)
	assert.Empty(t, *slept)
}

func TestRetry_NeverRepeatsClientErrors(t *testing.T) {
	base := &scripted{errs: []error{&errors.TransportError{StatusCode: 401, Body: "bad key"}}}
	tr, _ := newTestTransport(base, 5)

	_, err := tr.Execute(context.Background(), "{ x }", nil)
	assert.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	base := &scripted{errs: []error{
		&errors.TransportError{StatusCode: 500},
		&errors.TransportError{StatusCode: 500},
		&errors.TransportError{StatusCode: 500},
	}}
	tr, slept := newTestTransport(base, 2)

	_, err := tr.Execute(context.Background(), "{ x }", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.True(t, errors.Is(err, errors.ErrTransport))
	assert.Equal(t, 3, base.calls)
	assert.Len(t, *slept, 2)
}

func TestRetry_ZeroAttemptsCallsOnce(t *testing.T) {
	base := &scripted{errs: []error{&errors.TransportError{StatusCode: 500}}}
	tr, _ := newTestTransport(base, 0)

	_, err := tr.Execute(context.Background(), "{ x }", nil)
	var te *errors.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, 1, base.calls)
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	base := &scripted{errs: []error{
		&errors.TransportError{StatusCode: 500},
		&errors.TransportError{StatusCode: 500},
	}}
	tr := New(base, DefaultConfig(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Execute(ctx, "{ x }", nil)
	assert.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestBackoff_CappedFullJitter(t *testing.T) {
	tr := New(&scripted{}, Config{MaxAttempts: 10, InitialBackoff: 1, BackoffMultiplier: 2, MaxBackoff: 4 * time.Second})

	for attempt := 0; attempt < 8; attempt++ {
		d := tr.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestRetry_MutationsGetOneAttempt(t *testing.T) {
	base := &scripted{errs: []error{&errors.TransportError{StatusCode: 503}}}
	tr, slept := newTestTransport(base, 3)

	_, err := tr.Execute(context.Background(), "mutation($accountId: Int!) { alertsPolicyCreate }", nil)
	var te *errors.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 503, te.StatusCode)
	assert.Equal(t, 1, base.calls)
	assert.Empty(t, *slept)
}

func TestIsMutation(t *testing.T) {
	tests := map[string]bool{
		"mutation { dashboardCreate }":           true,
		"\n  mutation($guid: EntityGuid!) { x }": true,
		"mutation{ x }":                          true,
		"query($accountId: Int!) { actor }":      false,
		"{ actor { user { name } } }":            false,
		"":                                       false,
		"query mutationLog { actor }":            false,
	}
	for query, want := range tests {
		assert.Equal(t, want, IsMutation(query), query)
	}
}
