package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/transport/graphql"
)

// Config controls the retry policy
type Config struct {
	MaxAttempts       int     // total attempts including the first
	InitialBackoff    float64 // seconds
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultConfig returns the policy for retryAttempts retries after the first call.
func DefaultConfig(retryAttempts int) Config {
	return Config{
		MaxAttempts:       retryAttempts + 1,
		InitialBackoff:    0.5,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Second,
	}
}

// Transport wraps a graphql.Transport and repeats calls that failed with a
// retryable *errors.TransportError. Protocol and domain errors are returned
// on the first occurrence.
type Transport struct {
	Base   graphql.Transport
	Cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	jitter *rand.Rand // Localized jitter source
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a retry Transport
type Option func(*Transport)

// WithLogger sets the logger for retry notices
func WithLogger(logger *zap.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger.Named("retry")
		}
	}
}

// New creates a new retry transport
func New(base graphql.Transport, cfg Config, opts ...Option) *Transport {
	t := &Transport{
		Base:   base,
		Cfg:    cfg,
		logger: zap.NewNop(),
		jitter: rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute runs the query under the retry policy. Mutations are not
// idempotent and get a single attempt.
func (t *Transport) Execute(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	attempts := t.Cfg.MaxAttempts
	if IsMutation(query) {
		attempts = 1
	}
	return t.do(ctx, attempts, func() (map[string]any, error) {
		return t.Base.Execute(ctx, query, variables)
	})
}

// QueryNRQL runs the NRQL query under the retry policy
func (t *Transport) QueryNRQL(ctx context.Context, accountID, nrql string) (map[string]any, error) {
	return t.do(ctx, t.Cfg.MaxAttempts, func() (map[string]any, error) {
		return t.Base.QueryNRQL(ctx, accountID, nrql)
	})
}

// IsMutation reports whether a GraphQL document is a mutation operation
func IsMutation(query string) bool {
	fields := strings.Fields(query)
	return len(fields) > 0 && strings.HasPrefix(fields[0], "mutation")
}

func (t *Transport) do(ctx context.Context, attempts int, call func() (map[string]any, error)) (map[string]any, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := call()
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, err
		}

		// Don't wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		delay := t.backoff(attempt)
		t.logger.Debug("retrying request",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := t.sleep(ctx, delay); err != nil {
			return nil, lastErr
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// Retryable reports whether err is a TransportError the policy may repeat
func Retryable(err error) bool {
	var te *errors.TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.Retryable()
}

// backoff computes full jitter exponential backoff
func (t *Transport) backoff(attempt int) time.Duration {
	base := time.Duration(t.Cfg.InitialBackoff * float64(time.Second))

	maxDelay := time.Duration(float64(base) * math.Pow(t.Cfg.BackoffMultiplier, float64(attempt)))

	limit := t.Cfg.MaxBackoff
	if limit <= 0 {
		limit = 30 * time.Second
	}
	if maxDelay > limit {
		maxDelay = limit
	}

	t.mu.Lock()
	f := t.jitter.Float64()
	t.mu.Unlock()

	// Full jitter: random duration between 0 and max
	return time.Duration(f * float64(maxDelay))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
