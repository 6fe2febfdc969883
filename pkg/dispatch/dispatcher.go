// Package dispatch routes named operations to their handlers and turns every
// outcome, including handler panics, into a response envelope.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/args"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
	"github.com/saturnines/newrelic-mcp/pkg/handlers"
	"github.com/saturnines/newrelic-mcp/pkg/registry"
	"github.com/saturnines/newrelic-mcp/pkg/response"
	"github.com/saturnines/newrelic-mcp/pkg/validate"
)

// ErrNoAccountID is the message returned when neither the call nor the
// configuration names an account.
const ErrNoAccountID = "Account ID not provided"

// UnknownTool is the tool label reported to CallObserver for names that have
// no handler, keeping observer labels bounded by the catalog.
const UnknownTool = "unknown"

// CallObserver receives the outcome of every dispatched call
type CallObserver interface {
	ObserveCall(tool, outcome string, elapsed time.Duration)
}

// Outcome labels passed to CallObserver
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomePanic   = "panic"
)

// Dispatcher is read-only after construction and safe for concurrent use.
type Dispatcher struct {
	registry         *registry.Registry
	handlers         map[string]handlers.Handler
	defaultAccountID string
	logger           *zap.Logger
	observer         CallObserver
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger.Named("dispatch")
		}
	}
}

// WithDefaultAccountID sets the account used by Call when arguments carry none
func WithDefaultAccountID(accountID string) Option {
	return func(d *Dispatcher) {
		d.defaultAccountID = strings.TrimSpace(accountID)
	}
}

// WithObserver reports every call outcome to o
func WithObserver(o CallObserver) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// New builds a Dispatcher. Every registered descriptor needs a handler and
// every handler needs a descriptor.
func New(reg *registry.Registry, hs map[string]handlers.Handler, opts ...Option) (*Dispatcher, error) {
	if reg == nil {
		return nil, errors.WrapError(fmt.Errorf("registry cannot be nil"), errors.ErrConfiguration, "create dispatcher")
	}

	var missing, orphaned []string
	for _, name := range reg.Names() {
		if hs[name] == nil {
			missing = append(missing, name)
		}
	}
	for name := range hs {
		if _, ok := reg.Get(name); !ok {
			orphaned = append(orphaned, name)
		}
	}
	sort.Strings(orphaned)
	if len(missing) > 0 || len(orphaned) > 0 {
		return nil, errors.WrapError(
			fmt.Errorf("operations without handlers: %v; handlers without operations: %v", missing, orphaned),
			errors.ErrConfiguration,
			"create dispatcher",
		)
	}

	d := &Dispatcher{
		registry: reg,
		handlers: make(map[string]handlers.Handler, len(hs)),
		logger:   zap.NewNop(),
	}
	for name, h := range hs {
		d.handlers[name] = h
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the operation catalog
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// ListOperations returns every descriptor in registration order
func (d *Dispatcher) ListOperations() []registry.Descriptor {
	return d.registry.List()
}

// DefaultAccountID returns the configured fallback account
func (d *Dispatcher) DefaultAccountID() string {
	return d.defaultAccountID
}

// Call dispatches with the configured default account
func (d *Dispatcher) Call(ctx context.Context, name string, arguments map[string]any) response.Envelope {
	return d.Dispatch(ctx, name, arguments, d.defaultAccountID)
}

// Dispatch runs operation name. The account comes from arguments.account_id
// when present, else defaultAccountID. It never panics and never returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, arguments map[string]any, defaultAccountID string) (env response.Envelope) {
	start := time.Now()
	callID := uuid.NewString()
	logger := d.logger.With(zap.String("call_id", callID), zap.String("tool", name))
	outcome := outcomeError

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch panicked", zap.Any("panic", r), zap.Stack("stack"))
			env = response.Errorf("Error executing %s: %v", name, r)
			outcome = outcomePanic
		}
		elapsed := time.Since(start)
		if d.observer != nil {
			d.observer.ObserveCall(d.toolLabel(name), outcome, elapsed)
		}
		logger.Debug("call finished", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed))
	}()

	a := args.Args(validate.Sanitize(arguments))

	accountID := accountFrom(a, defaultAccountID)
	if accountID == "" {
		logger.Warn("no account id")
		return response.Error(ErrNoAccountID)
	}
	if _, err := validate.AccountID(accountID); err != nil {
		logger.Warn("invalid account id", zap.Error(err))
		return response.FromError("", err)
	}

	h, ok := d.handlers[name]
	if !ok {
		logger.Warn("unknown tool")
		return response.Errorf("Unknown tool: %s", name)
	}

	logger.Debug("calling handler", zap.String("account_id", accountID))
	env, panicked := d.invoke(ctx, logger, h, name, a, accountID)
	switch {
	case panicked:
		outcome = outcomePanic
	case !env.IsError():
		outcome = outcomeSuccess
	}
	return env
}

func (d *Dispatcher) invoke(
	ctx context.Context,
	logger *zap.Logger,
	h handlers.Handler,
	name string,
	a args.Args,
	accountID string,
) (env response.Envelope, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			env = response.Errorf("Error executing %s: %v", name, r)
			panicked = true
		}
	}()

	env = h.Handle(ctx, a, accountID)
	if env == nil {
		return response.Errorf("Error executing %s: handler returned no result", name), false
	}
	if env.IsError() {
		logger.Info("call failed", zap.String("error", env.ErrorMessage()))
	}
	return env, false
}

func (d *Dispatcher) toolLabel(name string) string {
	if _, ok := d.handlers[name]; ok {
		return name
	}
	return UnknownTool
}

func accountFrom(a args.Args, fallback string) string {
	if a.Has("account_id") {
		if s, err := args.ToString(a["account_id"]); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(fallback)
}
