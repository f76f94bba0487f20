package bridge

import (
	"log/slog"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/metrics"
	"github.com/roach88/formsignal/internal/reactive"
)

// Axis names an independently projected facet of a node.
type Axis string

const (
	AxisValue     Axis = "value"
	AxisStatus    Axis = "status"
	AxisTouched   Axis = "touched"
	AxisDirty     Axis = "dirty"
	AxisErrors    Axis = "errors"
	AxisStructure Axis = "structure"
)

// Equality overrides the per-axis equality used to suppress redundant
// notifications. Nil fields keep the default.
type Equality struct {
	Value    func(a, b ir.Value) bool
	RawValue func(a, b ir.Value) bool
	Status   func(a, b ir.Status) bool
	Touched  func(a, b bool) bool
	Dirty    func(a, b bool) bool
	Errors   func(a, b ir.Errors) bool
}

// Option configures Bind and BindDeep.
type Option func(*config)

type config struct {
	scope    *reactive.Scope
	eager    bool
	equality Equality
	logger   *slog.Logger
	metrics  *metrics.Bridge
}

// WithScope sets the scope that bounds the bridge lifetime. Without it,
// the ambient scope of Scope.Run is used.
func WithScope(s *reactive.Scope) Option {
	return func(c *config) {
		c.scope = s
	}
}

// WithEagerNotify makes every node event notify consumers, even when the
// projected value is unchanged.
func WithEagerNotify(eager bool) Option {
	return func(c *config) {
		c.eager = eager
	}
}

// WithEquality overrides per-axis equality. Overrides win over eager
// notification.
func WithEquality(eq Equality) Option {
	return func(c *config) {
		c.equality = eq
	}
}

// WithLogger sets the logger for bridge diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records subscriptions and structural changes.
func WithMetrics(m *metrics.Bridge) Option {
	return func(c *config) {
		c.metrics = m
	}
}

func newConfig(src Source, opts []Option) (config, error) {
	if src == nil {
		return config{}, &Error{Code: ErrCodeNilSource, Message: "bind needs a source cell"}
	}

	cfg := config{logger: src.Runtime().Logger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.scope == nil {
		cfg.scope = src.Runtime().CurrentScope()
	}
	if cfg.scope == nil {
		return config{}, ErrNoScope
	}
	if cfg.scope.Runtime() != src.Runtime() {
		return config{}, &Error{
			Code:    ErrCodeRuntimeMismatch,
			Message: "scope and source belong to different runtimes",
		}
	}
	return cfg, nil
}

// withScope returns a copy of c bound to s, for child bridges.
func (c config) withScope(s *reactive.Scope) config {
	c.scope = s
	return c
}

// equal picks the custom function, then never-equal for eager mode,
// then the memoized default.
func equal[T any](custom func(a, b T) bool, eager bool, memo reactive.EqualFunc[T]) reactive.EqualFunc[T] {
	switch {
	case custom != nil:
		return custom
	case eager:
		return reactive.NeverEqual[T]
	}
	return memo
}

func sameStatus(a, b ir.Status) bool { return a == b }

func sameBool(a, b bool) bool { return a == b }
