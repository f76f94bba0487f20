package reactive

import (
	"fmt"
	"log/slog"
)

// DefaultMaxFlushPasses bounds how many times Flush drains the effect
// queue before giving up on a runaway effect loop.
const DefaultMaxFlushPasses = 1000

// Runtime owns the dependency graph, the effect queue, and the ambient
// tracking and scope context.
type Runtime struct {
	observer *consumer
	scope    *Scope

	queue      []*Effect
	flushing   bool
	batchDepth int

	maxPasses  int
	logger     *slog.Logger
	effectHook func()
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithMaxFlushPasses sets the flush pass limit. Values below 1 keep the
// default.
func WithMaxFlushPasses(n int) RuntimeOption {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxPasses = n
		}
	}
}

// WithLogger sets the logger used for runtime diagnostics.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithEffectHook registers fn to be called after every effect run.
func WithEffectHook(fn func()) RuntimeOption {
	return func(rt *Runtime) {
		rt.effectHook = fn
	}
}

// NewRuntime creates a runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		maxPasses: DefaultMaxFlushPasses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// CurrentScope returns the ambient scope set by Scope.Run, or nil.
func (rt *Runtime) CurrentScope() *Scope {
	return rt.scope
}

// Tracking reports whether reads are currently recorded as dependencies.
func (rt *Runtime) Tracking() bool {
	return rt.observer != nil
}

// Pending returns the number of queued effects.
func (rt *Runtime) Pending() int {
	return len(rt.queue)
}

// Untracked runs fn without recording dependencies.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.observer
	rt.observer = nil
	defer func() { rt.observer = prev }()
	fn()
}

// Untracked runs fn without recording dependencies and returns its result.
func Untracked[T any](rt *Runtime, fn func() T) T {
	var out T
	rt.Untracked(func() { out = fn() })
	return out
}

// Batch runs fn and then flushes. Nested batches flush once, when the
// outermost batch returns.
func (rt *Runtime) Batch(fn func()) error {
	rt.batchDepth++
	func() {
		defer func() { rt.batchDepth-- }()
		fn()
	}()
	if rt.batchDepth > 0 {
		return nil
	}
	return rt.Flush()
}

// Flush re-runs queued effects until the queue is empty.
//
// Effects queued while flushing are picked up in the next pass. A nested
// call from inside an effect returns immediately. Returns an Error with
// ErrCodeFlushLimit if the queue is still non-empty after the configured
// number of passes; the remaining effects are dropped from the queue and
// stay dirty until their dependencies change again.
func (rt *Runtime) Flush() error {
	if rt.flushing {
		return nil
	}
	rt.flushing = true
	defer func() { rt.flushing = false }()

	for pass := 0; len(rt.queue) > 0; pass++ {
		if pass >= rt.maxPasses {
			dropped := len(rt.queue)
			for _, e := range rt.queue {
				e.queued = false
			}
			rt.queue = nil
			rt.logger.Warn("flush limit reached",
				"max_passes", rt.maxPasses,
				"dropped_effects", dropped)
			return &Error{
				Code:    ErrCodeFlushLimit,
				Message: fmt.Sprintf("effects still pending after %d passes", rt.maxPasses),
				Details: map[string]string{"dropped_effects": fmt.Sprint(dropped)},
			}
		}

		batch := rt.queue
		rt.queue = nil
		for _, e := range batch {
			e.queued = false
			if e.disposed {
				continue
			}
			if e.c.stale() {
				e.run()
			}
		}
	}
	return nil
}

func (rt *Runtime) enqueue(e *Effect) {
	rt.queue = append(rt.queue, e)
}

// track records p as a dependency of the current observer.
func (rt *Runtime) track(p *producer) {
	if rt.observer != nil {
		rt.observer.record(p)
	}
}

// within runs fn with c as the observer and installs the collected deps.
func (rt *Runtime) within(c *consumer, fn func()) {
	prev := rt.observer
	rt.observer = c
	c.collect = nil
	defer func() {
		rt.observer = prev
		c.swap()
	}()
	fn()
}
