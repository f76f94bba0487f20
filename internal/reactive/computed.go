package reactive

import "fmt"

// Computed is a lazily evaluated, cached derivation. Its dependencies are
// whatever it read during its last evaluation.
type Computed[T any] struct {
	rt    *Runtime
	p     producer
	c     consumer
	fn    func() T
	equal EqualFunc[T]

	value       T
	initialized bool
	dirty       bool
	computing   bool
	disposed    bool
	err         error
}

// NewComputed creates a computed cell. fn runs on first read.
func NewComputed[T any](rt *Runtime, fn func() T, opts ...CellOption[T]) *Computed[T] {
	o := buildCellOptions(opts)
	c := &Computed[T]{rt: rt, fn: fn, equal: o.equal, dirty: true}
	c.p.refresh = c.refresh
	c.c.onDirty = c.markDirty
	return c
}

// Get brings the value up to date and records a dependency.
// Reading a computed from inside its own evaluation returns the previous
// value and sets Err.
func (c *Computed[T]) Get() T {
	if c.computing {
		c.err = &Error{
			Code:    ErrCodeCycleDetected,
			Message: fmt.Sprintf("computed %T read during its own evaluation", c.value),
		}
		c.rt.logger.Warn("computed cycle detected", "type", fmt.Sprintf("%T", c.value))
		return c.value
	}
	c.refresh()
	c.rt.track(&c.p)
	return c.value
}

// Peek returns the value without recording a dependency.
func (c *Computed[T]) Peek() T {
	return Untracked(c.rt, c.Get)
}

// Err returns the last cycle error, if any.
func (c *Computed[T]) Err() error {
	return c.err
}

// Runtime returns the owning runtime.
func (c *Computed[T]) Runtime() *Runtime {
	return c.rt
}

// Dispose drops all dependencies. A disposed computed keeps returning its
// last value.
func (c *Computed[T]) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.c.detach()
}

func (c *Computed[T]) markDirty() {
	if c.dirty {
		return
	}
	c.dirty = true
	c.p.notify()
}

func (c *Computed[T]) refresh() {
	if c.disposed || c.computing {
		return
	}
	if c.initialized && !c.dirty {
		return
	}
	if c.initialized && !c.c.stale() {
		c.dirty = false
		return
	}

	var next T
	c.computing = true
	func() {
		defer func() { c.computing = false }()
		c.rt.within(&c.c, func() { next = c.fn() })
	}()
	c.dirty = false

	if !c.initialized || !c.equal(c.value, next) {
		c.value = next
		c.p.version++
	}
	c.initialized = true
}
