package bridge

import (
	"log/slog"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/reactive"
)

// Handle exposes one node as reactive cells. Every accessor is a tracked
// read.
type Handle struct {
	rt     *reactive.Runtime
	scope  *reactive.Scope
	src    Source
	logger *slog.Logger

	value    *reactive.Signal[ir.Value]
	rawValue *reactive.Signal[ir.Value]
	status   *reactive.Signal[ir.Status]
	touched  *reactive.Signal[bool]
	dirty    *reactive.Signal[bool]
	errors   *reactive.Signal[ir.Errors]

	valueSlot   *slot
	statusSlot  *slot
	touchedSlot *slot
	dirtySlot   *slot
	errorsSlot  *slot

	valid     *reactive.Computed[bool]
	invalid   *reactive.Computed[bool]
	pending   *reactive.Computed[bool]
	disabled  *reactive.Computed[bool]
	enabled   *reactive.Computed[bool]
	untouched *reactive.Computed[bool]
	pristine  *reactive.Computed[bool]
	snapshot  *reactive.Computed[Snapshot]
}

// Cells are the read-only cells behind a Handle.
type Cells struct {
	Value    reactive.Reader[ir.Value]
	RawValue reactive.Reader[ir.Value]
	Status   reactive.Reader[ir.Status]
	Touched  reactive.Reader[bool]
	Dirty    reactive.Reader[bool]
	Errors   reactive.Reader[ir.Errors]
	Snapshot reactive.Reader[Snapshot]
}

// Bind projects the node held by src onto reactive cells owned by the
// configured scope.
func Bind(src Source, opts ...Option) (*Handle, error) {
	cfg, err := newConfig(src, opts)
	if err != nil {
		return nil, err
	}
	return bind(src, cfg), nil
}

func bind(src Source, cfg config) *Handle {
	rt := cfg.scope.Runtime()
	eq := cfg.equality
	h := &Handle{
		rt:     rt,
		scope:  cfg.scope,
		src:    src,
		logger: cfg.logger,
		value: reactive.NewSignal[ir.Value](rt, ir.Null{},
			reactive.WithEqual(equal(eq.Value, cfg.eager, ir.Equal))),
		rawValue: reactive.NewSignal[ir.Value](rt, ir.Null{},
			reactive.WithEqual(equal(eq.RawValue, cfg.eager, ir.Equal))),
		status: reactive.NewSignal(rt, ir.StatusUnknown,
			reactive.WithEqual(equal(eq.Status, cfg.eager, sameStatus))),
		touched: reactive.NewSignal(rt, false,
			reactive.WithEqual(equal(eq.Touched, cfg.eager, sameBool))),
		dirty: reactive.NewSignal(rt, false,
			reactive.WithEqual(equal(eq.Dirty, cfg.eager, sameBool))),
		errors: reactive.NewSignal[ir.Errors](rt, nil,
			reactive.WithEqual(equal(eq.Errors, cfg.eager, ir.ErrorsEqual))),
	}

	h.valueSlot = project(src, cfg, AxisValue, ir.EventValue, func(n ir.Node) {
		if n == nil {
			h.value.Set(ir.Null{})
			h.rawValue.Set(ir.Null{})
			return
		}
		h.value.Set(orNull(n.Value()))
		h.rawValue.Set(orNull(n.RawValue()))
	})
	h.statusSlot = project(src, cfg, AxisStatus, ir.EventStatus, func(n ir.Node) {
		if n == nil {
			h.status.Set(ir.StatusUnknown)
			return
		}
		h.status.Set(n.Status())
	})
	h.touchedSlot = project(src, cfg, AxisTouched, ir.EventTouched, func(n ir.Node) {
		h.touched.Set(n != nil && n.Touched())
	})
	h.dirtySlot = project(src, cfg, AxisDirty, ir.EventPristine, func(n ir.Node) {
		h.dirty.Set(n != nil && n.Dirty())
	})
	h.errorsSlot = project(src, cfg, AxisErrors, ir.EventValue|ir.EventStatus, func(n ir.Node) {
		if n == nil {
			h.errors.Set(nil)
			return
		}
		h.errors.Set(n.Errors())
	})

	h.valid = h.derive(func() bool { return h.status.Get() == ir.StatusValid })
	h.invalid = h.derive(func() bool { return h.status.Get() == ir.StatusInvalid })
	h.pending = h.derive(func() bool { return h.status.Get() == ir.StatusPending })
	h.disabled = h.derive(func() bool { return h.status.Get() == ir.StatusDisabled })
	// Negations of the base axes, so they read true for an absent node.
	h.enabled = h.derive(func() bool { return h.status.Get() != ir.StatusDisabled })
	h.untouched = h.derive(func() bool { return !h.touched.Get() })
	h.pristine = h.derive(func() bool { return !h.dirty.Get() })

	h.snapshot = reactive.NewComputed(rt, h.compose)
	cfg.scope.OnDispose(h.snapshot.Dispose)

	cfg.logger.Debug("bridge bound", "eager", cfg.eager)
	return h
}

func (h *Handle) derive(fn func() bool) *reactive.Computed[bool] {
	c := reactive.NewComputed(h.rt, fn)
	h.scope.OnDispose(c.Dispose)
	return c
}

// compose reads every axis cell; it opens no subscriptions of its own.
func (h *Handle) compose() Snapshot {
	return Snapshot{
		Value:     h.value.Get(),
		RawValue:  h.rawValue.Get(),
		Status:    h.status.Get(),
		Errors:    h.errors.Get(),
		Touched:   h.touched.Get(),
		Untouched: h.untouched.Get(),
		Dirty:     h.dirty.Get(),
		Pristine:  h.pristine.Get(),
		Valid:     h.valid.Get(),
		Invalid:   h.invalid.Get(),
		Pending:   h.pending.Get(),
		Disabled:  h.disabled.Get(),
		Enabled:   h.enabled.Get(),
		Subscriptions: SubscriptionSet{
			Value:   h.valueSlot.cell.Get(),
			Status:  h.statusSlot.cell.Get(),
			Touched: h.touchedSlot.cell.Get(),
			Dirty:   h.dirtySlot.cell.Get(),
			Errors:  h.errorsSlot.cell.Get(),
		},
	}
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}

// Value returns the node value, or Null when absent.
func (h *Handle) Value() ir.Value { return h.value.Get() }

// RawValue returns the value including disabled children.
func (h *Handle) RawValue() ir.Value { return h.rawValue.Get() }

// Status returns the status, or StatusUnknown when absent.
func (h *Handle) Status() ir.Status { return h.status.Get() }

// Touched reports whether the node has been touched.
func (h *Handle) Touched() bool { return h.touched.Get() }

// Untouched is the negation of Touched; true when absent.
func (h *Handle) Untouched() bool { return h.untouched.Get() }

// Dirty reports whether the node value has been changed by the user.
func (h *Handle) Dirty() bool { return h.dirty.Get() }

// Pristine is the negation of Dirty; true when absent.
func (h *Handle) Pristine() bool { return h.pristine.Get() }

// Valid reports status VALID.
func (h *Handle) Valid() bool { return h.valid.Get() }

// Invalid reports status INVALID.
func (h *Handle) Invalid() bool { return h.invalid.Get() }

// Pending reports status PENDING.
func (h *Handle) Pending() bool { return h.pending.Get() }

// Disabled reports status DISABLED.
func (h *Handle) Disabled() bool { return h.disabled.Get() }

// Enabled reports any status other than DISABLED; true when absent.
func (h *Handle) Enabled() bool { return h.enabled.Get() }

// Errors returns the node's errors, or nil.
func (h *Handle) Errors() ir.Errors { return h.errors.Get() }

// Snapshot returns the aggregate record. It is cached until an axis
// changes.
func (h *Handle) Snapshot() Snapshot { return h.snapshot.Get() }

// Subscriptions returns the live subscription of each axis.
func (h *Handle) Subscriptions() SubscriptionSet {
	return SubscriptionSet{
		Value:   h.valueSlot.cell.Get(),
		Status:  h.statusSlot.cell.Get(),
		Touched: h.touchedSlot.cell.Get(),
		Dirty:   h.dirtySlot.cell.Get(),
		Errors:  h.errorsSlot.cell.Get(),
	}
}

// Node returns the currently bound node, or nil when absent.
func (h *Handle) Node() ir.Node {
	return resolve(h.src, h.logger)
}

// Scope returns the scope that owns the bridge.
func (h *Handle) Scope() *reactive.Scope { return h.scope }

// Runtime returns the owning runtime.
func (h *Handle) Runtime() *reactive.Runtime { return h.rt }

// Cells returns the read-only cells behind the accessors.
func (h *Handle) Cells() Cells {
	return Cells{
		Value:    h.value.ReadOnly(),
		RawValue: h.rawValue.ReadOnly(),
		Status:   h.status.ReadOnly(),
		Touched:  h.touched.ReadOnly(),
		Dirty:    h.dirty.ReadOnly(),
		Errors:   h.errors.ReadOnly(),
		Snapshot: h.snapshot,
	}
}
