package reactive

// Reader is a readable reactive cell. Get records a dependency when called
// inside a computed or effect.
type Reader[T any] interface {
	Get() T
	Runtime() *Runtime
}

// Signal is a writable cell.
type Signal[T any] struct {
	rt    *Runtime
	p     producer
	value T
	equal EqualFunc[T]
}

// NewSignal creates a writable cell holding initial.
func NewSignal[T any](rt *Runtime, initial T, opts ...CellOption[T]) *Signal[T] {
	o := buildCellOptions(opts)
	return &Signal[T]{rt: rt, value: initial, equal: o.equal}
}

// Get returns the current value and records a dependency.
func (s *Signal[T]) Get() T {
	s.rt.track(&s.p)
	return s.value
}

// Peek returns the current value without recording a dependency.
func (s *Signal[T]) Peek() T {
	return s.value
}

// Set writes v. Consumers are marked dirty unless the equality function
// reports v equal to the current value.
func (s *Signal[T]) Set(v T) {
	if s.equal(s.value, v) {
		return
	}
	s.value = v
	s.p.version++
	s.p.notify()
}

// Update writes fn(current).
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Runtime returns the owning runtime.
func (s *Signal[T]) Runtime() *Runtime {
	return s.rt
}

// ReadOnly returns a view of s without Set.
func (s *Signal[T]) ReadOnly() Reader[T] {
	return readOnly[T]{s}
}

type readOnly[T any] struct {
	s *Signal[T]
}

func (r readOnly[T]) Get() T            { return r.s.Get() }
func (r readOnly[T]) Runtime() *Runtime { return r.s.rt }

// Input is a cell that starts unset. Get returns the zero value until the
// first Set; Lookup reports ErrInputUnset instead.
type Input[T any] struct {
	s *Signal[inputSlot[T]]
}

type inputSlot[T any] struct {
	value T
	set   bool
}

// NewInput creates an unset input.
func NewInput[T any](rt *Runtime) *Input[T] {
	return &Input[T]{
		s: NewSignal(rt, inputSlot[T]{}, WithEqual(func(a, b inputSlot[T]) bool {
			return a.set == b.set && Identical(a.value, b.value)
		})),
	}
}

// Set writes v and marks the input as set.
func (i *Input[T]) Set(v T) {
	i.s.Set(inputSlot[T]{value: v, set: true})
}

// Get returns the value, or the zero value while unset.
func (i *Input[T]) Get() T {
	return i.s.Get().value
}

// Lookup returns the value, or ErrInputUnset while unset.
func (i *Input[T]) Lookup() (T, error) {
	slot := i.s.Get()
	if !slot.set {
		var zero T
		return zero, ErrInputUnset
	}
	return slot.value, nil
}

// Runtime returns the owning runtime.
func (i *Input[T]) Runtime() *Runtime {
	return i.s.rt
}
