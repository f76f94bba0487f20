package reactive

import "reflect"

// EqualFunc decides whether a new value is the same as the cached one.
// Returning true suppresses the change notification.
type EqualFunc[T any] func(a, b T) bool

// Identical compares with == when both values are comparable at run time
// and reports false otherwise. Pointers compare by identity; maps and
// slices always count as changed.
func Identical[T any](a, b T) bool {
	ai, bi := any(a), any(b)
	if ai == nil || bi == nil {
		return ai == nil && bi == nil
	}
	if !reflect.ValueOf(ai).Comparable() || !reflect.ValueOf(bi).Comparable() {
		return false
	}
	return ai == bi
}

// NeverEqual treats every write as a change.
func NeverEqual[T any](a, b T) bool {
	return false
}

// CellOption configures a Signal or Computed.
type CellOption[T any] func(*cellOptions[T])

type cellOptions[T any] struct {
	equal EqualFunc[T]
}

// WithEqual sets the equality function. A nil fn keeps the default.
func WithEqual[T any](fn EqualFunc[T]) CellOption[T] {
	return func(o *cellOptions[T]) {
		if fn != nil {
			o.equal = fn
		}
	}
}

func buildCellOptions[T any](opts []CellOption[T]) cellOptions[T] {
	o := cellOptions[T]{equal: Identical[T]}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
