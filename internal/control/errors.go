package control

import "errors"

var (
	// ErrWrongKind is returned when an operation does not apply to the
	// control's kind, such as AddControl on a leaf.
	ErrWrongKind = errors.New("operation not supported for this control kind")

	// ErrDuplicateKey is returned by AddControl when the key exists.
	ErrDuplicateKey = errors.New("control key already exists")

	// ErrNotFound is returned when a key, index, or path does not resolve.
	ErrNotFound = errors.New("control not found")

	// ErrAttached is returned when adding a control that already has a
	// parent.
	ErrAttached = errors.New("control already has a parent")

	// ErrShape is returned when a value does not match the control shape.
	ErrShape = errors.New("value does not match control shape")
)
