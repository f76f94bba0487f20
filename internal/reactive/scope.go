package reactive

import "slices"

// Scope bounds the lifetime of effects and other resources. Disposing a
// scope disposes its children first, then runs its own cleanups in reverse
// registration order.
type Scope struct {
	rt       *Runtime
	parent   *Scope
	children []*Scope
	cleanups []func()
	disposed bool
}

// NewScope creates a root scope.
func (rt *Runtime) NewScope() *Scope {
	return &Scope{rt: rt}
}

// NewChild creates a scope disposed together with s.
func (s *Scope) NewChild() *Scope {
	child := &Scope{rt: s.rt, parent: s}
	if s.disposed {
		child.disposed = true
		return child
	}
	s.children = append(s.children, child)
	return child
}

// Runtime returns the owning runtime.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// Disposed reports whether Dispose has run.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// OnDispose registers fn to run on disposal. On an already disposed scope
// fn runs immediately.
func (s *Scope) OnDispose(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// Run makes s the ambient scope while fn executes.
func (s *Scope) Run(fn func()) {
	prev := s.rt.scope
	s.rt.scope = s
	defer func() { s.rt.scope = prev }()
	fn()
}

// Dispose releases everything owned by s. Safe to call twice.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].parent = nil
		children[i].Dispose()
	}

	cleanups := s.cleanups
	s.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	if s.parent != nil {
		if i := slices.Index(s.parent.children, s); i >= 0 {
			s.parent.children = slices.Delete(s.parent.children, i, i+1)
		}
		s.parent = nil
	}
}
