package reactive

// EffectFunc is the body of an effect. Callbacks passed to onCleanup run
// before the next run and when the effect is disposed.
type EffectFunc func(onCleanup func(func()))

// Effect re-runs its body whenever a dependency changes.
type Effect struct {
	rt       *Runtime
	c        consumer
	fn       EffectFunc
	cleanups []func()
	queued   bool
	disposed bool
	runs     int
}

// Effect creates an effect owned by s and runs it once immediately.
// On a disposed scope the effect is created disposed and never runs.
func (s *Scope) Effect(fn EffectFunc) *Effect {
	e := &Effect{rt: s.rt, fn: fn}
	e.c.onDirty = e.markDirty
	if s.disposed {
		e.disposed = true
		return e
	}
	s.OnDispose(e.Dispose)
	e.run()
	return e
}

// Runs returns how many times the body has executed.
func (e *Effect) Runs() int {
	return e.runs
}

// Disposed reports whether the effect was disposed.
func (e *Effect) Disposed() bool {
	return e.disposed
}

// Dispose runs pending cleanups and drops all dependencies.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.runCleanups()
	e.c.detach()
}

func (e *Effect) markDirty() {
	if e.queued || e.disposed {
		return
	}
	e.queued = true
	e.rt.enqueue(e)
}

func (e *Effect) run() {
	e.runCleanups()
	e.rt.within(&e.c, func() { e.fn(e.onCleanup) })
	e.runs++
	if e.rt.effectHook != nil {
		e.rt.effectHook()
	}
}

func (e *Effect) onCleanup(fn func()) {
	if fn != nil {
		e.cleanups = append(e.cleanups, fn)
	}
}

func (e *Effect) runCleanups() {
	cleanups := e.cleanups
	e.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
