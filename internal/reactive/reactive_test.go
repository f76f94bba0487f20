package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalGetSet(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)

	assert.Equal(t, 1, s.Get())
	s.Set(2)
	assert.Equal(t, 2, s.Get())
	s.Update(func(v int) int { return v * 10 })
	assert.Equal(t, 20, s.Peek())
}

func TestComputedIsLazyAndCached(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 2)
	calls := 0
	c := NewComputed(rt, func() int {
		calls++
		return s.Get() * 2
	})

	assert.Equal(t, 0, calls, "computed must not run before first read")
	assert.Equal(t, 4, c.Get())
	assert.Equal(t, 4, c.Get())
	assert.Equal(t, 1, calls)

	s.Set(3)
	assert.Equal(t, 1, calls, "write must not recompute eagerly")
	assert.Equal(t, 6, c.Get())
	assert.Equal(t, 2, calls)
}

func TestComputedEqualityStopsCascade(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)
	parity := NewComputed(rt, func() bool { return s.Get()%2 == 0 })
	downstream := 0
	label := NewComputed(rt, func() string {
		downstream++
		if parity.Get() {
			return "even"
		}
		return "odd"
	})

	assert.Equal(t, "odd", label.Get())
	s.Set(3)
	assert.Equal(t, "odd", label.Get())
	assert.Equal(t, 1, downstream, "unchanged parity must not re-run label")

	s.Set(4)
	assert.Equal(t, "even", label.Get())
	assert.Equal(t, 2, downstream)
}

func TestNeverEqualAlwaysPropagates(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, "x", WithEqual(NeverEqual[string]))
	calls := 0
	c := NewComputed(rt, func() string {
		calls++
		return s.Get()
	})

	c.Get()
	s.Set("x")
	c.Get()
	assert.Equal(t, 2, calls)
}

func TestIdenticalOnUncomparableValues(t *testing.T) {
	assert.True(t, Identical(1, 1))
	assert.False(t, Identical(map[string]int{}, map[string]int{}))

	var a, b any = []int{1}, []int{1}
	assert.False(t, Identical(a, b))

	p := &struct{ n int }{}
	assert.True(t, Identical(p, p))
	assert.False(t, Identical(p, &struct{ n int }{}))

	var n1, n2 any
	assert.True(t, Identical(n1, n2))
}

func TestDynamicDependencies(t *testing.T) {
	rt := NewRuntime()
	useA := NewSignal(rt, true)
	a := NewSignal(rt, "a")
	b := NewSignal(rt, "b")
	calls := 0
	c := NewComputed(rt, func() string {
		calls++
		if useA.Get() {
			return a.Get()
		}
		return b.Get()
	})

	assert.Equal(t, "a", c.Get())
	b.Set("b2")
	c.Get()
	assert.Equal(t, 1, calls, "b is not a dependency yet")

	useA.Set(false)
	assert.Equal(t, "b2", c.Get())
	a.Set("a2")
	c.Get()
	assert.Equal(t, 2, calls, "a was dropped as a dependency")
}

func TestEffectRunsImmediatelyAndOnFlush(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	s := NewSignal(rt, 1)
	var seen []int

	e := scope.Effect(func(func(func())) {
		seen = append(seen, s.Get())
	})
	assert.Equal(t, []int{1}, seen)

	s.Set(2)
	s.Set(3)
	assert.Equal(t, 1, rt.Pending())
	assert.Equal(t, []int{1}, seen, "effects wait for flush")

	require.NoError(t, rt.Flush())
	assert.Equal(t, []int{1, 3}, seen)
	assert.Equal(t, 2, e.Runs())
}

func TestEffectSkipsWhenComputedDependencyUnchanged(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	s := NewSignal(rt, 1)
	positive := NewComputed(rt, func() bool { return s.Get() > 0 })

	e := scope.Effect(func(func(func())) { positive.Get() })
	s.Set(5)
	require.NoError(t, rt.Flush())
	assert.Equal(t, 1, e.Runs())

	s.Set(-1)
	require.NoError(t, rt.Flush())
	assert.Equal(t, 2, e.Runs())
}

func TestEffectCleanupOrder(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	s := NewSignal(rt, 0)
	var log []string

	scope.Effect(func(onCleanup func(func())) {
		v := s.Get()
		log = append(log, "run")
		onCleanup(func() { log = append(log, "cleanup", string(rune('0'+v))) })
	})

	s.Set(1)
	require.NoError(t, rt.Flush())
	scope.Dispose()

	assert.Equal(t, []string{"run", "cleanup", "0", "run", "cleanup", "1"}, log)
}

func TestDisposedEffectNeverRuns(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	s := NewSignal(rt, 0)
	e := scope.Effect(func(func(func())) { s.Get() })

	s.Set(1)
	e.Dispose()
	require.NoError(t, rt.Flush())
	assert.Equal(t, 1, e.Runs())
	assert.True(t, e.Disposed())

	scope.Dispose()
	late := scope.Effect(func(func(func())) { t.Fatal("must not run") })
	assert.True(t, late.Disposed())
}

func TestScopeDisposesChildrenDepthFirst(t *testing.T) {
	rt := NewRuntime()
	root := rt.NewScope()
	child := root.NewChild()
	grandchild := child.NewChild()
	var order []string

	root.OnDispose(func() { order = append(order, "root") })
	child.OnDispose(func() { order = append(order, "child") })
	grandchild.OnDispose(func() { order = append(order, "grandchild") })

	root.Dispose()
	root.Dispose()

	assert.Equal(t, []string{"grandchild", "child", "root"}, order)
	assert.True(t, grandchild.Disposed())
}

func TestChildScopeDisposalDetachesFromParent(t *testing.T) {
	rt := NewRuntime()
	root := rt.NewScope()
	child := root.NewChild()
	calls := 0
	child.OnDispose(func() { calls++ })

	child.Dispose()
	root.Dispose()
	assert.Equal(t, 1, calls)
}

func TestScopeRunSetsAmbientScope(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()

	assert.Nil(t, rt.CurrentScope())
	scope.Run(func() {
		assert.Same(t, scope, rt.CurrentScope())
	})
	assert.Nil(t, rt.CurrentScope())
}

func TestUntrackedReadsAreNotDependencies(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	tracked := NewSignal(rt, 0)
	hidden := NewSignal(rt, 0)

	e := scope.Effect(func(func(func())) {
		tracked.Get()
		assert.False(t, Untracked(rt, func() bool {
			hidden.Get()
			return rt.Tracking()
		}))
	})

	hidden.Set(1)
	require.NoError(t, rt.Flush())
	assert.Equal(t, 1, e.Runs())

	tracked.Set(1)
	require.NoError(t, rt.Flush())
	assert.Equal(t, 2, e.Runs())
}

func TestBatchFlushesOnce(t *testing.T) {
	rt := NewRuntime()
	scope := rt.NewScope()
	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)
	var sums []int
	scope.Effect(func(func(func())) { sums = append(sums, a.Get()+b.Get()) })

	err := rt.Batch(func() {
		a.Set(1)
		require.NoError(t, rt.Batch(func() { b.Set(2) }))
		assert.Equal(t, []int{0}, sums, "inner batch must not flush")
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, sums)
}

func TestFlushLimit(t *testing.T) {
	rt := NewRuntime(WithMaxFlushPasses(5))
	scope := rt.NewScope()
	s := NewSignal(rt, 0)

	scope.Effect(func(func(func())) {
		s.Set(s.Get() + 1)
	})
	s.Set(100)

	err := rt.Flush()
	require.Error(t, err)
	assert.True(t, IsFlushLimitError(err))
	assert.Zero(t, rt.Pending())
}

func TestComputedCycleDetected(t *testing.T) {
	rt := NewRuntime()
	var self *Computed[int]
	self = NewComputed(rt, func() int {
		return self.Get() + 1
	})

	assert.Equal(t, 1, self.Get())
	require.Error(t, self.Err())
	assert.True(t, IsCycleError(self.Err()))
}

func TestComputedDispose(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)
	c := NewComputed(rt, func() int { return s.Get() })

	assert.Equal(t, 1, c.Get())
	c.Dispose()
	s.Set(2)
	assert.Equal(t, 1, c.Get(), "disposed computed keeps last value")
	assert.Empty(t, s.p.consumers)
}

func TestInputLookup(t *testing.T) {
	rt := NewRuntime()
	in := NewInput[string](rt)

	_, err := in.Lookup()
	require.Error(t, err)
	assert.True(t, IsInputUnset(err))
	assert.Equal(t, "", in.Get())

	in.Set("ready")
	v, err := in.Lookup()
	require.NoError(t, err)
	assert.Equal(t, "ready", v)
}

func TestInputSetToZeroValueNotifies(t *testing.T) {
	rt := NewRuntime()
	in := NewInput[int](rt)
	calls := 0
	c := NewComputed(rt, func() bool {
		calls++
		_, err := in.Lookup()
		return err == nil
	})

	assert.False(t, c.Get())
	in.Set(0)
	assert.True(t, c.Get())
	assert.Equal(t, 2, calls)
}

func TestEffectHook(t *testing.T) {
	runs := 0
	rt := NewRuntime(WithEffectHook(func() { runs++ }))
	scope := rt.NewScope()
	s := NewSignal(rt, 0)
	scope.Effect(func(func(func())) { s.Get() })

	s.Set(1)
	require.NoError(t, rt.Flush())
	assert.Equal(t, 2, runs)
}

func TestReadOnlyView(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 7)
	var r Reader[int] = s.ReadOnly()

	assert.Equal(t, 7, r.Get())
	assert.Same(t, rt, r.Runtime())
	_, writable := r.(*Signal[int])
	assert.False(t, writable)
}
