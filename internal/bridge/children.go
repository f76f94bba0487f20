package bridge

import (
	"slices"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/reactive"
)

// TrackedChild pairs a child node with its cached deep bridge. Key is set
// for group children, Index for both kinds.
type TrackedChild struct {
	Key    string
	Index  int
	Node   ir.Node
	Bridge *Deep
}

type cached struct {
	deep  *Deep
	scope *reactive.Scope
}

// tracker detects changes to the set of children of the bound node and
// keeps one deep bridge per child identity.
//
// Pipeline: a structure projector ticks on every value or status event,
// controls re-reads the children untracked on each tick, identities
// collapses that to the child layout and only changes when it does,
// tracked reconciles the bridge cache against the new layout. Lists
// change on any reorder, groups when a key maps to another node.
type tracker struct {
	rt  *reactive.Runtime
	cfg config
	src Source

	tick       *reactive.Signal[struct{}]
	controls   *reactive.Computed[ir.Children]
	identities *reactive.Computed[layout]
	tracked    *reactive.Computed[[]TrackedChild]
	view       *reactive.Computed[*ChildrenView]

	owner  ir.Node
	cache  map[ir.Node]*cached
	passes int
}

func newTracker(src Source, cfg config) *tracker {
	rt := cfg.scope.Runtime()
	t := &tracker{
		rt:    rt,
		cfg:   cfg,
		src:   src,
		tick:  reactive.NewSignal(rt, struct{}{}, reactive.WithEqual[struct{}](reactive.NeverEqual[struct{}])),
		cache: make(map[ir.Node]*cached),
	}

	project(src, cfg, AxisStructure, ir.EventValue|ir.EventStatus, func(ir.Node) {
		t.tick.Set(struct{}{})
	})

	t.controls = reactive.NewComputed(rt, func() ir.Children {
		n := resolve(src, cfg.logger)
		t.tick.Get()
		if n == nil {
			return ir.Children{}
		}
		return reactive.Untracked(rt, n.Children)
	}, reactive.WithEqual[ir.Children](reactive.NeverEqual[ir.Children]))

	t.identities = reactive.NewComputed(rt, func() layout {
		kids := t.controls.Get()
		return layout{kind: kids.Kind, keys: kids.Keys, nodes: kids.Nodes()}
	}, reactive.WithEqual[layout](sameLayout))

	t.tracked = reactive.NewComputed(rt, func() []TrackedChild {
		t.identities.Get()
		owner := resolve(src, cfg.logger)
		return reactive.Untracked(rt, func() []TrackedChild {
			return t.reconcile(owner, t.controls.Get())
		})
	})

	t.view = reactive.NewComputed(rt, func() *ChildrenView {
		children := t.tracked.Get()
		owner := resolve(src, cfg.logger)
		if owner == nil || !owner.Kind().Composite() {
			return nil
		}
		return newChildrenView(owner.Kind(), children)
	})

	for _, c := range []interface{ Dispose() }{t.controls, t.identities, t.tracked, t.view} {
		cfg.scope.OnDispose(c.Dispose)
	}

	// Reconcile on every flush, so removed children release their
	// subscriptions even when nothing reads the children list.
	cfg.scope.Effect(func(func(func())) {
		t.tracked.Get()
	})
	return t
}

// layout is the child identity arrangement of a node. keys is parallel to
// nodes for groups and nil for lists.
type layout struct {
	kind  ir.Kind
	keys  []string
	nodes []ir.Node
}

// sameLayout reports whether a and b place the same nodes at the same
// positions. Group key order is ignored.
func sameLayout(a, b layout) bool {
	if a.kind != b.kind || len(a.nodes) != len(b.nodes) {
		return false
	}
	if a.kind != ir.KindGroup {
		return slices.Equal(a.nodes, b.nodes)
	}
	byKey := make(map[string]ir.Node, len(a.keys))
	for i, k := range a.keys {
		byKey[k] = a.nodes[i]
	}
	for i, k := range b.keys {
		n, ok := byKey[k]
		if !ok || n != b.nodes[i] {
			return false
		}
	}
	return true
}

// reconcile reuses cached bridges for surviving children, binds new ones
// and disposes the rest. The cache is dropped when the owner changes.
func (t *tracker) reconcile(owner ir.Node, kids ir.Children) []TrackedChild {
	if owner != t.owner {
		t.drop()
		t.owner = owner
	}
	if owner == nil || !owner.Kind().Composite() {
		return nil
	}

	out := make([]TrackedChild, 0, kids.Len())
	seen := make(map[ir.Node]bool, kids.Len())
	added := 0
	take := func(key string, i int, n ir.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		c, ok := t.cache[n]
		if !ok {
			scope := t.cfg.scope.NewChild()
			c = &cached{scope: scope, deep: bindDeep(Static(t.rt, n), t.cfg.withScope(scope))}
			t.cache[n] = c
			added++
		}
		out = append(out, TrackedChild{Key: key, Index: i, Node: n, Bridge: c.deep})
	}

	switch kids.Kind {
	case ir.KindGroup:
		for i, k := range kids.Keys {
			take(k, i, kids.ByKey[k])
		}
	case ir.KindList:
		for i, n := range kids.Items {
			take("", i, n)
		}
	}

	removed := 0
	for n, c := range t.cache {
		if !seen[n] {
			c.scope.Dispose()
			delete(t.cache, n)
			removed++
		}
	}

	if t.passes > 0 {
		t.cfg.metrics.StructureChanged()
		t.cfg.logger.Debug("children changed",
			"kind", owner.Kind().String(),
			"added", added,
			"removed", removed,
			"count", len(out))
	}
	t.passes++
	return out
}

func (t *tracker) drop() {
	for n, c := range t.cache {
		c.scope.Dispose()
		delete(t.cache, n)
	}
}

// ChildrenView is the children of a deep bridge at one point in time.
// A nil view stands for an absent node or a leaf and is safe to use.
type ChildrenView struct {
	kind  ir.Kind
	keys  []string
	byKey map[string]*Deep
	items []*Deep
}

func newChildrenView(kind ir.Kind, children []TrackedChild) *ChildrenView {
	v := &ChildrenView{kind: kind, items: make([]*Deep, 0, len(children))}
	if kind == ir.KindGroup {
		v.byKey = make(map[string]*Deep, len(children))
	}
	for _, c := range children {
		v.items = append(v.items, c.Bridge)
		if kind == ir.KindGroup {
			v.keys = append(v.keys, c.Key)
			v.byKey[c.Key] = c.Bridge
		}
	}
	return v
}

// Kind returns the composite kind, or KindLeaf for a nil view.
func (v *ChildrenView) Kind() ir.Kind {
	if v == nil {
		return ir.KindLeaf
	}
	return v.kind
}

// Len returns the number of children.
func (v *ChildrenView) Len() int {
	if v == nil {
		return 0
	}
	return len(v.items)
}

// Keys returns group keys in insertion order.
func (v *ChildrenView) Keys() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Get returns the bridge of the group child at key, or nil.
func (v *ChildrenView) Get(key string) *Deep {
	if v == nil {
		return nil
	}
	return v.byKey[key]
}

// At returns the bridge of the i-th child, or nil when out of range.
func (v *ChildrenView) At(i int) *Deep {
	if v == nil || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Items returns the child bridges in key or index order.
func (v *ChildrenView) Items() []*Deep {
	if v == nil {
		return nil
	}
	return append([]*Deep(nil), v.items...)
}
