package bridge

import (
	"strconv"
	"strings"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/reactive"
)

// Deep is a bridge over a node and, recursively, over its children.
type Deep struct {
	*Handle
	children *tracker
}

// BindDeep binds src and every descendant of the node it holds. Child
// bridges share the options of the root and live in child scopes of it.
func BindDeep(src Source, opts ...Option) (*Deep, error) {
	cfg, err := newConfig(src, opts)
	if err != nil {
		return nil, err
	}
	return bindDeep(src, cfg), nil
}

func bindDeep(src Source, cfg config) *Deep {
	d := &Deep{Handle: bind(src, cfg)}
	d.children = newTracker(src, cfg)
	cfg.metrics.DeepCreated()
	cfg.scope.OnDispose(cfg.metrics.DeepReleased)
	return d
}

// Children returns the current children view and tracks it: consumers
// re-run when children are added or removed. Nil for absent nodes and
// leaves.
func (d *Deep) Children() *ChildrenView {
	if d == nil {
		return nil
	}
	return d.children.view.Get()
}

// ChildrenCell returns the cell behind Children.
func (d *Deep) ChildrenCell() reactive.Reader[*ChildrenView] {
	return d.children.view
}

// Tracked returns the tracked children with their bridges. The slice is
// the same as long as the set of child identities is unchanged.
func (d *Deep) Tracked() []TrackedChild {
	if d == nil {
		return nil
	}
	return d.children.tracked.Get()
}

// Live returns the bridge of the group child at key without tracking the
// children list. Nil when there is no such child.
func (d *Deep) Live(key string) *Deep {
	return d.peek().Get(key)
}

// LiveAt returns the bridge of the i-th child without tracking the
// children list.
func (d *Deep) LiveAt(i int) *Deep {
	return d.peek().At(i)
}

// Path walks a dotted path of live lookups. Segments under lists are
// indexes. An empty path returns d.
func (d *Deep) Path(path string) *Deep {
	if path == "" {
		return d
	}
	cur := d
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		view := cur.peek()
		if view.Kind() == ir.KindList {
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil
			}
			cur = view.At(i)
			continue
		}
		cur = view.Get(seg)
	}
	return cur
}

func (d *Deep) peek() *ChildrenView {
	if d == nil {
		return nil
	}
	return d.children.view.Peek()
}
