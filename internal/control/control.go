package control

import (
	"github.com/roach88/formsignal/internal/ir"
)

// Control is a node of a form tree.
type Control struct {
	kind   ir.Kind
	parent *Control

	// leaf state
	leaf    ir.Value
	initial ir.Value

	// composite state; keys preserve insertion order
	keys  []string
	byKey map[string]*Control
	items []*Control

	value  ir.Value
	raw    ir.Value
	status ir.Status
	errors ir.Errors

	disabled bool
	touched  bool
	dirty    bool
	pending  bool

	validators []Validator
	events     emitter
}

// Entry is a keyed child of a group.
type Entry struct {
	Key     string
	Control *Control
}

// E is a shorthand for Entry.
func E(key string, c *Control) Entry {
	return Entry{Key: key, Control: c}
}

// Option configures a control at construction.
type Option func(*Control)

// WithValidators attaches validators. They run on every update of the
// control while it is enabled.
func WithValidators(vs ...Validator) Option {
	return func(c *Control) {
		c.validators = append(c.validators, vs...)
	}
}

// Disabled creates the control disabled.
func Disabled() Option {
	return func(c *Control) {
		c.disabled = true
	}
}

// NewLeaf creates a leaf holding value. A nil value is stored as ir.Null.
func NewLeaf(value ir.Value, opts ...Option) *Control {
	if value == nil {
		value = ir.Null{}
	}
	c := &Control{kind: ir.KindLeaf, leaf: value, initial: value}
	return c.init(opts)
}

// NewGroup creates a keyed composite. Entries with nil controls or
// duplicate keys are skipped, as are controls that already have a parent.
func NewGroup(entries []Entry, opts ...Option) *Control {
	c := &Control{kind: ir.KindGroup, byKey: make(map[string]*Control, len(entries))}
	for _, e := range entries {
		if e.Control == nil || e.Control.parent != nil {
			continue
		}
		if _, exists := c.byKey[e.Key]; exists {
			continue
		}
		e.Control.parent = c
		c.keys = append(c.keys, e.Key)
		c.byKey[e.Key] = e.Control
	}
	return c.init(opts)
}

// NewList creates an ordered composite.
func NewList(items []*Control, opts ...Option) *Control {
	c := &Control{kind: ir.KindList}
	for _, item := range items {
		if item == nil || item.parent != nil {
			continue
		}
		item.parent = c
		c.items = append(c.items, item)
	}
	return c.init(opts)
}

func (c *Control) init(opts []Option) *Control {
	for _, opt := range opts {
		opt(c)
	}
	if c.disabled {
		for _, child := range c.childList() {
			child.setDisabledTree(true)
		}
	}
	c.refresh()
	return c
}

// Kind returns leaf, group, or list.
func (c *Control) Kind() ir.Kind { return c.kind }

// Value returns the value. Composite values exclude disabled children
// unless every child is disabled.
func (c *Control) Value() ir.Value { return c.value }

// RawValue returns the value including disabled children.
func (c *Control) RawValue() ir.Value { return c.raw }

// Status returns the validation status.
func (c *Control) Status() ir.Status { return c.status }

// Errors returns the control's own validation errors, or nil.
func (c *Control) Errors() ir.Errors { return c.errors }

// Parent returns the parent, or nil for a root or detached control.
func (c *Control) Parent() *Control { return c.parent }

// Root returns the top of the tree c belongs to.
func (c *Control) Root() *Control {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Touched reports whether c or any descendant was touched.
func (c *Control) Touched() bool {
	if c.touched {
		return true
	}
	for _, child := range c.childList() {
		if child.Touched() {
			return true
		}
	}
	return false
}

// Dirty reports whether c or any descendant was marked dirty.
func (c *Control) Dirty() bool {
	if c.dirty {
		return true
	}
	for _, child := range c.childList() {
		if child.Dirty() {
			return true
		}
	}
	return false
}

// Enabled reports whether the status is anything but DISABLED.
func (c *Control) Enabled() bool { return c.status != ir.StatusDisabled }

// Len returns the number of children.
func (c *Control) Len() int {
	if c.kind == ir.KindGroup {
		return len(c.keys)
	}
	return len(c.items)
}

// Keys returns the group keys in insertion order.
func (c *Control) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Get returns the child at key, or nil.
func (c *Control) Get(key string) *Control {
	return c.byKey[key]
}

// At returns the list item at i, or nil when out of range.
func (c *Control) At(i int) *Control {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Children implements ir.Node.
func (c *Control) Children() ir.Children {
	switch c.kind {
	case ir.KindGroup:
		byKey := make(map[string]ir.Node, len(c.keys))
		for _, k := range c.keys {
			byKey[k] = c.byKey[k]
		}
		return ir.Children{Kind: ir.KindGroup, Keys: c.Keys(), ByKey: byKey}
	case ir.KindList:
		items := make([]ir.Node, len(c.items))
		for i, item := range c.items {
			items[i] = item
		}
		return ir.Children{Kind: ir.KindList, Items: items}
	}
	return ir.Children{}
}

// Subscribe implements ir.Node. fn is called synchronously for every
// event matching mask on c, including events bubbling up from
// descendants.
func (c *Control) Subscribe(mask ir.EventMask, fn func(ir.Event)) ir.Subscription {
	return c.events.subscribe(mask, fn)
}

// Subscribers returns the number of open subscriptions on c.
func (c *Control) Subscribers() int {
	return c.events.count()
}

func (c *Control) childList() []*Control {
	switch c.kind {
	case ir.KindGroup:
		out := make([]*Control, len(c.keys))
		for i, k := range c.keys {
			out[i] = c.byKey[k]
		}
		return out
	case ir.KindList:
		return c.items
	}
	return nil
}

var _ ir.Node = (*Control)(nil)
