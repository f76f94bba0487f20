package control

import (
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// refresh recomputes value, errors, and status of c from its own state
// and its children. It emits nothing.
func (c *Control) refresh() {
	c.value, c.raw = c.aggregate()
	if c.allDisabled() {
		c.errors = nil
	} else {
		c.errors = c.validate()
	}
	c.status = c.computeStatus()
}

func (c *Control) aggregate() (value, raw ir.Value) {
	switch c.kind {
	case ir.KindGroup:
		includeAll := c.allDisabled()
		v := make(ir.Object, len(c.keys))
		r := make(ir.Object, len(c.keys))
		for _, k := range c.keys {
			child := c.byKey[k]
			r[k] = child.raw
			if includeAll || child.Enabled() {
				v[k] = child.value
			}
		}
		return v, r
	case ir.KindList:
		includeAll := c.allDisabled()
		v := make(ir.List, 0, len(c.items))
		r := make(ir.List, 0, len(c.items))
		for _, item := range c.items {
			r = append(r, item.raw)
			if includeAll || item.Enabled() {
				v = append(v, item.value)
			}
		}
		return v, r
	}
	return c.leaf, c.leaf
}

func (c *Control) validate() ir.Errors {
	var errs ir.Errors
	for _, v := range c.validators {
		errs = errs.Merge(v(c.value))
	}
	return errs
}

// allDisabled reports whether c counts as disabled: it was disabled
// itself, or it is a non-empty composite whose children are all disabled.
func (c *Control) allDisabled() bool {
	if c.disabled {
		return true
	}
	children := c.childList()
	if len(children) == 0 {
		return false
	}
	for _, child := range children {
		if child.status != ir.StatusDisabled {
			return false
		}
	}
	return true
}

func (c *Control) computeStatus() ir.Status {
	if c.allDisabled() {
		return ir.StatusDisabled
	}
	if len(c.errors) > 0 || c.anyChild(ir.StatusInvalid) {
		return ir.StatusInvalid
	}
	if c.pending || c.anyChild(ir.StatusPending) {
		return ir.StatusPending
	}
	return ir.StatusValid
}

func (c *Control) anyChild(status ir.Status) bool {
	for _, child := range c.childList() {
		if child.status == status {
			return true
		}
	}
	return false
}

func (c *Control) emit(kinds ...ir.EventKind) {
	for _, k := range kinds {
		c.events.emit(ir.Event{Kind: k, Source: c})
	}
}

// bubble refreshes every ancestor, nearest first, emitting kinds on each.
func (c *Control) bubble(kinds ...ir.EventKind) {
	for p := c.parent; p != nil; p = p.parent {
		p.refresh()
		p.emit(kinds...)
	}
}

// bubbleStatus recomputes only the status of ancestors.
func (c *Control) bubbleStatus() {
	for p := c.parent; p != nil; p = p.parent {
		p.status = p.computeStatus()
		p.emit(ir.EventStatus)
	}
}

// Update recomputes c and its ancestors and emits value and status
// events on each.
func (c *Control) Update() {
	c.refresh()
	c.emit(ir.EventValue, ir.EventStatus)
	c.bubble(ir.EventValue, ir.EventStatus)
}

// SetValue replaces the value. Groups require an ir.Object holding
// exactly their keys; lists require an ir.List of their length.
func (c *Control) SetValue(v ir.Value) error {
	if err := c.checkShape(v, true); err != nil {
		return err
	}
	c.assign(v)
	c.bubble(ir.EventValue, ir.EventStatus)
	return nil
}

// Patch updates only the keys or indices present in v and ignores the
// rest.
func (c *Control) Patch(v ir.Value) error {
	if err := c.checkShape(v, false); err != nil {
		return err
	}
	c.assign(v)
	c.bubble(ir.EventValue, ir.EventStatus)
	return nil
}

func (c *Control) checkShape(v ir.Value, strict bool) error {
	switch c.kind {
	case ir.KindGroup:
		obj, ok := v.(ir.Object)
		if !ok {
			return fmt.Errorf("group expects an object, got %T: %w", v, ErrShape)
		}
		for k, cv := range obj {
			child, ok := c.byKey[k]
			if !ok {
				if strict {
					return fmt.Errorf("unknown key %q: %w", k, ErrShape)
				}
				continue
			}
			if err := child.checkShape(cv, strict); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		if strict {
			for _, k := range c.keys {
				if _, ok := obj[k]; !ok {
					return fmt.Errorf("missing key %q: %w", k, ErrShape)
				}
			}
		}
	case ir.KindList:
		l, ok := v.(ir.List)
		if !ok {
			return fmt.Errorf("list expects a list, got %T: %w", v, ErrShape)
		}
		if strict && len(l) != len(c.items) {
			return fmt.Errorf("list has %d items, value has %d: %w", len(c.items), len(l), ErrShape)
		}
		for i, iv := range l {
			if i >= len(c.items) {
				break
			}
			if err := c.items[i].checkShape(iv, strict); err != nil {
				return fmt.Errorf("%d: %w", i, err)
			}
		}
	}
	return nil
}

// assign writes v into c and its descendants, emitting on each. Shape
// has already been checked.
func (c *Control) assign(v ir.Value) {
	switch c.kind {
	case ir.KindGroup:
		obj := v.(ir.Object)
		for _, k := range c.keys {
			if cv, ok := obj[k]; ok {
				c.byKey[k].assign(cv)
			}
		}
	case ir.KindList:
		l := v.(ir.List)
		for i, iv := range l {
			if i < len(c.items) {
				c.items[i].assign(iv)
			}
		}
	default:
		if v == nil {
			v = ir.Null{}
		}
		c.leaf = v
	}
	c.refresh()
	c.emit(ir.EventValue, ir.EventStatus)
}

// Reset restores initial leaf values and clears dirty and touched flags
// throughout the subtree.
func (c *Control) Reset() {
	c.reset()
	c.bubble(ir.EventValue, ir.EventStatus, ir.EventTouched, ir.EventPristine)
}

func (c *Control) reset() {
	for _, child := range c.childList() {
		child.reset()
	}
	if c.kind == ir.KindLeaf {
		c.leaf = c.initial
	}
	c.touched = false
	c.dirty = false
	c.refresh()
	c.emit(ir.EventValue, ir.EventStatus, ir.EventTouched, ir.EventPristine)
}

// MarkTouched marks c touched and notifies c and its ancestors.
func (c *Control) MarkTouched() {
	c.touched = true
	c.emit(ir.EventTouched)
	c.bubble(ir.EventTouched)
}

// MarkUntouched clears touched on c and all descendants.
func (c *Control) MarkUntouched() {
	c.walk(func(n *Control) {
		n.touched = false
		n.emit(ir.EventTouched)
	})
	c.bubble(ir.EventTouched)
}

// MarkDirty marks c dirty and notifies c and its ancestors.
func (c *Control) MarkDirty() {
	c.dirty = true
	c.emit(ir.EventPristine)
	c.bubble(ir.EventPristine)
}

// MarkPristine clears dirty on c and all descendants.
func (c *Control) MarkPristine() {
	c.walk(func(n *Control) {
		n.dirty = false
		n.emit(ir.EventPristine)
	})
	c.bubble(ir.EventPristine)
}

// Disable disables c and all descendants.
func (c *Control) Disable() {
	c.setDisabledTree(true)
	c.bubble(ir.EventValue, ir.EventStatus)
}

// Enable enables c and all descendants.
func (c *Control) Enable() {
	c.setDisabledTree(false)
	c.bubble(ir.EventValue, ir.EventStatus)
}

// setDisabledTree updates descendants bottom-up so each composite sees
// its children's final status.
func (c *Control) setDisabledTree(disabled bool) {
	for _, child := range c.childList() {
		child.setDisabledTree(disabled)
	}
	c.disabled = disabled
	c.refresh()
	c.emit(ir.EventValue, ir.EventStatus)
}

// SetPending sets the pending flag, usually while an external check runs.
func (c *Control) SetPending(pending bool) {
	c.pending = pending
	c.status = c.computeStatus()
	c.emit(ir.EventStatus)
	c.bubbleStatus()
}

// SetErrors replaces c's errors until the next value update. Ancestors
// recompute their status.
func (c *Control) SetErrors(errs ir.Errors) {
	if len(errs) == 0 {
		errs = nil
	}
	c.errors = errs
	c.status = c.computeStatus()
	c.emit(ir.EventStatus)
	c.bubbleStatus()
}

// walk visits c and then its descendants, depth-first.
func (c *Control) walk(fn func(*Control)) {
	fn(c)
	for _, child := range c.childList() {
		child.walk(fn)
	}
}
