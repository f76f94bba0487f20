package control

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/formsignal/internal/ir"
)

// AddControl appends child to a group under key.
func (c *Control) AddControl(key string, child *Control) error {
	if c.kind != ir.KindGroup {
		return fmt.Errorf("add %q to %s: %w", key, c.kind, ErrWrongKind)
	}
	if _, exists := c.byKey[key]; exists {
		return fmt.Errorf("add %q: %w", key, ErrDuplicateKey)
	}
	if err := c.adopt(child); err != nil {
		return fmt.Errorf("add %q: %w", key, err)
	}
	c.keys = append(c.keys, key)
	c.byKey[key] = child
	c.Update()
	return nil
}

// RemoveControl detaches the child at key. The removed control keeps its
// state and may be added elsewhere.
func (c *Control) RemoveControl(key string) error {
	if c.kind != ir.KindGroup {
		return fmt.Errorf("remove %q from %s: %w", key, c.kind, ErrWrongKind)
	}
	child, ok := c.byKey[key]
	if !ok {
		return fmt.Errorf("remove %q: %w", key, ErrNotFound)
	}
	child.parent = nil
	delete(c.byKey, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	c.Update()
	return nil
}

// SetControl replaces the child at key, or adds it when key is new.
func (c *Control) SetControl(key string, child *Control) error {
	if c.kind != ir.KindGroup {
		return fmt.Errorf("set %q on %s: %w", key, c.kind, ErrWrongKind)
	}
	if err := c.adopt(child); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if old, ok := c.byKey[key]; ok {
		old.parent = nil
	} else {
		c.keys = append(c.keys, key)
	}
	c.byKey[key] = child
	c.Update()
	return nil
}

// Push appends child to a list.
func (c *Control) Push(child *Control) error {
	return c.Insert(len(c.items), child)
}

// Insert places child at index i of a list, shifting later items.
func (c *Control) Insert(i int, child *Control) error {
	if c.kind != ir.KindList {
		return fmt.Errorf("insert into %s: %w", c.kind, ErrWrongKind)
	}
	if i < 0 || i > len(c.items) {
		return fmt.Errorf("insert at %d of %d: %w", i, len(c.items), ErrNotFound)
	}
	if err := c.adopt(child); err != nil {
		return fmt.Errorf("insert at %d: %w", i, err)
	}
	c.items = slices.Insert(c.items, i, child)
	c.Update()
	return nil
}

// RemoveAt detaches the list item at index i.
func (c *Control) RemoveAt(i int) error {
	if c.kind != ir.KindList {
		return fmt.Errorf("remove from %s: %w", c.kind, ErrWrongKind)
	}
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("remove at %d of %d: %w", i, len(c.items), ErrNotFound)
	}
	c.items[i].parent = nil
	c.items = slices.Delete(c.items, i, i+1)
	c.Update()
	return nil
}

func (c *Control) adopt(child *Control) error {
	if child == nil {
		return fmt.Errorf("nil control: %w", ErrNotFound)
	}
	if child.parent != nil || child == c.Root() {
		return ErrAttached
	}
	child.parent = c
	return nil
}

// Find resolves a dotted path relative to c. Group segments are keys,
// list segments are decimal indices. The empty path returns c.
func (c *Control) Find(path string) (*Control, error) {
	if path == "" {
		return c, nil
	}
	cur := c
	for _, seg := range strings.Split(path, ".") {
		next, err := cur.child(seg)
		if err != nil {
			return nil, fmt.Errorf("find %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}

func (c *Control) child(seg string) (*Control, error) {
	switch c.kind {
	case ir.KindGroup:
		if child, ok := c.byKey[seg]; ok {
			return child, nil
		}
	case ir.KindList:
		i, err := strconv.Atoi(seg)
		if err == nil {
			if child := c.At(i); child != nil {
				return child, nil
			}
		}
	}
	return nil, fmt.Errorf("segment %q: %w", seg, ErrNotFound)
}
