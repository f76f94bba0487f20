package ir

// Node is the contract of a control node consumed by the bridge.
// Implementations must be comparable (pointer types): nodes are used as
// identity keys.
type Node interface {
	Kind() Kind
	Value() Value
	RawValue() Value
	Status() Status
	Touched() bool
	Dirty() bool
	Errors() Errors
	// Children returns the current children. Leaves return a zero Children.
	Children() Children
	// Subscribe registers fn for every event whose kind is in mask.
	// Events are delivered synchronously during the mutating call.
	Subscribe(mask EventMask, fn func(Event)) Subscription
}

// Subscription is a handle to a node event subscription.
type Subscription interface {
	Unsubscribe()
	Closed() bool
}

// Children is the current children of a composite node.
// Keyed composites fill Keys and ByKey; ordered composites fill Items.
type Children struct {
	Kind  Kind
	Keys  []string
	ByKey map[string]Node
	Items []Node
}

// Len returns the number of children.
func (c Children) Len() int {
	if c.Kind == KindGroup {
		return len(c.Keys)
	}
	return len(c.Items)
}

// Nodes returns the children in key or index order.
func (c Children) Nodes() []Node {
	switch c.Kind {
	case KindGroup:
		out := make([]Node, 0, len(c.Keys))
		for _, k := range c.Keys {
			out = append(out, c.ByKey[k])
		}
		return out
	case KindList:
		return append([]Node(nil), c.Items...)
	}
	return nil
}
