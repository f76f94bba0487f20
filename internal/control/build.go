package control

import (
	"fmt"

	"github.com/roach88/formsignal/internal/ir"
)

// Build constructs a control tree from a compiled spec.
func Build(spec ir.ControlSpec) (*Control, error) {
	var opts []Option
	for _, vs := range spec.Validators {
		v, err := FromSpec(vs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithValidators(v))
	}
	if spec.Disabled {
		opts = append(opts, Disabled())
	}

	switch spec.Kind {
	case ir.KindGroup:
		entries := make([]Entry, 0, len(spec.Keys))
		for _, k := range spec.Keys {
			child, err := Build(spec.Controls[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			entries = append(entries, E(k, child))
		}
		return NewGroup(entries, opts...), nil
	case ir.KindList:
		items := make([]*Control, 0, len(spec.Items))
		for i, is := range spec.Items {
			item, err := Build(is)
			if err != nil {
				return nil, fmt.Errorf("%d: %w", i, err)
			}
			items = append(items, item)
		}
		return NewList(items, opts...), nil
	}
	return NewLeaf(spec.Value, opts...), nil
}
