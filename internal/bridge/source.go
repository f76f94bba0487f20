package bridge

import (
	"log/slog"
	"reflect"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/reactive"
)

// Node is the control-node contract the bridge consumes.
type Node = ir.Node

// Subscription is a node event subscription handle.
type Subscription = ir.Subscription

// Source is a reactive cell holding the node to bind, or nil when absent.
// Sources that also implement Lookup() (ir.Node, error), such as
// reactive.Input, are treated as absent while Lookup fails.
type Source = reactive.Reader[ir.Node]

type lookupSource interface {
	Lookup() (ir.Node, error)
}

// Static wraps a fixed node as a source.
func Static(rt *reactive.Runtime, n ir.Node) Source {
	return reactive.NewSignal(rt, n).ReadOnly()
}

// Absent returns a source that never holds a node.
func Absent(rt *reactive.Runtime) Source {
	return Static(rt, nil)
}

// resolve reads src, recording a dependency when called inside a tracking
// context. A failing Lookup or a typed nil resolves to nil.
func resolve(src Source, logger *slog.Logger) ir.Node {
	var n ir.Node
	if l, ok := src.(lookupSource); ok {
		v, err := l.Lookup()
		if err != nil {
			logger.Debug("source not ready, projecting defaults", "error", err)
			return nil
		}
		n = v
	} else {
		n = src.Get()
	}

	if n == nil {
		return nil
	}
	if v := reflect.ValueOf(n); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return n
}
