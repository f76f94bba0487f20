package bridge

import (
	"github.com/roach88/formsignal/internal/ir"
)

// Snapshot is the aggregate record of every axis of a bound node.
type Snapshot struct {
	Value    ir.Value
	RawValue ir.Value
	Status   ir.Status
	Errors   ir.Errors

	Touched   bool
	Untouched bool
	Dirty     bool
	Pristine  bool
	Valid     bool
	Invalid   bool
	Pending   bool
	Disabled  bool
	Enabled   bool

	Subscriptions SubscriptionSet
}

// SubscriptionSet holds the live subscription of each axis. Fields are
// nil while the source is absent.
type SubscriptionSet struct {
	Value   Subscription
	Status  Subscription
	Touched Subscription
	Dirty   Subscription
	Errors  Subscription
}

// Active returns how many subscriptions are open.
func (s SubscriptionSet) Active() int {
	n := 0
	for _, sub := range []Subscription{s.Value, s.Status, s.Touched, s.Dirty, s.Errors} {
		if sub != nil && !sub.Closed() {
			n++
		}
	}
	return n
}

// Object renders the snapshot without subscription handles, for traces
// and golden files.
func (s Snapshot) Object() ir.Object {
	value := s.Value
	if value == nil {
		value = ir.Null{}
	}
	raw := s.RawValue
	if raw == nil {
		raw = ir.Null{}
	}
	return ir.Object{
		"value":      value,
		"raw_value":  raw,
		"status":     ir.String(s.Status.String()),
		"errors":     s.Errors.Object(),
		"touched":    ir.Bool(s.Touched),
		"untouched":  ir.Bool(s.Untouched),
		"dirty":      ir.Bool(s.Dirty),
		"pristine":   ir.Bool(s.Pristine),
		"valid":      ir.Bool(s.Valid),
		"invalid":    ir.Bool(s.Invalid),
		"pending":    ir.Bool(s.Pending),
		"disabled":   ir.Bool(s.Disabled),
		"enabled":    ir.Bool(s.Enabled),
		"subscribed": ir.Int(s.Subscriptions.Active()),
	}
}
