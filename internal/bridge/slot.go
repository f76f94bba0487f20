package bridge

import (
	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/metrics"
	"github.com/roach88/formsignal/internal/reactive"
)

// slot holds the single live subscription of one axis. The handle is
// kept in a cell so snapshots can observe it.
type slot struct {
	axis    Axis
	cell    *reactive.Signal[ir.Subscription]
	metrics *metrics.Bridge
}

func newSlot(rt *reactive.Runtime, axis Axis, m *metrics.Bridge) *slot {
	return &slot{
		axis:    axis,
		cell:    reactive.NewSignal[ir.Subscription](rt, nil),
		metrics: m,
	}
}

// attach stores sub. The previous subscription must already be released.
func (s *slot) attach(sub ir.Subscription) {
	s.cell.Set(sub)
	s.metrics.Subscribed(string(s.axis))
}

// release unsubscribes the current subscription, if any.
func (s *slot) release() {
	sub := s.cell.Peek()
	if sub == nil {
		return
	}
	sub.Unsubscribe()
	s.cell.Set(nil)
	s.metrics.Unsubscribed(string(s.axis))
}
