package control

import (
	"slices"

	"github.com/roach88/formsignal/internal/ir"
)

// emitter delivers events to subscribers in registration order.
type emitter struct {
	nextID uint64
	subs   []*subscription
}

type subscription struct {
	id      uint64
	mask    ir.EventMask
	fn      func(ir.Event)
	emitter *emitter
	closed  bool
}

// Unsubscribe removes the subscription. Safe to call twice.
func (s *subscription) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	s.emitter.remove(s.id)
}

// Closed reports whether Unsubscribe has been called.
func (s *subscription) Closed() bool {
	return s.closed
}

func (e *emitter) subscribe(mask ir.EventMask, fn func(ir.Event)) *subscription {
	s := &subscription{id: e.nextID, mask: mask, fn: fn, emitter: e}
	e.nextID++
	e.subs = append(e.subs, s)
	return s
}

func (e *emitter) remove(id uint64) {
	e.subs = slices.DeleteFunc(e.subs, func(s *subscription) bool { return s.id == id })
}

// emit calls every open subscriber whose mask matches. Subscribers added
// during delivery do not see the current event.
func (e *emitter) emit(ev ir.Event) {
	for _, s := range slices.Clone(e.subs) {
		if s.closed || s.mask&ev.Kind == 0 {
			continue
		}
		s.fn(ev)
	}
}

func (e *emitter) count() int {
	return len(e.subs)
}
