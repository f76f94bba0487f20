package bridge

import "github.com/roach88/formsignal/internal/ir"

// project runs an effect that keeps one subscription on the node held by
// src for the event kinds in mask.
//
// On every run the previous subscription is released first (effect
// cleanup), then apply reads the node synchronously, then the new
// subscription is opened. apply also runs on each matching event. It
// receives nil when the source is absent and must write defaults.
// Everything after resolving the node is untracked, so the effect only
// re-runs when the source cell changes.
func project(src Source, cfg config, axis Axis, mask ir.EventMask, apply func(ir.Node)) *slot {
	rt := cfg.scope.Runtime()
	s := newSlot(rt, axis, cfg.metrics)

	cfg.scope.Effect(func(onCleanup func(func())) {
		n := resolve(src, cfg.logger)
		rt.Untracked(func() {
			apply(n)
			if n == nil {
				return
			}
			s.attach(n.Subscribe(mask, func(ir.Event) {
				rt.Untracked(func() { apply(n) })
				cfg.metrics.Wrote(string(axis))
			}))
		})
		onCleanup(s.release)
	})
	return s
}
