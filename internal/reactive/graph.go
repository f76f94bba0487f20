package reactive

import "slices"

// producer is anything a consumer can depend on.
type producer struct {
	version   uint64
	consumers []*consumer

	// refresh brings a lazy producer up to date before its version is
	// compared. Nil for signals.
	refresh func()
}

func (p *producer) addConsumer(c *consumer) {
	if !slices.Contains(p.consumers, c) {
		p.consumers = append(p.consumers, c)
	}
}

func (p *producer) removeConsumer(c *consumer) {
	if i := slices.Index(p.consumers, c); i >= 0 {
		p.consumers = slices.Delete(p.consumers, i, i+1)
	}
}

// notify marks every consumer dirty, in subscription order.
func (p *producer) notify() {
	for _, c := range slices.Clone(p.consumers) {
		c.markDirty()
	}
}

type dep struct {
	p       *producer
	version uint64
}

// consumer records the producers read during its last run.
type consumer struct {
	deps    []dep
	collect []dep
	onDirty func()
}

func (c *consumer) markDirty() {
	if c.onDirty != nil {
		c.onDirty()
	}
}

func (c *consumer) record(p *producer) {
	for i := range c.collect {
		if c.collect[i].p == p {
			c.collect[i].version = p.version
			return
		}
	}
	c.collect = append(c.collect, dep{p: p, version: p.version})
}

// stale refreshes lazy dependencies and reports whether any of them moved
// past the version seen on the last run.
func (c *consumer) stale() bool {
	for _, d := range c.deps {
		if d.p.refresh != nil {
			d.p.refresh()
		}
		if d.p.version != d.version {
			return true
		}
	}
	return false
}

// swap installs the deps collected during a run and fixes up subscriptions.
func (c *consumer) swap() {
	old := c.deps
	c.deps = c.collect
	c.collect = nil

	for _, d := range old {
		if !slices.ContainsFunc(c.deps, func(n dep) bool { return n.p == d.p }) {
			d.p.removeConsumer(c)
		}
	}
	for _, d := range c.deps {
		d.p.addConsumer(c)
	}
}

func (c *consumer) detach() {
	for _, d := range c.deps {
		d.p.removeConsumer(c)
	}
	c.deps = nil
}
