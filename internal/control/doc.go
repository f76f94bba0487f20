// Package control implements a mutable tree of form controls: leaves
// holding a value, keyed groups, and ordered lists.
//
// Every mutation updates the affected control, then each ancestor in turn,
// and emits change events synchronously on every control it touched.
// Composite values, statuses, dirty and touched flags are aggregates of
// the children and are recomputed, never stored independently.
//
// Controls implement ir.Node and are the tree the bridge package mirrors.
// A control tree is NOT safe for concurrent use.
package control
