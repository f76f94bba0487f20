// Package bridge mirrors an event-driven control tree into reactive cells.
//
// Bind projects one node onto per-axis cells (value, raw value, status,
// touched, dirty, errors) plus derived flags and a snapshot record. Each
// axis holds exactly one live subscription on the currently bound node.
// When the source cell switches to another node, the old subscription is
// released before the new one is opened.
//
// BindDeep does the same recursively. Children are bridged as they appear,
// cached by node identity, so a child that survives a structural change
// keeps its bridge and every consumer of that bridge stays put. Children
// that disappear have their scope disposed, which releases their
// subscriptions.
//
// Absent nodes (nil, or a source whose Lookup fails) project defaults:
// Null values, StatusUnknown, false flags, nil errors, no subscriptions.
//
// Two access styles exist on a deep bridge. Live and LiveAt read the
// children list untracked: an effect that reaches a leaf through them
// depends only on that leaf's cells. Children tracks the whole list and
// re-runs its consumers when children are added or removed.
package bridge
