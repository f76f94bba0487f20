// Package reactive is a small single-threaded reactive runtime: writable
// signals, lazily computed values with dynamic dependency tracking,
// effects, and disposal scopes.
//
// Propagation is push-dirty, pull-compute. Writing a signal bumps its
// version and marks every transitive consumer dirty; nothing recomputes
// until something reads it. A dirty computed re-runs only if one of its
// dependencies actually reports a new version, so equality functions cut
// cascades short.
//
// Effects run once when created. After that, a dirty effect is queued and
// re-runs on the next Flush (or at the end of Batch). Before every re-run
// and on disposal, cleanup callbacks registered through onCleanup run.
//
// A Runtime is NOT safe for concurrent use. Drive it from one goroutine.
package reactive
