// Package store provides SQLite-backed durable storage for bridge traces.
//
// A trace is one session (a scenario run against a compiled form) and the
// ordered observations recorded while it ran. Each observation is one
// effect run of a harness watch: the step it followed, the reading it
// produced as canonical JSON, and the SHA-256 fingerprint of that
// reading.
//
// # Ordering
//
// Observations are ordered by seq, a logical clock assigned by the
// harness, never by timestamps. Every query ends with
// ORDER BY seq ASC, id COLLATE BINARY ASC so reads are identical across
// runs.
//
// # Identity
//
// Observation IDs are content-addressed (ir.ObservationID), so writing the
// same observation twice is a no-op. Session IDs are UUIDv7 in production
// and fixed strings in tests.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
