// Package ir provides the foundational types shared by every formsignal
// package: the sealed Value model, node statuses and events, the Node
// contract consumed by the bridge, and compiled form definitions.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
