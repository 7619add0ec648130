// Package datamanager implements the Worker Data Manager (component A):
// the per-worker registry of resident renamings, the per-type fetch/load/
// store contract, and the at-most-one-in-flight-transfer rule that
// collapses duplicate concurrent requests for the same renaming into a
// single transfer with several waiters. It holds no dependency/placement
// logic of its own — it is driven by the worker agent (pkg/worker) acting
// on placements the runtime's dispatcher handed it.
package datamanager
