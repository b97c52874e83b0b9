// Package persist serializes all durable writes through one coordinator.
//
// The coordinator is the only path to disk - autosaves, explicit saves and
// exports all flow through it, so the document store never sees two writes
// at once and saves land in submission order.
//
// ARCHITECTURE:
//
// Single-Worker FIFO Loop:
// One goroutine drains an unbounded FIFO task queue. Exactly one operation
// is in flight at any moment; the next starts only after the previous one
// settled. This ensures:
// - Submission order == execution order == settlement order
// - A slow save never reorders around a fast one
// - No write skew at the document store
//
// Task Flow:
// 1. Enqueue() appends the operation and returns a Ticket
// 2. The worker dequeues tasks one at a time and runs them
// 3. The outcome settles the Ticket (Done closes, Err carries any failure)
// 4. A failed operation rejects its own ticket and the loop continues
//
// Failures are logged and counted, never retried: retrying here would
// reorder the queue behind the caller's back. Callers that want their own
// deadline wrap a context timeout inside the operation closure.
package persist
