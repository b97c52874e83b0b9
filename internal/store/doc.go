// Package store implements the canvas data store: the single source of
// truth for the normalized diagram state.
//
// The store owns one normalized state value at a time. States are
// immutable-per-version: a mutation never edits maps in place, it derives
// a new state through the normalize package's copy-on-write operations and
// swaps the pointer. Readers holding an earlier state keep a consistent
// view forever.
//
// ARCHITECTURE:
//
// Every mutation runs the same pipeline under the store lock:
//
//  1. The rate guard is asked for permission. A denial drops the mutation
//     silently; the caller just sees false, the way a no-op looks.
//  2. The operation derives the next state, or reports a no-op / a
//     validation failure, both of which also return false.
//  3. On commit, unless the call is silent: the version increments, the
//     update timestamp advances, and the pre-mutation state is pushed to
//     history (unless the call is history-exempt).
//  4. Transient references (selection, pending connection) pointing at
//     components no longer present are cleared.
//  5. Subscribers are notified after the lock is released, so a listener
//     may itself call back into the store. The guard exists precisely to
//     break the feedback cascades that makes possible.
//
// Dropped mutations and rejected inputs are logged and counted, never
// raised: the editor keeps working when an update was skipped.
package store
