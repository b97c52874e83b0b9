// Package docstore provides SQLite-backed durable storage for canvas
// documents.
//
// The store keeps two tables:
//   - documents: the current head of each named document
//   - document_revisions: append-only save history per document
//
// # Critical Patterns
//
// Head + Revision Atomicity
//   - SaveDocument upserts the head and appends a revision in ONE transaction
//   - A crash never leaves a head without its matching revision
//
// Canonical Content
//   - Document content is stored as RFC 8785 canonical JSON TEXT
//   - Equal documents produce byte-identical rows and equal content hashes
//   - Hashes use SHA-256 with domain separation (internal/model)
//
// Deterministic Query Results
//   - Listings order by id COLLATE BINARY ASC, revisions by rev ASC
//   - Identical stores produce identical listings
//
// Tolerant Reading
//   - Decode accepts schema versions 1 and 2; missing collections come
//     back empty and unknown fields are ignored
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Revisions cascade with their document
//
// Writes are expected to arrive serialized through the persistence
// coordinator; the store itself also restricts to a single connection.
package docstore
