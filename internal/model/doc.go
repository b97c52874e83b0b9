// Package model provides the canvas entity types and the canonical
// serialization used for content digests and deep equality.
//
// This package contains type definitions and pure encoding helpers only.
// All other internal packages import model; model imports nothing internal.
// This ensures the data model remains the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - Entities are plain values; shared instances are never mutated in
//     place (updates replace by id with a fresh copy)
//   - All JSON tags use camelCase to match the persisted document layout
//   - Equality and digests go through canonical JSON (UTF-16 key order,
//     NFC strings, shortest round-trip floats), never reflect.DeepEqual
package model
