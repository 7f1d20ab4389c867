// Package stores provides the concrete key/value storage backends the
// security engine persists encoded artifacts to: an in-memory map for
// tests and ephemeral use, a single-file JSON document with atomic
// rename writes, and a Redis-backed store with pub/sub change
// notifications.
//
// # Design
//
// Every store implements the same method set: Get, Set, Remove,
// ListKeys, and Watch. Values are opaque strings; the engine encodes and
// decodes them, stores never inspect content. Watch delivers best-effort
// ChangeEvents for mutations so a second process (or the engine's own
// cache) can invalidate on external writes.
//
// # Architecture boundaries
//
// This package owns persistence and change notification only. It does
// NOT encode, checksum, or validate values, and it does NOT know which
// keys are reserved. Those responsibilities belong to the root package.
//
// # What this package must NOT do
//
//   - Import possecure or any sibling internal package.
//   - Interpret stored values.
//   - Block a mutation because a Watch subscriber is slow.
package stores
