// Package audit implements async event dispatching for security-relevant
// operations.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON writer,
//     multi-sink, no-op; the persisted ledger in the root package is also
//     a Sink).
//   - [Dispatcher] is the buffered async relay with drop-if-full /
//     block-if-full semantics.
//   - [Event] is the structured audit record: id, kind, acting user, details,
//     fixed "local" environment tag.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit, cap the persisted ledger, or touch storage.
// Those responsibilities belong to the Engine and the ledger.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import possecure or any sibling internal package.
//   - Block a caller when drop-if-full delivery is configured.
package audit
