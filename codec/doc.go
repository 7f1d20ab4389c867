// Package codec implements the reversible artifact format used for all
// durable state: a JSON envelope (payload, timestamp, rolling checksum,
// schema version), optional run-length compaction, a key-derived XOR
// stream transform, and a version-tagged base64 text encoding.
//
// # Wire format
//
//	"ENCRYPTED_V1:" + base64(Transform(compact(json(envelope)), key))
//
// Artifacts without the version tag are treated as legacy plaintext JSON
// and deserialized directly, which is what makes one-shot migration of
// pre-encryption records possible.
//
// # Architecture boundaries
//
// This package owns byte-level encoding only. It does NOT choose storage
// keys, emit audit events, or decide what gets persisted. Those
// responsibilities belong to the secure record store.
//
// # What this package must NOT do
//
//   - Import possecure or any sibling package (no upward imports).
//   - Claim cryptographic strength: the transform is a keyed obfuscation
//     contract and the checksum detects corruption, not adversaries.
package codec
