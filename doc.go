// Package possecure provides the local security core for a point-of-sale
// workstation: authenticated operator sessions with lockout and idle
// timeout, bitmask-based RBAC, obfuscated at-rest record storage with
// integrity checking, and a bounded audit trail.
//
// Everything runs inside the host process against a pluggable key-value
// backend. There is no network authority: the installation key supplied
// at build time drives record encoding, legacy hash peppering, and
// session snapshot signing. Engine methods are safe to call from
// multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// possecure is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (Session, User, AuditEvent, StoreStats,
// etc.). Storage backends live under internal/stores and audit dispatch
// under internal/audit; neither is exported. The codec, permission,
// password, and snapshot packages are reusable leaves with no knowledge
// of the engine.
//
// # What this package must NOT do
//
//   - Expose storage backends, the wire codec, or hash encodings in its
//     public API beyond the Storage interface.
//   - Return credential material: every User leaving the package is
//     sanitized.
//   - Import any sub-package that re-imports possecure (no import
//     cycles).
//
// # Security posture
//
// Record encoding is obfuscation keyed by the installation key, not
// cryptography against a determined attacker with the binary. The
// threat model is casual inspection and accidental edits of the local
// data files. Operator secrets are the exception: they are hashed with
// Argon2id and never recoverable from storage.
package possecure
