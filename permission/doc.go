// Package permission provides the permission registry, fixed-size bitmask
// types, and the static role table used by authorization checks.
//
// # Model
//
// Permission keys are dotted "domain.action" strings registered into bit
// positions via [Registry.Register]. Roles precompute a bitmask over those
// bits; the "all permissions" wildcard is the reserved top bit, so a
// wildcard role answers true for every key, including keys registered
// after the role was defined.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Whether a
// session is present or locked is the engine's concern; evaluation here is
// role × key only.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import possecure or codec.
//   - Mutate the registry or role table after Freeze.
package permission
