// Package password hashes and verifies operator secrets.
//
// New secrets are hashed with Argon2id and stored as PHC strings.
// Records migrated from the legacy system carry a hex SHA-256 digest of
// secret‖salt‖installation-key; Verify recognizes both formats so legacy
// operators keep working, and NeedsUpgrade lets the engine rehash them to
// Argon2id on the next successful login.
package password
