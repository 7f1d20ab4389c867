package possecure

import (
	"io"
	"time"

	internalaudit "github.com/tareeqa/possecure/internal/audit"
)

// User is the account record managed by the credential store. SecretHash
// and SecretSalt never leave the engine: the [Session] and every query
// API return sanitized copies with credential fields cleared.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"display_name"`
	Role           string     `json:"role"`
	Active         bool       `json:"active"`
	SecretHash     string     `json:"secret_hash,omitempty"`
	SecretSalt     string     `json:"secret_salt,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// sanitized returns a copy with credential-bearing fields stripped.
func (u User) sanitized() User {
	u.SecretHash = ""
	u.SecretSalt = ""
	return u
}

// CreateUserInput is the input for [Engine.CreateUser]. Secret is hashed
// before persistence and never stored in plaintext.
type CreateUserInput struct {
	Username    string
	DisplayName string
	Role        string
	Secret      string
}

// SessionState identifies the engine's session lifecycle state.
type SessionState uint8

const (
	// StateLoggedOut is an exported constant or variable used by the security engine.
	StateLoggedOut SessionState = iota
	// StateActive is an exported constant or variable used by the security engine.
	StateActive
	// StateLocked is an exported constant or variable used by the security engine.
	StateLocked
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateLocked:
		return "locked"
	default:
		return "logged_out"
	}
}

// Session is the live record of the authenticated identity. Exactly one
// session exists per engine; [Engine.CurrentSession] returns a copy, so
// mutating it has no effect on the engine's state.
type Session struct {
	User         User
	LoginAt      time.Time
	LastActivity time.Time
	Locked       bool
}

// BackupRestoreResult is returned by [Engine.RestoreBackup]. Per-key
// failures are collected rather than aborting the remaining keys.
type BackupRestoreResult struct {
	RestoredCount int
	Errors        []string
}

// MigrationResult is returned by [Engine.MigrateLegacy]: the legacy
// record names that were moved under the secure prefix, and the per-key
// failures that were skipped over.
type MigrationResult struct {
	Migrated []string
	Errors   []string
}

// StoreStats is returned by [Engine.Stats]: artifact-size introspection
// over the secure store, grouped by the key's prefix-derived category.
type StoreStats struct {
	ItemCount       int
	TotalSize       int
	AverageSize     int
	LargestItem     string
	LargestSize     int
	PerCategorySize map[string]int
}

// IntegrityReport is returned by [Engine.VerifyIntegrity]: a self-check
// that decodes every stored record and tallies failures.
type IntegrityReport struct {
	Total     int
	Valid     int
	Corrupted int
	Errors    []string
}

// AuditFilter narrows [Engine.AuditEvents]. Zero value returns the whole
// ledger oldest-to-newest.
type AuditFilter struct {
	Kind  string
	Limit int
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit
// dispatcher, in addition to the bounded persisted ledger.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
