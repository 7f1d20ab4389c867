package possecure

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by possecure APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session    SessionConfig
	Lockout    LockoutConfig
	Password   PasswordConfig
	Storage    StorageConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Permission PermissionConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by possecure APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	IdleTimeout time.Duration
	// SnapshotWriteInterval coalesces snapshot persistence triggered by
	// Touch; state transitions always persist immediately.
	SnapshotWriteInterval time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by possecure APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by possecure APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig defines a public type used by possecure APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	SecurePrefix string
	LegacyPrefix string
}

// AuditConfig defines a public type used by possecure APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled        bool
	BufferSize     int
	DropIfFull     bool
	LedgerCapacity int
}

// MetricsConfig defines a public type used by possecure APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// PermissionConfig defines a public type used by possecure APIs.
//
// PermissionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PermissionConfig struct {
	MaxBits int // 64 or 128
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			IdleTimeout:           15 * time.Minute,
			SnapshotWriteInterval: time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Storage: StorageConfig{
			SecurePrefix: "secure_",
			LegacyPrefix: "tareeqa_",
		},
		Audit: AuditConfig{
			Enabled:        true,
			BufferSize:     1024,
			DropIfFull:     true,
			LedgerCapacity: 1000,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Permission: PermissionConfig{
			MaxBits: 64,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}
	if c.Session.SnapshotWriteInterval < 0 {
		return errors.New("Session SnapshotWriteInterval must be >= 0")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Storage
	if c.Storage.SecurePrefix == "" {
		return errors.New("Storage SecurePrefix is required")
	}
	if c.Storage.LegacyPrefix == "" {
		return errors.New("Storage LegacyPrefix is required")
	}
	if c.Storage.SecurePrefix == c.Storage.LegacyPrefix {
		return errors.New("Storage SecurePrefix and LegacyPrefix must differ")
	}
	if strings.HasPrefix(c.Storage.LegacyPrefix, c.Storage.SecurePrefix) {
		return errors.New("Storage LegacyPrefix must not live under SecurePrefix")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}
	if c.Audit.LedgerCapacity <= 0 {
		return errors.New("Audit LedgerCapacity must be > 0")
	}

	// Permission
	switch c.Permission.MaxBits {
	case 64, 128:
		// valid
	default:
		return errors.New("Permission MaxBits must be 64 or 128")
	}

	return nil
}
