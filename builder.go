package possecure

import (
	"context"
	"errors"
	"fmt"

	internalaudit "github.com/tareeqa/possecure/internal/audit"
	"github.com/tareeqa/possecure/internal/stores"
	"github.com/tareeqa/possecure/password"
	"github.com/tareeqa/possecure/permission"
	"github.com/tareeqa/possecure/snapshot"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by possecure APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	storage    Storage
	storageErr error

	installKey string

	definitions []permission.Definition
	roleSpecs   []permission.RoleSpec

	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage describes the withstorage operation and its observable behavior.
//
// WithStorage may return an error when input validation, dependency calls, or security checks fail.
// WithStorage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStorage(s Storage) *Builder {
	b.storage = s
	return b
}

// WithMemoryStorage describes the withmemorystorage operation and its observable behavior.
//
// WithMemoryStorage may return an error when input validation, dependency calls, or security checks fail.
// WithMemoryStorage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMemoryStorage() *Builder {
	b.storage = NewMemoryStorage()
	return b
}

// WithFileStorage describes the withfilestorage operation and its observable behavior.
//
// WithFileStorage may return an error when input validation, dependency calls, or security checks fail.
// WithFileStorage does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithFileStorage(path string) *Builder {
	s, err := NewFileStorage(path)
	if err != nil {
		b.storageErr = err
		return b
	}
	b.storage = s
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient, prefix string) *Builder {
	b.storage = stores.NewRedisStore(client, prefix)
	return b
}

// WithInstallationKey describes the withinstallationkey operation and its observable behavior.
//
// WithInstallationKey may return an error when input validation, dependency calls, or security checks fail.
// WithInstallationKey does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithInstallationKey(key string) *Builder {
	b.installKey = key
	return b
}

// WithPermissions describes the withpermissions operation and its observable behavior.
//
// WithPermissions may return an error when input validation, dependency calls, or security checks fail.
// WithPermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPermissions(defs []permission.Definition) *Builder {
	b.definitions = defs
	return b
}

// WithRoles describes the withroles operation and its observable behavior.
//
// WithRoles may return an error when input validation, dependency calls, or security checks fail.
// WithRoles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRoles(specs []permission.RoleSpec) *Builder {
	b.roleSpecs = specs
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.storageErr != nil {
		return nil, b.storageErr
	}
	if b.storage == nil {
		return nil, errors.New("storage backend required")
	}
	if b.installKey == "" {
		return nil, errors.New("installation key required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- PERMISSION TABLE --------
	var (
		registry *permission.Registry
		table    *permission.Table
		err      error
	)
	if len(b.definitions) == 0 && len(b.roleSpecs) == 0 {
		registry, table, err = permission.BuildDefaultTable()
		if err != nil {
			return nil, err
		}
	} else {
		if len(b.definitions) == 0 || len(b.roleSpecs) == 0 {
			return nil, errors.New("custom permissions and roles must be provided together")
		}
		registry, err = permission.NewRegistry(cfg.Permission.MaxBits)
		if err != nil {
			return nil, err
		}
		for _, def := range b.definitions {
			if _, err := registry.Register(def); err != nil {
				return nil, err
			}
		}
		registry.Freeze()

		table = permission.NewTable(registry)
		for _, spec := range b.roleSpecs {
			if spec.Wildcard {
				err = table.RegisterWildcard(spec.Name, spec.Label, spec.Priority)
			} else {
				err = table.Register(spec.Name, spec.Label, spec.Priority, spec.Keys)
			}
			if err != nil {
				return nil, err
			}
		}
		table.Freeze()
	}

	// -------- CREDENTIAL MACHINERY --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}, b.installKey)
	if err != nil {
		return nil, err
	}

	snapshots, err := snapshot.NewManager([]byte(b.installKey))
	if err != nil {
		return nil, err
	}

	records := newSecureStore(b.storage, b.installKey, cfg.Storage.SecurePrefix, cfg.Storage.LegacyPrefix)
	credentials := newCredentialStore(records, hasher, cfg.Lockout)

	// -------- AUDIT PIPELINE --------
	ledger := newAuditLedger(records, cfg.Audit.LedgerCapacity)
	sink := internalaudit.Sink(ledger)
	if b.auditSink != nil {
		sink = internalaudit.NewMultiSink(ledger, b.auditSink)
	}
	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	engine := &Engine{
		config:      cfg,
		storage:     b.storage,
		registry:    registry,
		roles:       table,
		hasher:      hasher,
		snapshots:   snapshots,
		credentials: credentials,
		records:     records,
		ledger:      ledger,
		audit:       dispatcher,
		metrics:     NewMetrics(cfg.Metrics),
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := engine.watchCredentialChanges(watchCtx); err != nil {
		cancel()
		if dispatcher != nil {
			dispatcher.Close()
		}
		return nil, fmt.Errorf("storage watch: %w", err)
	}
	engine.watchCancel = cancel

	b.built = true

	return engine, nil
}

// watchCredentialChanges subscribes to the storage change feed and drops
// the credential cache whenever another process rewrites the users
// record.
func (e *Engine) watchCredentialChanges(ctx context.Context) error {
	events, err := e.storage.Watch(ctx)
	if err != nil {
		return err
	}

	usersKey := e.records.storageKey(reservedUsers)
	go func() {
		for event := range events {
			if event.Key == usersKey {
				e.credentials.invalidate()
			}
		}
	}()

	return nil
}
