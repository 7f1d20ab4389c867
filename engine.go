package possecure

import (
	"context"
	"log"
	"sync"
	"time"

	internalaudit "github.com/tareeqa/possecure/internal/audit"
	"github.com/tareeqa/possecure/password"
	"github.com/tareeqa/possecure/permission"
	"github.com/tareeqa/possecure/snapshot"
)

// Engine defines a public type used by possecure APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	storage     Storage
	registry    *permission.Registry
	roles       *permission.Table
	hasher      *password.Hasher
	snapshots   *snapshot.Manager
	credentials *credentialStore
	records     *secureStore
	ledger      *auditLedger
	audit       *internalaudit.Dispatcher
	metrics     *Metrics

	mu                sync.Mutex
	session           *Session
	idleTimer         *time.Timer
	lastSnapshotWrite time.Time

	watchCancel context.CancelFunc
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	e.stopIdleTimerLocked()
	e.mu.Unlock()

	if e.watchCancel != nil {
		e.watchCancel()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// AuditEvents describes the auditevents operation and its observable behavior.
//
// AuditEvents does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditEvents(ctx context.Context, filter AuditFilter) []AuditEvent {
	if e == nil || e.ledger == nil {
		return nil
	}
	return e.ledger.query(ctx, filter)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, username, secret string) (*Session, error) {
	if e == nil || e.credentials == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricLoginLatency, time.Since(start)) }()
	}

	user, err := e.credentials.findByUsername(ctx, username)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", username, ErrUnknownUser, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrUnknownUser
	}

	if !user.Active {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Username, ErrInactiveAccount, func() map[string]string {
			return map[string]string{
				"reason": "account_deactivated",
			}
		})
		return nil, ErrInactiveAccount
	}

	now := time.Now()
	if e.credentials.lockedOut(user, now) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Username, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"reason":       "account_locked",
				"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		return nil, ErrAccountLocked
	}

	ok, needsUpgrade, err := e.credentials.verifySecret(user, secret)
	if err != nil || !ok {
		locked, recordErr := e.credentials.recordFailure(ctx, user.Username)
		if recordErr != nil {
			log.Print("possecure: failed attempt persistence failed")
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, user.Username, ErrInvalidCredential, func() map[string]string {
			return map[string]string{
				"reason": "secret_mismatch",
			}
		})
		if locked {
			e.metricInc(MetricAccountLocked)
			e.emitAudit(ctx, auditEventAccountLocked, false, user.ID, user.Username, ErrAccountLocked, func() map[string]string {
				return map[string]string{
					"threshold": "reached",
				}
			})
		}
		return nil, ErrInvalidCredential
	}

	var upgradedHash string
	if needsUpgrade && e.config.Password.UpgradeOnLogin {
		// Rehash update is best-effort and must not block successful login.
		if hash, hashErr := e.hasher.Hash(secret); hashErr == nil {
			upgradedHash = hash
		} else {
			log.Print("possecure: secret hash upgrade generation failed")
		}
	}
	secret = ""

	userID := user.ID
	user, err = e.credentials.recordSuccess(ctx, user.Username, upgradedHash)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, userID, username, err, func() map[string]string {
			return map[string]string{
				"reason": "lockout_reset_persistence",
			}
		})
		return nil, err
	}

	e.mu.Lock()
	e.stopIdleTimerLocked()
	e.session = &Session{
		User:         user.sanitized(),
		LoginAt:      now,
		LastActivity: now,
	}
	e.scheduleIdleTimerLocked()
	e.persistSnapshotLocked(ctx, true)
	sess := *e.session
	e.mu.Unlock()

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, user.Username, nil, func() map[string]string {
		return map[string]string{
			"role": user.Role,
		}
	})

	return &sess, nil
}
