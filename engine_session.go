package possecure

import (
	"context"
	"log"
	"time"
)

// CurrentSession describes the currentsession operation and its observable behavior.
//
// CurrentSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CurrentSession() (Session, bool) {
	if e == nil {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// State describes the state operation and its observable behavior.
//
// State does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) State() SessionState {
	if e == nil {
		return StateLoggedOut
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.session == nil:
		return StateLoggedOut
	case e.session.Locked:
		return StateLocked
	default:
		return StateActive
	}
}

// SessionDuration describes the sessionduration operation and its observable behavior.
//
// SessionDuration does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SessionDuration() time.Duration {
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return 0
	}
	return time.Since(e.session.LoginAt)
}

// Touch describes the touch operation and its observable behavior.
//
// Touch does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Touch(ctx context.Context) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.Locked {
		return
	}

	e.session.LastActivity = time.Now()
	e.scheduleIdleTimerLocked()
	e.persistSnapshotLocked(ctx, false)
}

// Lock describes the lock operation and its observable behavior.
//
// Lock may return an error when input validation, dependency calls, or security checks fail.
// Lock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Lock(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	if e.session.Locked {
		e.mu.Unlock()
		return nil
	}

	e.session.Locked = true
	e.stopIdleTimerLocked()
	e.persistSnapshotLocked(ctx, true)
	uid, uname := e.session.User.ID, e.session.User.Username
	e.mu.Unlock()

	e.metricInc(MetricSessionLocked)
	e.emitAudit(ctx, auditEventSessionLocked, true, uid, uname, nil, func() map[string]string {
		return map[string]string{
			"reason": "manual",
		}
	})
	return nil
}

// Unlock describes the unlock operation and its observable behavior.
//
// Unlock may return an error when input validation, dependency calls, or security checks fail.
// Unlock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Unlock(ctx context.Context, secret string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	if !e.session.Locked {
		e.mu.Unlock()
		return nil
	}
	uid, uname := e.session.User.ID, e.session.User.Username
	e.mu.Unlock()

	user, err := e.credentials.findByUsername(ctx, uname)
	if err != nil {
		return err
	}

	// A wrong unlock secret never counts toward the account lockout
	// threshold. The operator is already authenticated.
	ok, _, err := e.credentials.verifySecret(user, secret)
	if err != nil || !ok {
		e.metricInc(MetricUnlockFailure)
		e.emitAudit(ctx, auditEventUnlockFailed, false, uid, uname, ErrInvalidCredential, nil)
		return ErrInvalidCredential
	}
	secret = ""

	e.mu.Lock()
	if e.session == nil || e.session.User.ID != uid {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	e.session.Locked = false
	e.session.LastActivity = time.Now()
	e.scheduleIdleTimerLocked()
	e.persistSnapshotLocked(ctx, true)
	e.mu.Unlock()

	e.metricInc(MetricSessionUnlocked)
	e.emitAudit(ctx, auditEventSessionUnlocked, true, uid, uname, nil, nil)
	return nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}

	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	uid, uname := e.session.User.ID, e.session.User.Username
	e.session = nil
	e.stopIdleTimerLocked()
	e.lastSnapshotWrite = time.Time{}
	e.mu.Unlock()

	if e.records != nil {
		if err := e.records.remove(ctx, reservedSession); err != nil {
			log.Print("possecure: session snapshot removal failed")
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, uid, uname, nil, nil)
	return nil
}

// Restore describes the restore operation and its observable behavior.
//
// Restore may return an error when input validation, dependency calls, or security checks fail.
// Restore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Restore(ctx context.Context) (*Session, error) {
	if e == nil || e.records == nil || e.snapshots == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	token, err := e.records.getRaw(ctx, reservedSession)
	if err != nil {
		return nil, ErrNoActiveSession
	}

	claims, err := e.snapshots.Parse(token)
	if err != nil {
		e.discardSnapshot(ctx)
		e.metricInc(MetricRestoreFailure)
		e.emitAudit(ctx, auditEventSessionRestoreFailed, false, "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "snapshot_invalid",
			}
		})
		return nil, ErrNoActiveSession
	}

	user, err := e.credentials.findByID(ctx, claims.UID)
	if err != nil || !user.Active {
		e.discardSnapshot(ctx)
		e.metricInc(MetricRestoreFailure)
		e.emitAudit(ctx, auditEventSessionRestoreFailed, false, claims.UID, claims.Username, ErrUnknownUser, func() map[string]string {
			return map[string]string{
				"reason": "user_unavailable",
			}
		})
		return nil, ErrNoActiveSession
	}

	now := time.Now()
	lastActivity := time.Unix(claims.LastActivity, 0)
	// A snapshot whose idle budget is already spent does not come back
	// at all; the operator logs in again.
	if !claims.Locked && now.Sub(lastActivity) >= e.config.Session.IdleTimeout {
		e.discardSnapshot(ctx)
		e.metricInc(MetricRestoreFailure)
		e.emitAudit(ctx, auditEventSessionRestoreFailed, false, claims.UID, claims.Username, ErrNoActiveSession, func() map[string]string {
			return map[string]string{
				"reason": "idle_expired",
			}
		})
		return nil, ErrNoActiveSession
	}
	locked := claims.Locked

	e.mu.Lock()
	e.stopIdleTimerLocked()
	e.session = &Session{
		User:         user.sanitized(),
		LoginAt:      time.Unix(claims.LoginAt, 0),
		LastActivity: lastActivity,
		Locked:       locked,
	}
	if !locked {
		e.session.LastActivity = now
		e.scheduleIdleTimerLocked()
	}
	e.persistSnapshotLocked(ctx, true)
	sess := *e.session
	e.mu.Unlock()

	e.metricInc(MetricRestoreSuccess)
	e.emitAudit(ctx, auditEventSessionRestored, true, user.ID, user.Username, nil, func() map[string]string {
		return map[string]string{
			"locked": boolString(locked),
		}
	})

	return &sess, nil
}

func (e *Engine) discardSnapshot(ctx context.Context) {
	if e.records == nil {
		return
	}
	if err := e.records.remove(ctx, reservedSession); err != nil {
		log.Print("possecure: stale session snapshot removal failed")
	}
}

func (e *Engine) stopIdleTimerLocked() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
}

func (e *Engine) scheduleIdleTimerLocked() {
	e.stopIdleTimerLocked()
	if e.config.Session.IdleTimeout <= 0 {
		return
	}
	e.idleTimer = time.AfterFunc(e.config.Session.IdleTimeout, e.handleIdleTimeout)
}

func (e *Engine) handleIdleTimeout() {
	ctx := context.Background()

	e.mu.Lock()
	if e.session == nil || e.session.Locked {
		e.mu.Unlock()
		return
	}
	// A Touch that raced the timer reschedules; only lock when the
	// session is truly idle.
	if time.Since(e.session.LastActivity) < e.config.Session.IdleTimeout {
		e.scheduleIdleTimerLocked()
		e.mu.Unlock()
		return
	}

	e.session.Locked = true
	e.stopIdleTimerLocked()
	e.persistSnapshotLocked(ctx, true)
	uid, uname := e.session.User.ID, e.session.User.Username
	e.mu.Unlock()

	e.metricInc(MetricIdleTimeout)
	e.metricInc(MetricSessionLocked)
	e.emitAudit(ctx, auditEventSessionLocked, true, uid, uname, nil, func() map[string]string {
		return map[string]string{
			"reason": "idle_timeout",
		}
	})
}

// persistSnapshotLocked writes the signed session snapshot. Callers hold
// e.mu. Touch-driven writes are coalesced by SnapshotWriteInterval;
// force bypasses the interval for state transitions.
func (e *Engine) persistSnapshotLocked(ctx context.Context, force bool) {
	if e.records == nil || e.snapshots == nil || e.session == nil {
		return
	}

	now := time.Now()
	if !force && now.Sub(e.lastSnapshotWrite) < e.config.Session.SnapshotWriteInterval {
		return
	}

	token, err := e.snapshots.Sign(
		e.session.User.ID,
		e.session.User.Username,
		e.session.User.Role,
		e.session.LoginAt,
		e.session.LastActivity,
		e.session.Locked,
	)
	if err != nil {
		log.Print("possecure: session snapshot signing failed")
		return
	}
	if err := e.records.putRaw(ctx, reservedSession, token); err != nil {
		log.Print("possecure: session snapshot persistence failed")
		return
	}
	e.lastSnapshotWrite = now
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
