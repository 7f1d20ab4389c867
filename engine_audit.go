package possecure

import (
	"context"
	"time"

	"github.com/google/uuid"
	internalaudit "github.com/tareeqa/possecure/internal/audit"
)

const (
	auditEventLoginSuccess         = "authentication_succeeded"
	auditEventLoginFailure         = "authentication_failed"
	auditEventAccountLocked        = "account_locked"
	auditEventSessionLocked        = "session_locked"
	auditEventSessionUnlocked      = "session_unlocked"
	auditEventUnlockFailed         = "unlock_failed"
	auditEventLogout               = "logout"
	auditEventSessionRestored      = "session_restored"
	auditEventSessionRestoreFailed = "session_restore_failed"
	auditEventUserCreated          = "user_created"
	auditEventUserDeactivated      = "user_deactivated"
	auditEventSecretChanged        = "secret_changed"
	auditEventDataStored           = "secure_data_stored"
	auditEventDataAccessFailed     = "secure_data_access_failed"
	auditEventDataRemoved          = "secure_data_removed"
	auditEventLegacyMigrated       = "legacy_migrated"
	auditEventLegacyMigrateFailed  = "legacy_migration_failed"
	auditEventBackupCreated        = "backup_created"
	auditEventBackupRestored       = "backup_restored"
	auditEventIntegrityCheck       = "integrity_check"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	kind string,
	success bool,
	userID string,
	username string,
	err error,
	detailsBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var details map[string]string
	if detailsBuilder != nil {
		details = detailsBuilder()
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		if details == nil {
			details = make(map[string]string, 1)
		}
		details["client_ip"] = ip
	}

	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Kind:        kind,
		UserID:      userID,
		Username:    username,
		Workstation: workstationFromContext(ctx),
		Success:     success,
		Details:     details,
		Environment: internalaudit.EnvironmentLocal,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}
