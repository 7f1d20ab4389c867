package possecure

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
)

// Put describes the put operation and its observable behavior.
//
// Put does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Put(ctx context.Context, name string, value any) bool {
	if e == nil || e.records == nil {
		return false
	}
	if isReserved(name) {
		return false
	}

	if err := e.records.put(ctx, name, value); err != nil {
		log.Print("possecure: secure record write failed")
		e.metricInc(MetricSecurePutFailure)
		e.emitAudit(ctx, auditEventDataAccessFailed, false, e.sessionUserID(), "", err, func() map[string]string {
			return map[string]string{
				"key":       name,
				"operation": "put",
			}
		})
		return false
	}

	e.emitAudit(ctx, auditEventDataStored, true, e.sessionUserID(), "", nil, func() map[string]string {
		return map[string]string{
			"key": name,
		}
	})
	return true
}

// Get describes the get operation and its observable behavior.
//
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Get(ctx context.Context, name string, out any) bool {
	if e == nil || e.records == nil {
		return false
	}
	if isReserved(name) {
		return false
	}

	if err := e.records.get(ctx, name, out); err != nil {
		// A missing key is an ordinary miss; the caller falls back to
		// its default value. Anything else is a decode or backend
		// failure worth surfacing.
		if !errors.Is(err, ErrKeyNotFound) {
			log.Print("possecure: secure record read failed")
			e.metricInc(MetricSecureGetFailure)
			e.emitAudit(ctx, auditEventDataAccessFailed, false, e.sessionUserID(), "", err, func() map[string]string {
				return map[string]string{
					"key":       name,
					"operation": "get",
				}
			})
		}
		return false
	}
	return true
}

// Remove describes the remove operation and its observable behavior.
//
// Remove may return an error when input validation, dependency calls, or security checks fail.
// Remove does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Remove(ctx context.Context, name string) error {
	if e == nil || e.records == nil {
		return ErrEngineNotReady
	}
	if isReserved(name) {
		return fmt.Errorf("reserved record %q", name)
	}

	if err := e.records.remove(ctx, name); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventDataRemoved, true, e.sessionUserID(), "", nil, func() map[string]string {
		return map[string]string{
			"key": name,
		}
	})
	return nil
}

// Has describes the has operation and its observable behavior.
//
// Has does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Has(ctx context.Context, name string) bool {
	if e == nil || e.records == nil || isReserved(name) {
		return false
	}
	exists, err := e.records.has(ctx, name)
	if err != nil {
		return false
	}
	return exists
}

// ListKeys describes the listkeys operation and its observable behavior.
//
// ListKeys may return an error when input validation, dependency calls, or security checks fail.
// ListKeys does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListKeys(ctx context.Context) ([]string, error) {
	if e == nil || e.records == nil {
		return nil, ErrEngineNotReady
	}
	return e.records.listNames(ctx)
}

// MigrateLegacy describes the migratelegacy operation and its observable behavior.
//
// MigrateLegacy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MigrateLegacy(ctx context.Context) MigrationResult {
	var result MigrationResult
	if e == nil || e.records == nil {
		return result
	}

	for _, migration := range e.records.migrateLegacy(ctx) {
		if migration.err != nil {
			result.Errors = append(result.Errors, migration.err.Error())
			e.emitAudit(ctx, auditEventLegacyMigrateFailed, false, "", "", migration.err, func() map[string]string {
				return map[string]string{
					"key": migration.name,
				}
			})
			continue
		}

		result.Migrated = append(result.Migrated, migration.name)
		e.metricInc(MetricLegacyMigrated)
		e.emitAudit(ctx, auditEventLegacyMigrated, true, "", "", nil, func() map[string]string {
			return map[string]string{
				"key": migration.name,
			}
		})
	}

	return result
}

// Backup describes the backup operation and its observable behavior.
//
// Backup may return an error when input validation, dependency calls, or security checks fail.
// Backup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Backup(ctx context.Context, password string) (string, error) {
	if e == nil || e.records == nil {
		return "", ErrEngineNotReady
	}

	artifact, err := e.records.backup(ctx, password)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricBackupCreated)
	e.emitAudit(ctx, auditEventBackupCreated, true, e.sessionUserID(), "", nil, func() map[string]string {
		return map[string]string{
			"protected": boolString(password != ""),
		}
	})
	return artifact, nil
}

// RestoreBackup describes the restorebackup operation and its observable behavior.
//
// RestoreBackup may return an error when input validation, dependency calls, or security checks fail.
// RestoreBackup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RestoreBackup(ctx context.Context, artifact, password string, overwrite bool) (BackupRestoreResult, error) {
	if e == nil || e.records == nil {
		return BackupRestoreResult{}, ErrEngineNotReady
	}

	result, err := e.records.restoreBackup(ctx, artifact, password, overwrite)
	if err != nil {
		return result, err
	}

	e.metricInc(MetricBackupRestored)
	e.emitAudit(ctx, auditEventBackupRestored, true, e.sessionUserID(), "", nil, func() map[string]string {
		return map[string]string{
			"restored": strconv.Itoa(result.RestoredCount),
			"skipped":  strconv.Itoa(len(result.Errors)),
		}
	})
	return result, nil
}

// Stats describes the stats operation and its observable behavior.
//
// Stats may return an error when input validation, dependency calls, or security checks fail.
// Stats does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Stats(ctx context.Context) (StoreStats, error) {
	if e == nil || e.records == nil {
		return StoreStats{}, ErrEngineNotReady
	}
	return e.records.stats(ctx)
}

// VerifyIntegrity describes the verifyintegrity operation and its observable behavior.
//
// VerifyIntegrity may return an error when input validation, dependency calls, or security checks fail.
// VerifyIntegrity does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	if e == nil || e.records == nil {
		return IntegrityReport{}, ErrEngineNotReady
	}

	report, err := e.records.verifyIntegrity(ctx)
	if err != nil {
		return report, err
	}

	if report.Corrupted > 0 {
		e.metricInc(MetricIntegrityFailure)
	}
	e.emitAudit(ctx, auditEventIntegrityCheck, report.Corrupted == 0, e.sessionUserID(), "", nil, func() map[string]string {
		return map[string]string{
			"total":     strconv.Itoa(report.Total),
			"corrupted": strconv.Itoa(report.Corrupted),
		}
	})
	return report, nil
}

// sessionUserID returns the current session owner for audit attribution,
// empty when logged out.
func (e *Engine) sessionUserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.User.ID
}
