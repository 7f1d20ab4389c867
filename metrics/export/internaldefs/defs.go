package internaldefs

import (
	possecure "github.com/tareeqa/possecure"
)

// CounterDef defines a public type used by possecure APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   possecure.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by possecure APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   possecure.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the security engine.
var CounterDefs = []CounterDef{
	{ID: possecure.MetricLoginSuccess, Name: "possecure_login_success_total", Help: "Successful login attempts."},
	{ID: possecure.MetricLoginFailure, Name: "possecure_login_failure_total", Help: "Failed login attempts."},
	{ID: possecure.MetricAccountLocked, Name: "possecure_account_locked_total", Help: "Accounts locked by the failed-attempt threshold."},
	{ID: possecure.MetricSessionLocked, Name: "possecure_session_locked_total", Help: "Session lock transitions, manual and idle."},
	{ID: possecure.MetricSessionUnlocked, Name: "possecure_session_unlocked_total", Help: "Successful session unlocks."},
	{ID: possecure.MetricUnlockFailure, Name: "possecure_unlock_failure_total", Help: "Failed session unlock attempts."},
	{ID: possecure.MetricIdleTimeout, Name: "possecure_idle_timeout_total", Help: "Sessions locked by idle timeout."},
	{ID: possecure.MetricLogout, Name: "possecure_logout_total", Help: "Logout operations."},
	{ID: possecure.MetricRestoreSuccess, Name: "possecure_restore_success_total", Help: "Sessions restored from a persisted snapshot."},
	{ID: possecure.MetricRestoreFailure, Name: "possecure_restore_failure_total", Help: "Rejected session snapshot restores."},
	{ID: possecure.MetricUserCreated, Name: "possecure_user_created_total", Help: "Created operator accounts."},
	{ID: possecure.MetricUserDeactivated, Name: "possecure_user_deactivated_total", Help: "Deactivated operator accounts."},
	{ID: possecure.MetricSecretChanged, Name: "possecure_secret_changed_total", Help: "Operator secret changes."},
	{ID: possecure.MetricSecurePutFailure, Name: "possecure_secure_put_failure_total", Help: "Failed secure record writes."},
	{ID: possecure.MetricSecureGetFailure, Name: "possecure_secure_get_failure_total", Help: "Failed secure record reads."},
	{ID: possecure.MetricIntegrityFailure, Name: "possecure_integrity_failure_total", Help: "Integrity sweeps that found corrupted records."},
	{ID: possecure.MetricLegacyMigrated, Name: "possecure_legacy_migrated_total", Help: "Legacy records migrated under the secure prefix."},
	{ID: possecure.MetricBackupCreated, Name: "possecure_backup_created_total", Help: "Created backup artifacts."},
	{ID: possecure.MetricBackupRestored, Name: "possecure_backup_restored_total", Help: "Applied backup restores."},
}

// HistogramDefs is an exported constant or variable used by the security engine.
var HistogramDefs = []HistogramDef{
	{ID: possecure.MetricLoginLatency, Name: "possecure_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the security engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the security engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
