package possecure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tareeqa/possecure/codec"
)

// Reserved namespace keys hold the engine's own state. They are invisible
// to ListKeys/Backup/Stats/VerifyIntegrity and never produce data audit
// events, so persisting the audit ledger cannot recurse into itself.
const (
	reservedUsers    = "users"
	reservedSession  = "session"
	reservedAuditLog = "audit_log"
)

const backupVersion = "1.0"

type backupEnvelope struct {
	Version   string                     `json:"version"`
	Timestamp string                     `json:"timestamp"`
	Data      map[string]json.RawMessage `json:"data"`
}

// secureStore owns the encode-then-persist mechanics for namespaced
// records. Audit events and metrics for these operations are the
// Engine's responsibility.
type secureStore struct {
	storage      Storage
	installKey   string
	securePrefix string
	legacyPrefix string
}

func newSecureStore(storage Storage, installKey, securePrefix, legacyPrefix string) *secureStore {
	return &secureStore{
		storage:      storage,
		installKey:   installKey,
		securePrefix: securePrefix,
		legacyPrefix: legacyPrefix,
	}
}

func isReserved(name string) bool {
	switch name {
	case reservedUsers, reservedSession, reservedAuditLog:
		return true
	}
	return false
}

func (s *secureStore) storageKey(name string) string {
	return s.securePrefix + name
}

func (s *secureStore) put(ctx context.Context, name string, value any) error {
	artifact, err := codec.Encode(value, s.installKey)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, s.storageKey(name), artifact)
}

func (s *secureStore) get(ctx context.Context, name string, out any) error {
	artifact, err := s.storage.Get(ctx, s.storageKey(name))
	if err != nil {
		return err
	}
	return codec.Decode(artifact, s.installKey, out)
}

// putRaw and getRaw bypass the codec for values that are not payloads,
// such as the signed session snapshot token.
func (s *secureStore) putRaw(ctx context.Context, name, artifact string) error {
	return s.storage.Set(ctx, s.storageKey(name), artifact)
}

func (s *secureStore) getRaw(ctx context.Context, name string) (string, error) {
	return s.storage.Get(ctx, s.storageKey(name))
}

func (s *secureStore) remove(ctx context.Context, name string) error {
	return s.storage.Remove(ctx, s.storageKey(name))
}

func (s *secureStore) has(ctx context.Context, name string) (bool, error) {
	_, err := s.storage.Get(ctx, s.storageKey(name))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// listNames returns the caller-visible namespace keys, sorted. Reserved
// keys and anything outside the secure prefix are excluded.
func (s *secureStore) listNames(ctx context.Context) ([]string, error) {
	keys, err := s.storage.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, s.securePrefix) {
			continue
		}
		name := key[len(s.securePrefix):]
		if isReserved(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// legacyNames is the fixed set of pre-encryption storage keys swept by
// MigrateLegacy, without their legacy prefix.
func legacyNames() []string {
	return []string{
		"products",
		"customers",
		"sales",
		"settings",
		"receipt_template",
		"preferences",
	}
}

type legacyMigration struct {
	name string
	err  error
}

// migrateLegacy moves each known plaintext legacy record under the
// secure prefix. Per-key failures are reported, never fatal; a legacy
// key whose secure counterpart already exists is left untouched.
func (s *secureStore) migrateLegacy(ctx context.Context) []legacyMigration {
	var results []legacyMigration

	for _, name := range legacyNames() {
		legacyKey := s.legacyPrefix + name

		raw, err := s.storage.Get(ctx, legacyKey)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			results = append(results, legacyMigration{name: name, err: fmt.Errorf("%w: read %s: %v", ErrMigration, legacyKey, err)})
			continue
		}

		exists, err := s.has(ctx, name)
		if err != nil {
			results = append(results, legacyMigration{name: name, err: fmt.Errorf("%w: check %s: %v", ErrMigration, name, err)})
			continue
		}
		if exists {
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			results = append(results, legacyMigration{name: name, err: fmt.Errorf("%w: decode %s: %v", ErrMigration, legacyKey, err)})
			continue
		}

		if err := s.put(ctx, name, value); err != nil {
			results = append(results, legacyMigration{name: name, err: fmt.Errorf("%w: write %s: %v", ErrMigration, name, err)})
			continue
		}

		if err := s.storage.Remove(ctx, legacyKey); err != nil {
			results = append(results, legacyMigration{name: name, err: fmt.Errorf("%w: remove %s: %v", ErrMigration, legacyKey, err)})
			continue
		}

		results = append(results, legacyMigration{name: name})
	}

	return results
}

// backup snapshots every caller-visible record into one envelope. Values
// are carried decoded, so a passwordless backup is plain serialized text
// and an encoded one is protected solely by the supplied password. That
// also lets a backup restore into a store keyed with a different
// installation key. A non-empty password encodes the whole envelope with
// that password as the codec key.
func (s *secureStore) backup(ctx context.Context, password string) (string, error) {
	names, err := s.listNames(ctx)
	if err != nil {
		return "", err
	}

	env := backupEnvelope{
		Version:   backupVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      make(map[string]json.RawMessage, len(names)),
	}
	for _, name := range names {
		var value json.RawMessage
		if err := s.get(ctx, name, &value); err != nil {
			return "", fmt.Errorf("%w: backup %s: %v", codec.ErrEncoding, name, err)
		}
		env.Data[name] = value
	}

	if password != "" {
		return codec.Encode(env, password)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", codec.ErrEncoding, err)
	}
	return string(raw), nil
}

func (s *secureStore) restoreBackup(ctx context.Context, artifact, password string, overwrite bool) (BackupRestoreResult, error) {
	var (
		env    backupEnvelope
		result BackupRestoreResult
	)

	if password != "" {
		if err := codec.Decode(artifact, password, &env); err != nil {
			return result, err
		}
	} else if err := json.Unmarshal([]byte(artifact), &env); err != nil {
		return result, fmt.Errorf("%w: %v", codec.ErrEncoding, err)
	}
	if env.Version != backupVersion {
		return result, fmt.Errorf("%w: unsupported backup version %q", codec.ErrEncoding, env.Version)
	}

	names := make([]string, 0, len(env.Data))
	for name := range env.Data {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if isReserved(name) {
			result.Errors = append(result.Errors, name+": reserved key skipped")
			continue
		}
		if !overwrite {
			exists, err := s.has(ctx, name)
			if err != nil {
				result.Errors = append(result.Errors, name+": "+err.Error())
				continue
			}
			if exists {
				continue
			}
		}
		// Re-encode under this store's installation key; the backup
		// carries decoded values.
		if err := s.put(ctx, name, env.Data[name]); err != nil {
			result.Errors = append(result.Errors, name+": "+err.Error())
			continue
		}
		result.RestoredCount++
	}

	return result, nil
}

func (s *secureStore) stats(ctx context.Context) (StoreStats, error) {
	names, err := s.listNames(ctx)
	if err != nil {
		return StoreStats{}, err
	}

	stats := StoreStats{PerCategorySize: make(map[string]int)}
	for _, name := range names {
		artifact, err := s.getRaw(ctx, name)
		if err != nil {
			continue
		}
		size := len(artifact)

		stats.ItemCount++
		stats.TotalSize += size
		if size > stats.LargestSize {
			stats.LargestSize = size
			stats.LargestItem = name
		}
		stats.PerCategorySize[categoryOf(name)] += size
	}
	if stats.ItemCount > 0 {
		stats.AverageSize = stats.TotalSize / stats.ItemCount
	}

	return stats, nil
}

// categoryOf derives a grouping tag from the leading segment of the
// namespace key.
func categoryOf(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}

func (s *secureStore) verifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	names, err := s.listNames(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{Total: len(names)}
	for _, name := range names {
		var value any
		if err := s.get(ctx, name, &value); err != nil {
			report.Corrupted++
			report.Errors = append(report.Errors, name+": "+err.Error())
			continue
		}
		report.Valid++
	}

	return report, nil
}
