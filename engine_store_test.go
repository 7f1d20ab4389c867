package possecure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tareeqa/possecure/codec"
)

type testProduct struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestPutGetRoundTrip(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	in := []testProduct{{Name: "Coffee", Price: 350}, {Name: "Tea", Price: 250}}
	if !engine.Put(ctx, "products", in) {
		t.Fatal("Put failed")
	}

	var out []testProduct
	if !engine.Get(ctx, "products", &out) {
		t.Fatal("Get failed")
	}
	if len(out) != 2 || out[0].Name != "Coffee" || out[1].Price != 250 {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	// The stored artifact is encoded, never plaintext JSON.
	raw, err := engine.storage.Get(ctx, engine.records.storageKey("products"))
	if err != nil {
		t.Fatalf("raw read failed: %v", err)
	}
	if !strings.HasPrefix(raw, codec.VersionTag) {
		t.Fatalf("expected encoded artifact, got %q", raw)
	}
	if strings.Contains(raw, "Coffee") {
		t.Fatal("stored artifact leaks plaintext")
	}
}

func TestGetMissingLeavesDefault(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())

	out := testProduct{Name: "fallback", Price: 1}
	if engine.Get(context.Background(), "absent", &out) {
		t.Fatal("expected miss for absent key")
	}
	if out.Name != "fallback" || out.Price != 1 {
		t.Fatalf("expected untouched default on miss, got %+v", out)
	}
}

func TestReservedNamesRejected(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	for _, name := range []string{reservedUsers, reservedSession, reservedAuditLog} {
		if engine.Put(ctx, name, "x") {
			t.Fatalf("expected Put(%q) rejected", name)
		}
		var out string
		if engine.Get(ctx, name, &out) {
			t.Fatalf("expected Get(%q) rejected", name)
		}
		if err := engine.Remove(ctx, name); err == nil {
			t.Fatalf("expected Remove(%q) rejected", name)
		}
		if engine.Has(ctx, name) {
			t.Fatalf("expected Has(%q) rejected", name)
		}
	}
}

func TestListKeysExcludesReserved(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := context.Background()

	engine.Put(ctx, "products", "p")
	engine.Put(ctx, "settings", "s")

	keys, err := engine.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "products" || keys[1] != "settings" {
		t.Fatalf("expected [products settings], got %v", keys)
	}
}

func TestRemoveAndHas(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", "p")
	if !engine.Has(ctx, "products") {
		t.Fatal("expected Has true after Put")
	}
	if err := engine.Remove(ctx, "products"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if engine.Has(ctx, "products") {
		t.Fatal("expected Has false after Remove")
	}
	// Removing an absent key is idempotent.
	if err := engine.Remove(ctx, "products"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
}

func TestMigrateLegacy(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	if err := engine.storage.Set(ctx, "tareeqa_products", `["A","B"]`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := engine.storage.Set(ctx, "tareeqa_settings", `{"currency":"USD"}`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result := engine.MigrateLegacy(ctx)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected migration errors: %v", result.Errors)
	}
	if len(result.Migrated) != 2 {
		t.Fatalf("expected 2 migrated records, got %v", result.Migrated)
	}

	var products []string
	if !engine.Get(ctx, "products", &products) {
		t.Fatal("expected migrated products readable")
	}
	if len(products) != 2 || products[0] != "A" || products[1] != "B" {
		t.Fatalf("migrated products mismatch: %v", products)
	}

	// The legacy key is consumed by migration.
	if _, err := engine.storage.Get(ctx, "tareeqa_products"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected legacy key removed, got %v", err)
	}

	// A second sweep is a no-op.
	again := engine.MigrateLegacy(ctx)
	if len(again.Migrated) != 0 || len(again.Errors) != 0 {
		t.Fatalf("expected idempotent second sweep, got %+v", again)
	}
}

func TestMigrateLegacySkipsExistingSecureRecord(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"secure"})
	if err := engine.storage.Set(ctx, "tareeqa_products", `["legacy"]`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result := engine.MigrateLegacy(ctx)
	if len(result.Migrated) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected skip for existing secure record, got %+v", result)
	}

	var products []string
	engine.Get(ctx, "products", &products)
	if len(products) != 1 || products[0] != "secure" {
		t.Fatalf("expected secure record untouched, got %v", products)
	}
}

func TestBackupRestore(t *testing.T) {
	storage := NewMemoryStorage()
	cfg := fastTestConfig()
	ctx := context.Background()

	source := newSharedStorageEngine(t, cfg, storage)
	source.Put(ctx, "products", []string{"A", "B"})

	artifact, err := source.Backup(ctx, "backup-password")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	target := newSharedStorageEngine(t, cfg, NewMemoryStorage())
	result, err := target.RestoreBackup(ctx, artifact, "backup-password", false)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if result.RestoredCount != 1 {
		t.Fatalf("expected restoredCount 1, got %d", result.RestoredCount)
	}

	var products []string
	if !target.Get(ctx, "products", &products) {
		t.Fatal("expected restored record readable")
	}
	if len(products) != 2 || products[0] != "A" {
		t.Fatalf("restored record mismatch: %v", products)
	}
}

func TestBackupRestoresUnderDifferentInstallKey(t *testing.T) {
	cfg := fastTestConfig()
	ctx := context.Background()

	source := newTestEngine(t, cfg)
	source.Put(ctx, "products", []string{"Coffee", "Tea"})

	artifact, err := source.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	target := newTestEngine(t, cfg, func(b *Builder) {
		b.WithInstallationKey("another-install-key-02")
	})
	result, err := target.RestoreBackup(ctx, artifact, "", false)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if result.RestoredCount != 1 || len(result.Errors) != 0 {
		t.Fatalf("expected clean restore, got count %d errors %v", result.RestoredCount, result.Errors)
	}

	var products []string
	if !target.Get(ctx, "products", &products) {
		t.Fatal("expected restored record readable under the target install key")
	}
	if len(products) != 2 || products[0] != "Coffee" {
		t.Fatalf("restored record mismatch: %v", products)
	}

	report, err := target.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if report.Corrupted != 0 {
		t.Fatalf("expected restored records intact, got %+v", report)
	}
}

func TestBackupWithoutPasswordIsPlainText(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"Coffee"})

	artifact, err := engine.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if strings.HasPrefix(artifact, codec.VersionTag) {
		t.Fatal("expected passwordless backup without the artifact tag")
	}
	if !strings.Contains(artifact, "Coffee") {
		t.Fatal("expected passwordless backup to carry values as plain serialized text")
	}

	protected, err := engine.Backup(ctx, "backup-password")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if strings.Contains(protected, "Coffee") {
		t.Fatal("expected protected backup to hide values")
	}
}

func TestBackupRestoreWrongPassword(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"A"})
	artifact, err := engine.Backup(ctx, "right-password")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if _, err := engine.RestoreBackup(ctx, artifact, "wrong-password", true); err == nil {
		t.Fatal("expected error for wrong backup password")
	}
}

func TestRestoreBackupHonorsOverwrite(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"old"})
	artifact, err := engine.Backup(ctx, "")
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	engine.Put(ctx, "products", []string{"new"})

	result, err := engine.RestoreBackup(ctx, artifact, "", false)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if result.RestoredCount != 0 {
		t.Fatalf("expected existing record skipped, got %d", result.RestoredCount)
	}

	var products []string
	engine.Get(ctx, "products", &products)
	if products[0] != "new" {
		t.Fatalf("expected record preserved without overwrite, got %v", products)
	}

	if _, err := engine.RestoreBackup(ctx, artifact, "", true); err != nil {
		t.Fatalf("RestoreBackup overwrite failed: %v", err)
	}
	products = nil
	engine.Get(ctx, "products", &products)
	if products[0] != "old" {
		t.Fatalf("expected overwrite to restore backup value, got %v", products)
	}
}

func TestStats(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"A", "B", "C"})
	engine.Put(ctx, "receipt_template", "small")

	stats, err := engine.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", stats.ItemCount)
	}
	if stats.TotalSize <= 0 || stats.AverageSize <= 0 {
		t.Fatalf("expected positive sizes, got %+v", stats)
	}
	if stats.LargestItem == "" {
		t.Fatal("expected a largest item")
	}
	if len(stats.PerCategorySize) == 0 {
		t.Fatal("expected per-category sizes")
	}
}

func TestVerifyIntegrityFlagsCorruption(t *testing.T) {
	engine := newTestEngine(t, fastTestConfig())
	ctx := context.Background()

	engine.Put(ctx, "products", []string{"A"})
	engine.Put(ctx, "settings", map[string]string{"currency": "USD"})

	report, err := engine.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if report.Total != 2 || report.Valid != 2 || report.Corrupted != 0 {
		t.Fatalf("expected clean report, got %+v", report)
	}

	key := engine.records.storageKey("products")
	if err := engine.storage.Set(ctx, key, codec.VersionTag+"!!!not-base64!!!"); err != nil {
		t.Fatalf("corrupt failed: %v", err)
	}

	report, err = engine.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if report.Corrupted != 1 || report.Valid != 1 {
		t.Fatalf("expected 1 corrupted record, got %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected corruption detail, got %v", report.Errors)
	}
}
