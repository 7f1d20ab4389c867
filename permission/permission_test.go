package permission

import (
	"bytes"
	"fmt"
	"testing"
)

func newTestTable(t *testing.T) (*Registry, *Table) {
	t.Helper()

	registry, table, err := BuildDefaultTable()
	if err != nil {
		t.Fatalf("BuildDefaultTable failed: %v", err)
	}
	return registry, table
}

func TestRegistryRejectsMalformedKeys(t *testing.T) {
	registry, err := NewRegistry(64)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if _, err := registry.Register(Definition{Key: ""}); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := registry.Register(Definition{Key: "nodot"}); err == nil {
		t.Fatal("expected error for undotted key")
	}
	if _, err := registry.Register(Definition{Key: "sales.create"}); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
	if _, err := registry.Register(Definition{Key: "sales.create"}); err == nil {
		t.Fatal("expected error for duplicate key")
	}

	registry.Freeze()
	if _, err := registry.Register(Definition{Key: "late.key"}); err == nil {
		t.Fatal("expected error after freeze")
	}
}

func TestRegistryWildcardBitReserved(t *testing.T) {
	registry, err := NewRegistry(64)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for i := 0; i < 63; i++ {
		key := fmt.Sprintf("domain.action%d", i)
		if _, err := registry.Register(Definition{Key: key}); err != nil {
			t.Fatalf("registration %d failed early: %v", i, err)
		}
	}

	// Bit 63 is the wildcard; only 63 explicit permissions fit.
	if _, err := registry.Register(Definition{Key: "one.more"}); err == nil {
		t.Fatal("expected limit error once the wildcard bit is the only one left")
	}
}

func TestWildcardRoleGrantsEverything(t *testing.T) {
	registry, table := newTestTable(t)

	for _, key := range registry.Keys() {
		if !table.Allowed("admin", key) {
			t.Fatalf("wildcard role denied %q", key)
		}
	}

	// Keys absent from every explicit role list, and even unregistered
	// keys, are still granted by the wildcard.
	if !table.Allowed("admin", "future.capability") {
		t.Fatal("wildcard role denied an unregistered key")
	}
}

func TestExplicitRoleEvaluation(t *testing.T) {
	_, table := newTestTable(t)

	if !table.Allowed("cashier", "sales.create") {
		t.Fatal("cashier should create sales")
	}
	if table.Allowed("cashier", "sales.refund") {
		t.Fatal("cashier should not refund")
	}
	if table.Allowed("cashier", "users.manage") {
		t.Fatal("cashier should not manage users")
	}
	if table.Allowed("viewer", "inventory.adjust") {
		t.Fatal("viewer should not adjust inventory")
	}
	if table.Allowed("ghost-role", "sales.create") {
		t.Fatal("unknown role should be denied")
	}
	if table.Allowed("cashier", "not.registered") {
		t.Fatal("unregistered key should be denied for explicit roles")
	}
}

func TestAllowedAnyAll(t *testing.T) {
	_, table := newTestTable(t)

	if !table.AllowedAny("cashier", []string{"sales.refund", "sales.create"}) {
		t.Fatal("AllowedAny should grant when one key matches")
	}
	if table.AllowedAny("viewer", []string{"sales.create", "cash.open"}) {
		t.Fatal("AllowedAny should deny when no key matches")
	}
	if !table.AllowedAll("manager", []string{"sales.create", "cash.open", "reports.view"}) {
		t.Fatal("AllowedAll should grant when all keys match")
	}
	if table.AllowedAll("cashier", []string{"sales.create", "sales.refund"}) {
		t.Fatal("AllowedAll should deny when one key is missing")
	}
	if !table.AllowedAll("viewer", nil) {
		t.Fatal("AllowedAll over the empty list is vacuously true")
	}
}

func TestRolePermissionsListing(t *testing.T) {
	_, table := newTestTable(t)

	keys, all, ok := table.Permissions("admin")
	if !ok || !all || keys != nil {
		t.Fatalf("admin should report the wildcard: keys=%v all=%v ok=%v", keys, all, ok)
	}

	keys, all, ok = table.Permissions("viewer")
	if !ok || all {
		t.Fatalf("viewer should report explicit keys: all=%v ok=%v", all, ok)
	}
	if len(keys) != 3 {
		t.Fatalf("viewer should hold 3 keys, got %v", keys)
	}

	if _, _, ok := table.Permissions("ghost-role"); ok {
		t.Fatal("unknown role should not resolve")
	}
}

func TestRolesSortedByPriority(t *testing.T) {
	_, table := newTestTable(t)

	roles := table.Roles()
	if len(roles) != 5 {
		t.Fatalf("expected 5 roles, got %d", len(roles))
	}
	for i := 1; i < len(roles); i++ {
		if roles[i-1].Priority > roles[i].Priority {
			t.Fatalf("roles out of priority order: %v", roles)
		}
	}
	if roles[0].Name != "admin" {
		t.Fatalf("most privileged role should sort first, got %s", roles[0].Name)
	}
}

func TestMaskCodecRoundTrip(t *testing.T) {
	m64 := Mask64(0)
	m64.Set(3)
	m64.Set(17)

	encoded, err := EncodeMask(&m64)
	if err != nil {
		t.Fatalf("EncodeMask failed: %v", err)
	}
	decoded, err := DecodeMask(encoded)
	if err != nil {
		t.Fatalf("DecodeMask failed: %v", err)
	}
	if !decoded.Has(3) || !decoded.Has(17) || decoded.Has(4) {
		t.Fatal("Mask64 round trip lost bits")
	}

	m128 := &Mask128{}
	m128.Set(70)
	m128.SetWildcard()

	encoded, err = EncodeMask(m128)
	if err != nil {
		t.Fatalf("EncodeMask failed: %v", err)
	}
	if len(encoded) != 16 {
		t.Fatalf("Mask128 should encode to 16 bytes, got %d", len(encoded))
	}
	decoded, err = DecodeMask(encoded)
	if err != nil {
		t.Fatalf("DecodeMask failed: %v", err)
	}
	if !decoded.Wildcard() || !decoded.Has(70) {
		t.Fatal("Mask128 round trip lost bits")
	}

	if _, err := DecodeMask(bytes.Repeat([]byte{1}, 7)); err == nil {
		t.Fatal("expected error for invalid mask size")
	}
}
