package possecure

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	return &captureSink{events: make(chan AuditEvent, buffer)}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case event := <-s.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func (s *captureSink) nextOfKind(t *testing.T, kind string) AuditEvent {
	t.Helper()
	for {
		event := s.next(t)
		if event.Kind == kind {
			return event
		}
	}
}

// faultyStorage wraps a working Storage and fails writes on demand.
type faultyStorage struct {
	Storage
	failWrites atomic.Bool
}

func (f *faultyStorage) Set(ctx context.Context, key, value string) error {
	if f.failWrites.Load() {
		return ErrStorageUnavailable
	}
	return f.Storage.Set(ctx, key, value)
}

func TestAuditLoginFailureAfterVerificationKeepsUserID(t *testing.T) {
	storage := &faultyStorage{Storage: NewMemoryStorage()}
	sink := newCaptureSink(64)
	engine := newTestEngine(t, fastTestConfig(), func(b *Builder) {
		b.WithStorage(storage).WithAuditSink(sink)
	})
	operator := createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := context.Background()

	// The secret verifies, but persisting the lockout reset fails.
	storage.failWrites.Store(true)
	if _, err := engine.Login(ctx, "alice", "orange-register-42"); err == nil {
		t.Fatal("expected login to fail on write error")
	}

	event := sink.nextOfKind(t, auditEventLoginFailure)
	if event.UserID != operator.ID {
		t.Fatalf("expected user id %q on failure event, got %q", operator.ID, event.UserID)
	}
	if event.Details["reason"] != "lockout_reset_persistence" {
		t.Fatalf("expected persistence reason, got %v", event.Details)
	}
}

func TestAuditLoginEvents(t *testing.T) {
	sink := newCaptureSink(64)
	engine := newTestEngine(t, fastTestConfig(), func(b *Builder) {
		b.WithAuditSink(sink)
	})
	createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := WithWorkstation(context.Background(), "till-3")

	_, _ = engine.Login(ctx, "alice", "wrong")
	event := sink.nextOfKind(t, auditEventLoginFailure)
	if event.Success {
		t.Fatal("expected failure event")
	}
	if event.Username != "alice" {
		t.Fatalf("expected username alice, got %q", event.Username)
	}
	if event.Workstation != "till-3" {
		t.Fatalf("expected workstation till-3, got %q", event.Workstation)
	}
	if event.Details["reason"] != "secret_mismatch" {
		t.Fatalf("expected secret_mismatch reason, got %v", event.Details)
	}
	if event.Error == "" {
		t.Fatal("expected error text on failure event")
	}

	if _, err := engine.Login(ctx, "alice", "orange-register-42"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	event = sink.nextOfKind(t, auditEventLoginSuccess)
	if !event.Success || event.UserID == "" {
		t.Fatalf("expected attributed success event, got %+v", event)
	}
	if event.Details["role"] != "cashier" {
		t.Fatalf("expected role detail, got %v", event.Details)
	}
}

func TestAuditAccountLockedEvent(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Lockout.Threshold = 2
	sink := newCaptureSink(64)
	engine := newTestEngine(t, cfg, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	createOperator(t, engine, "alice", "orange-register-42", "cashier")
	ctx := context.Background()

	_, _ = engine.Login(ctx, "alice", "wrong")
	_, _ = engine.Login(ctx, "alice", "wrong")

	event := sink.nextOfKind(t, auditEventAccountLocked)
	if event.Username != "alice" {
		t.Fatalf("expected locked event for alice, got %+v", event)
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Audit.Enabled = false
	sink := &countingSink{}
	engine := newTestEngine(t, cfg, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	createOperator(t, engine, "alice", "orange-register-42", "cashier")

	if _, err := engine.Login(context.Background(), "alice", "orange-register-42"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no sink calls with audit disabled, got %d", got)
	}
}

func TestAuditLedgerBoundedAndQueryable(t *testing.T) {
	cfg := fastTestConfig()
	cfg.Audit.LedgerCapacity = 5
	sink := newCaptureSink(128)
	engine := newTestEngine(t, cfg, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if !engine.Put(ctx, "products", i) {
			t.Fatal("Put failed")
		}
	}
	// The ledger sink runs before the capture sink, so draining the
	// capture channel proves the ledger has every event.
	for i := 0; i < 8; i++ {
		sink.nextOfKind(t, auditEventDataStored)
	}

	events := engine.AuditEvents(ctx, AuditFilter{})
	if len(events) != 5 {
		t.Fatalf("expected ledger trimmed to capacity 5, got %d", len(events))
	}
	for _, event := range events {
		if event.Kind != auditEventDataStored {
			t.Fatalf("unexpected event kind %q", event.Kind)
		}
	}

	limited := engine.AuditEvents(ctx, AuditFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
	if limited[1].ID != events[len(events)-1].ID {
		t.Fatal("expected limit to keep the most recent events")
	}

	none := engine.AuditEvents(ctx, AuditFilter{Kind: auditEventLoginSuccess})
	if len(none) != 0 {
		t.Fatalf("expected kind filter to exclude stores, got %d", len(none))
	}
}

func TestAuditLedgerSurvivesRestart(t *testing.T) {
	storage := NewMemoryStorage()
	cfg := fastTestConfig()
	sink := newCaptureSink(16)
	ctx := context.Background()

	first, err := New().
		WithConfig(cfg).
		WithStorage(storage).
		WithInstallationKey(testInstallKey).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	first.Put(ctx, "products", "p")
	sink.nextOfKind(t, auditEventDataStored)
	first.Close()

	second := newSharedStorageEngine(t, cfg, storage)
	events := second.AuditEvents(ctx, AuditFilter{Kind: auditEventDataStored})
	if len(events) != 1 {
		t.Fatalf("expected persisted ledger entry after restart, got %d", len(events))
	}
}
