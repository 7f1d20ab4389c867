package possecure

import (
	"context"
	"errors"
	"log"
	"sync"
)

// auditLedger is the bounded persisted audit log. It sits behind the
// async dispatcher as a sink, so appends never block the operation that
// produced the event. Capacity is FIFO: once full, the oldest events are
// evicted. Persistence under the reserved audit key is best-effort; a
// failed write keeps the in-memory ledger intact.
type auditLedger struct {
	store    *secureStore
	capacity int

	mu     sync.Mutex
	events []AuditEvent
	loaded bool
}

func newAuditLedger(store *secureStore, capacity int) *auditLedger {
	if capacity <= 0 {
		capacity = 1
	}
	return &auditLedger{
		store:    store,
		capacity: capacity,
	}
}

// loadLocked seeds the ledger from its persisted form. A missing or
// corrupt record starts an empty ledger rather than failing: the audit
// trail is not worth blocking logins over.
func (l *auditLedger) loadLocked(ctx context.Context) {
	if l.loaded {
		return
	}
	l.loaded = true

	var events []AuditEvent
	if err := l.store.get(ctx, reservedAuditLog, &events); err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Print("possecure: audit ledger load failed")
		}
		return
	}
	if len(events) > l.capacity {
		events = events[len(events)-l.capacity:]
	}
	l.events = events
}

// Emit appends the event, evicts past capacity, and persists.
// Implements the audit sink contract.
func (l *auditLedger) Emit(ctx context.Context, event AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadLocked(ctx)

	l.events = append(l.events, event)
	if len(l.events) > l.capacity {
		l.events = l.events[len(l.events)-l.capacity:]
	}

	if err := l.store.put(ctx, reservedAuditLog, l.events); err != nil {
		log.Print("possecure: audit ledger persist failed")
	}
}

// query returns a snapshot of matching events, oldest to newest. A
// positive limit keeps only the most recent matches.
func (l *auditLedger) query(ctx context.Context, filter AuditFilter) []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadLocked(ctx)

	matched := make([]AuditEvent, 0, len(l.events))
	for _, event := range l.events {
		if filter.Kind != "" && event.Kind != filter.Kind {
			continue
		}
		matched = append(matched, event)
	}

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[len(matched)-filter.Limit:]
	}
	return matched
}
