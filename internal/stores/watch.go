package stores

import (
	"context"
	"sync"
)

// ChangeOp identifies the mutation a ChangeEvent describes.
type ChangeOp uint8

const (
	ChangeSet ChangeOp = iota
	ChangeRemove
)

// ChangeEvent is a best-effort notification that a key was mutated.
// OldValue is empty when the key did not previously exist; NewValue is
// empty for removals.
type ChangeEvent struct {
	Key      string   `json:"key"`
	Op       ChangeOp `json:"op"`
	OldValue string   `json:"old,omitempty"`
	NewValue string   `json:"new,omitempty"`
}

const watchBufferSize = 64

// watchHub fans ChangeEvents out to Watch subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event
// rather than stalling the mutating caller.
type watchHub struct {
	mu   sync.Mutex
	subs map[chan ChangeEvent]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[chan ChangeEvent]struct{})}
}

func (h *watchHub) subscribe(ctx context.Context) <-chan ChangeEvent {
	ch := make(chan ChangeEvent, watchBufferSize)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (h *watchHub) publish(event ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
