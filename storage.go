package possecure

import (
	"context"

	"github.com/tareeqa/possecure/internal/stores"
)

// Storage is the persistence medium the engine writes encoded artifacts
// to. Values are opaque strings; the engine never asks a Storage to
// interpret them. Get returns [ErrKeyNotFound] for absent keys; Remove
// of an absent key is a no-op. Watch delivers best-effort change
// notifications so the engine can invalidate cached state when another
// process mutates the same backing store.
//
// The shipped implementations live in internal/stores (memory, JSON
// file, Redis) and are selected through the [Builder]; callers can plug
// any backend that satisfies this interface via [Builder.WithStorage].
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// ChangeEvent is a best-effort storage mutation notification carrying
// the key plus old and new values.
type ChangeEvent = stores.ChangeEvent

// Change operation markers for [ChangeEvent].
const (
	ChangeSet    = stores.ChangeSet
	ChangeRemove = stores.ChangeRemove
)

// NewMemoryStorage returns the in-process map [Storage] backend.
func NewMemoryStorage() Storage {
	return stores.NewMemoryStore()
}

// NewFileStorage opens or creates the single-document JSON [Storage]
// backend at path.
func NewFileStorage(path string) (Storage, error) {
	return stores.NewFileStore(path)
}
