package permission

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Definition declares one guardable capability: a dotted key plus its
// display category.
type Definition struct {
	Key      string
	Category string
}

// Registry maps dotted permission keys to bit positions within a mask.
// Supported widths are 64 and 128 bits; the top bit is reserved for the
// wildcard in both.
type Registry struct {
	maxBits int

	mu         sync.RWMutex
	keyToBit   map[string]int
	bitToKey   map[int]string
	categories map[string]string
	frozen     bool
}

// NewRegistry creates a permission [Registry]. maxBits selects the mask
// width (64 or 128).
func NewRegistry(maxBits int) (*Registry, error) {
	if maxBits != 64 && maxBits != 128 {
		return nil, errors.New("invalid maxBits")
	}

	return &Registry{
		maxBits:    maxBits,
		keyToBit:   make(map[string]int),
		bitToKey:   make(map[int]string),
		categories: make(map[string]string),
	}, nil
}

// Register assigns the next available bit to the keyed permission.
// Returns the assigned bit index. Must be called before [Registry.Freeze].
func (r *Registry) Register(def Definition) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}

	key := strings.TrimSpace(def.Key)
	if key == "" {
		return -1, errors.New("permission key cannot be empty")
	}
	if !strings.Contains(key, ".") {
		return -1, errors.New("permission key must be dotted (domain.action): " + key)
	}

	if _, exists := r.keyToBit[key]; exists {
		return -1, errors.New("permission already registered: " + key)
	}

	nextBit := len(r.keyToBit)
	// Top bit is the wildcard.
	if nextBit >= r.maxBits-1 {
		return -1, errors.New("permission limit exceeded (wildcard bit reserved)")
	}

	r.keyToBit[key] = nextBit
	r.bitToKey[nextBit] = key
	r.categories[key] = def.Category

	return nextBit, nil
}

// Bit returns the bit index for the keyed permission, or false if not registered.
func (r *Registry) Bit(key string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.keyToBit[key]
	return bit, ok
}

// Key returns the permission key for the given bit index, or false if unassigned.
func (r *Registry) Key(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.bitToKey[bit]
	return key, ok
}

// Category returns the category tag recorded for the keyed permission.
func (r *Registry) Category(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cat, ok := r.categories[key]
	return cat, ok
}

// Keys returns all registered permission keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.keyToBit))
	for key := range r.keyToBit {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keyToBit)
}

// MaxBits returns the configured mask width.
func (r *Registry) MaxBits() int {
	return r.maxBits
}

// Freeze prevents further registrations. Must be called before the
// registry is used for evaluation.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
