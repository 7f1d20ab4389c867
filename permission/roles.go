package permission

import (
	"errors"
	"sort"
	"sync"
)

// Role is a named bundle of permissions. Priority orders display only
// (lower is more privileged); Wildcard marks the "all permissions"
// sentinel.
type Role struct {
	Name     string
	Label    string
	Priority int
	Wildcard bool

	mask Mask
}

// Table resolves role names to precomputed permission masks. It is built
// once at engine construction and frozen; the design does not preclude a
// caller loading role definitions from elsewhere before Build.
type Table struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]*Role
	frozen bool
}

// NewTable creates an empty role [Table] over the given registry.
func NewTable(registry *Registry) *Table {
	return &Table{
		registry: registry,
		roles:    make(map[string]*Role),
	}
}

// Register adds a role granting the listed permission keys. Every key
// must already be registered.
func (t *Table) Register(name, label string, priority int, keys []string) error {
	return t.register(name, label, priority, keys, false)
}

// RegisterWildcard adds a role granting every permission, present and
// future.
func (t *Table) RegisterWildcard(name, label string, priority int) error {
	return t.register(name, label, priority, nil, true)
}

func (t *Table) register(name, label string, priority int, keys []string, wildcard bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New("role table frozen")
	}
	if name == "" {
		return errors.New("role name empty")
	}
	if _, exists := t.roles[name]; exists {
		return errors.New("role already registered: " + name)
	}

	mask, err := newMask(t.registry.MaxBits())
	if err != nil {
		return err
	}

	if wildcard {
		mask.SetWildcard()
	}
	for _, key := range keys {
		bit, ok := t.registry.Bit(key)
		if !ok {
			return errors.New("permission not registered: " + key)
		}
		mask.Set(bit)
	}

	t.roles[name] = &Role{
		Name:     name,
		Label:    label,
		Priority: priority,
		Wildcard: wildcard,
		mask:     mask,
	}
	return nil
}

// Get returns the named role.
func (t *Table) Get(name string) (*Role, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	role, ok := t.roles[name]
	return role, ok
}

// Mask returns the precomputed mask for the named role.
func (t *Table) Mask(name string) (Mask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	role, ok := t.roles[name]
	if !ok {
		return nil, false
	}
	return role.mask, true
}

// Permissions returns the explicit permission keys granted to the named
// role, or all=true for a wildcard role.
func (t *Table) Permissions(name string) (keys []string, all bool, ok bool) {
	t.mu.RLock()
	role, found := t.roles[name]
	t.mu.RUnlock()
	if !found {
		return nil, false, false
	}
	if role.Wildcard {
		return nil, true, true
	}

	for bit := 0; bit < t.registry.Count(); bit++ {
		key, exists := t.registry.Key(bit)
		if !exists {
			continue
		}
		if role.mask.Has(bit) {
			keys = append(keys, key)
		}
	}
	return keys, false, true
}

// Roles returns all registered roles sorted by priority, then name.
func (t *Table) Roles() []*Role {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Role, 0, len(t.roles))
	for _, role := range t.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Allowed reports whether the named role grants the permission key.
// Pure and deterministic; unknown roles and unregistered keys answer
// false, wildcard roles answer true for any key.
func (t *Table) Allowed(role, key string) bool {
	mask, ok := t.Mask(role)
	if !ok {
		return false
	}
	if mask.Wildcard() {
		return true
	}

	bit, ok := t.registry.Bit(key)
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// AllowedAny reports whether the role grants at least one of keys.
// Short-circuits on the first grant.
func (t *Table) AllowedAny(role string, keys []string) bool {
	for _, key := range keys {
		if t.Allowed(role, key) {
			return true
		}
	}
	return false
}

// AllowedAll reports whether the role grants every key. Short-circuits
// on the first denial; vacuously true for an empty list.
func (t *Table) AllowedAll(role string, keys []string) bool {
	for _, key := range keys {
		if !t.Allowed(role, key) {
			return false
		}
	}
	return true
}

// Freeze prevents further role registration.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}
