package possecure

import (
	"context"

	"github.com/tareeqa/possecure/permission"
)

// HasPermission describes the haspermission operation and its observable behavior.
//
// HasPermission does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HasPermission(ctx context.Context, key string) bool {
	role, ok := e.activeRole()
	if !ok {
		return false
	}
	e.Touch(ctx)
	return e.roles.Allowed(role, key)
}

// HasAnyPermission describes the hasanypermission operation and its observable behavior.
//
// HasAnyPermission does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HasAnyPermission(ctx context.Context, keys ...string) bool {
	role, ok := e.activeRole()
	if !ok {
		return false
	}
	e.Touch(ctx)
	return e.roles.AllowedAny(role, keys)
}

// HasAllPermissions describes the hasallpermissions operation and its observable behavior.
//
// HasAllPermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) HasAllPermissions(ctx context.Context, keys ...string) bool {
	role, ok := e.activeRole()
	if !ok {
		return false
	}
	e.Touch(ctx)
	return e.roles.AllowedAll(role, keys)
}

// activeRole returns the current session's role. A locked or absent
// session carries no permissions at all.
func (e *Engine) activeRole() (string, bool) {
	if e == nil || e.roles == nil {
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.Locked {
		return "", false
	}
	return e.session.User.Role, true
}

// RolePermissions describes the rolepermissions operation and its observable behavior.
//
// RolePermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RolePermissions(role string) (keys []string, wildcard bool, ok bool) {
	if e == nil || e.roles == nil {
		return nil, false, false
	}
	return e.roles.Permissions(role)
}

// Roles describes the roles operation and its observable behavior.
//
// Roles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Roles() []*permission.Role {
	if e == nil || e.roles == nil {
		return nil
	}
	return e.roles.Roles()
}

// PermissionKeys describes the permissionkeys operation and its observable behavior.
//
// PermissionKeys does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PermissionKeys() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Keys()
}
