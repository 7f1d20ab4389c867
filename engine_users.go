package possecure

import (
	"context"
	"fmt"
	"log"
)

// CreateUser describes the createuser operation and its observable behavior.
//
// CreateUser may return an error when input validation, dependency calls, or security checks fail.
// CreateUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	if e == nil || e.credentials == nil {
		return User{}, ErrEngineNotReady
	}
	if e.roles != nil {
		if _, ok := e.roles.Get(input.Role); !ok {
			return User{}, fmt.Errorf("unknown role %q", input.Role)
		}
	}

	user, err := e.credentials.create(ctx, input)
	if err != nil {
		return User{}, err
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreated, true, user.ID, user.Username, nil, func() map[string]string {
		return map[string]string{
			"role": user.Role,
		}
	})

	return user.sanitized(), nil
}

// DeactivateUser describes the deactivateuser operation and its observable behavior.
//
// DeactivateUser may return an error when input validation, dependency calls, or security checks fail.
// DeactivateUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeactivateUser(ctx context.Context, username string) (User, error) {
	if e == nil || e.credentials == nil {
		return User{}, ErrEngineNotReady
	}

	user, err := e.credentials.deactivate(ctx, username)
	if err != nil {
		return User{}, err
	}

	// A deactivated account cannot keep an open session.
	e.mu.Lock()
	evict := e.session != nil && e.session.User.ID == user.ID
	e.mu.Unlock()
	if evict {
		if logoutErr := e.Logout(ctx); logoutErr != nil {
			log.Print("possecure: post-deactivation logout failed")
		}
	}

	e.metricInc(MetricUserDeactivated)
	e.emitAudit(ctx, auditEventUserDeactivated, true, user.ID, user.Username, nil, nil)

	return user.sanitized(), nil
}

// ChangeSecret describes the changesecret operation and its observable behavior.
//
// ChangeSecret may return an error when input validation, dependency calls, or security checks fail.
// ChangeSecret does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangeSecret(ctx context.Context, username, currentSecret, newSecret string) error {
	if e == nil || e.credentials == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	user, err := e.credentials.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	ok, _, err := e.credentials.verifySecret(user, currentSecret)
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventSecretChanged, false, user.ID, user.Username, ErrInvalidCredential, func() map[string]string {
			return map[string]string{
				"reason": "current_secret_mismatch",
			}
		})
		return ErrInvalidCredential
	}
	if newSecret == currentSecret {
		return fmt.Errorf("new secret must differ from the current secret")
	}
	currentSecret = ""

	newHash, err := e.hasher.Hash(newSecret)
	if err != nil {
		return err
	}
	newSecret = ""

	if err := e.credentials.updateSecret(ctx, user.Username, newHash); err != nil {
		return err
	}

	e.metricInc(MetricSecretChanged)
	e.emitAudit(ctx, auditEventSecretChanged, true, user.ID, user.Username, nil, nil)
	return nil
}

// Users describes the users operation and its observable behavior.
//
// Users may return an error when input validation, dependency calls, or security checks fail.
// Users does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Users(ctx context.Context) ([]User, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}
	return e.credentials.list(ctx)
}
