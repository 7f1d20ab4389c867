package possecure

import (
	"errors"

	"github.com/tareeqa/possecure/internal/stores"
)

var (
	// ErrUnknownUser is an exported constant or variable used by the security engine.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInactiveAccount is an exported constant or variable used by the security engine.
	ErrInactiveAccount = errors.New("account deactivated")
	// ErrAccountLocked is an exported constant or variable used by the security engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredential is an exported constant or variable used by the security engine.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrDuplicateUsername is an exported constant or variable used by the security engine.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrNoActiveSession is an exported constant or variable used by the security engine.
	ErrNoActiveSession = errors.New("no active session")
	// ErrMigration is an exported constant or variable used by the security engine.
	ErrMigration = errors.New("legacy migration failed")
	// ErrEngineNotReady is an exported constant or variable used by the security engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrKeyNotFound is an exported constant or variable used by the security engine.
	ErrKeyNotFound = stores.ErrKeyNotFound
	// ErrStorageUnavailable is an exported constant or variable used by the security engine.
	ErrStorageUnavailable = stores.ErrStorageUnavailable
)
