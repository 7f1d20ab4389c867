package stores

import "errors"

var (
	// ErrKeyNotFound is returned by Get/Remove when the key is absent.
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrStorageUnavailable wraps backend failures (Redis down, file
	// unwritable) so callers can distinguish them from missing keys.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
