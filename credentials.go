package possecure

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tareeqa/possecure/password"
)

// credentialStore owns user records: one encrypted map persisted under
// the reserved users key, mirrored by an in-process cache. The cache is
// dropped whenever a storage change notification reports an external
// write to that key, so two terminals sharing a backend converge.
type credentialStore struct {
	store   *secureStore
	hasher  *password.Hasher
	lockout LockoutConfig

	mu     sync.Mutex
	cache  map[string]User
	cached bool
}

func newCredentialStore(store *secureStore, hasher *password.Hasher, lockout LockoutConfig) *credentialStore {
	return &credentialStore{
		store:   store,
		hasher:  hasher,
		lockout: lockout,
	}
}

// invalidate drops the cache. Called from the storage watch loop.
func (c *credentialStore) invalidate() {
	c.mu.Lock()
	c.cache = nil
	c.cached = false
	c.mu.Unlock()
}

// loadLocked fills the cache from storage. A missing users record is an
// empty store, not an error.
func (c *credentialStore) loadLocked(ctx context.Context) error {
	if c.cached {
		return nil
	}

	users := make(map[string]User)
	if err := c.store.get(ctx, reservedUsers, &users); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	c.cache = users
	c.cached = true
	return nil
}

func (c *credentialStore) persistLocked(ctx context.Context) error {
	return c.store.put(ctx, reservedUsers, c.cache)
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (c *credentialStore) findByUsername(ctx context.Context, username string) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return User{}, err
	}

	user, ok := c.cache[normalizeUsername(username)]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return user, nil
}

func (c *credentialStore) findByID(ctx context.Context, userID string) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return User{}, err
	}

	for _, user := range c.cache {
		if user.ID == userID {
			return user, nil
		}
	}
	return User{}, ErrUnknownUser
}

func (c *credentialStore) create(ctx context.Context, input CreateUserInput) (User, error) {
	username := normalizeUsername(input.Username)
	if username == "" {
		return User{}, ErrInvalidCredential
	}

	salt, err := password.NewSalt()
	if err != nil {
		return User{}, err
	}
	hash, err := c.hasher.Hash(input.Secret)
	if err != nil {
		return User{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return User{}, err
	}
	if _, exists := c.cache[username]; exists {
		return User{}, ErrDuplicateUsername
	}

	user := User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: input.DisplayName,
		Role:        input.Role,
		Active:      true,
		SecretHash:  hash,
		SecretSalt:  salt,
		CreatedAt:   time.Now().UTC(),
	}

	c.cache[username] = user
	if err := c.persistLocked(ctx); err != nil {
		delete(c.cache, username)
		return User{}, err
	}

	return user, nil
}

// verifySecret checks a candidate secret against the stored hash. It
// also reports whether the stored hash uses the legacy digest and
// should be rehashed after a successful login.
func (c *credentialStore) verifySecret(user User, secret string) (ok, needsUpgrade bool, err error) {
	ok, err = c.hasher.Verify(secret, user.SecretHash, user.SecretSalt)
	if err != nil || !ok {
		return ok, false, err
	}

	needsUpgrade, err = c.hasher.NeedsUpgrade(user.SecretHash)
	if err != nil {
		// A hash that verified but cannot be inspected is left alone.
		return true, false, nil
	}
	return true, needsUpgrade, nil
}

// lockedOut reports whether the user is inside an unexpired lockout
// window.
func (c *credentialStore) lockedOut(user User, now time.Time) bool {
	return user.LockedUntil != nil && now.Before(*user.LockedUntil)
}

// recordFailure advances the lockout state machine after a failed
// verification. It returns true when this failure crossed the threshold
// and locked the account.
func (c *credentialStore) recordFailure(ctx context.Context, username string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return false, err
	}

	key := normalizeUsername(username)
	user, ok := c.cache[key]
	if !ok {
		return false, ErrUnknownUser
	}

	now := time.Now()

	// An expired lockout window clears the counter; the user starts a
	// fresh attempt budget rather than re-locking on the next failure.
	if user.LockedUntil != nil && !now.Before(*user.LockedUntil) {
		user.FailedAttempts = 0
		user.LockedUntil = nil
	}

	user.FailedAttempts++
	locked := false
	if user.FailedAttempts >= c.lockout.Threshold {
		until := now.Add(c.lockout.Duration)
		user.LockedUntil = &until
		locked = true
	}

	c.cache[key] = user
	return locked, c.persistLocked(ctx)
}

// recordSuccess resets lockout state after a successful verification and
// stamps the login time. A non-empty upgradedHash replaces the stored
// legacy hash.
func (c *credentialStore) recordSuccess(ctx context.Context, username, upgradedHash string) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return User{}, err
	}

	key := normalizeUsername(username)
	user, ok := c.cache[key]
	if !ok {
		return User{}, ErrUnknownUser
	}

	now := time.Now().UTC()
	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	if upgradedHash != "" {
		user.SecretHash = upgradedHash
	}

	c.cache[key] = user
	return user, c.persistLocked(ctx)
}

func (c *credentialStore) updateSecret(ctx context.Context, username, newHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	key := normalizeUsername(username)
	user, ok := c.cache[key]
	if !ok {
		return ErrUnknownUser
	}

	user.SecretHash = newHash
	c.cache[key] = user
	return c.persistLocked(ctx)
}

func (c *credentialStore) deactivate(ctx context.Context, username string) (User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return User{}, err
	}

	key := normalizeUsername(username)
	user, ok := c.cache[key]
	if !ok {
		return User{}, ErrUnknownUser
	}

	user.Active = false
	c.cache[key] = user
	return user, c.persistLocked(ctx)
}

// list returns sanitized copies of every user, ordered by username.
func (c *credentialStore) list(ctx context.Context) ([]User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(c.cache))
	for username := range c.cache {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	users := make([]User, 0, len(usernames))
	for _, username := range usernames {
		users = append(users, c.cache[username].sanitized())
	}
	return users, nil
}
