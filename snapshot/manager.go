// Package snapshot signs and verifies the persisted session snapshot.
//
// The snapshot survives process restarts so an operator is not forced to
// log in again after an application relaunch. It is stored as a compact
// HS256 token keyed by the installation key: a snapshot edited on disk
// (for example to rewind the last-activity timestamp past the idle
// timeout) fails verification and restore falls back to logged-out.
package snapshot

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSnapshotInvalid marks a snapshot that failed signature or shape
	// verification.
	ErrSnapshotInvalid = errors.New("invalid session snapshot")
)

// Claims is the signed snapshot payload: enough to rebuild a Session
// without re-authentication, never any credential material.
type Claims struct {
	UID          string `json:"uid"`
	Username     string `json:"unm"`
	Role         string `json:"rol"`
	LoginAt      int64  `json:"lat"`
	LastActivity int64  `json:"act"`
	Locked       bool   `json:"lck"`
	jwt.RegisteredClaims
}

// Manager signs and parses snapshot tokens with a single symmetric key.
type Manager struct {
	key []byte
}

// NewManager returns a Manager keyed by the installation key.
func NewManager(key []byte) (*Manager, error) {
	if len(key) == 0 {
		return nil, errors.New("snapshot key required")
	}
	return &Manager{key: key}, nil
}

// Sign produces the snapshot token.
func (m *Manager) Sign(uid, username, role string, loginAt, lastActivity time.Time, locked bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:          uid,
		Username:     username,
		Role:         role,
		LoginAt:      loginAt.Unix(),
		LastActivity: lastActivity.Unix(),
		Locked:       locked,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// Parse verifies the token signature and returns the claims. The signing
// method is pinned to HS256; anything else is rejected.
func (m *Manager) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSnapshotInvalid
		}
		return m.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrSnapshotInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UID == "" {
		return nil, ErrSnapshotInvalid
	}

	return claims, nil
}
