package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// VersionTag prefixes every encoded artifact. Its absence marks a
	// legacy plaintext record.
	VersionTag = "ENCRYPTED_V1:"

	// SchemaVersion is embedded in the envelope.
	SchemaVersion = "1.0"
)

var (
	// ErrEncoding wraps any internal failure while producing or parsing
	// an artifact other than a checksum mismatch.
	ErrEncoding = errors.New("encoding error")
	// ErrIntegrity signals that the recomputed payload checksum does not
	// match the embedded checksum: the artifact was corrupted or tampered.
	ErrIntegrity = errors.New("integrity check failed")
)

type envelope struct {
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Checksum  string `json:"checksum"`
	Version   string `json:"version"`
}

// Encode serializes value, wraps it in the checksummed envelope, applies
// compaction and the keyed transform, and returns the version-tagged
// artifact string. It fails only for values json cannot serialize or an
// empty key.
func Encode(value any, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrEncoding)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	env := envelope{
		Data:      string(payload),
		Timestamp: time.Now().UnixMilli(),
		Checksum:  Checksum(payload),
		Version:   SchemaVersion,
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	transformed := Transform(compact(raw), []byte(key))

	return VersionTag + base64.StdEncoding.EncodeToString(transformed), nil
}

// Decode reverses Encode into out. Artifacts without the version tag are
// deserialized as legacy plaintext JSON. A checksum mismatch returns an
// error matching [ErrIntegrity]; every other malformation matches
// [ErrEncoding].
func Decode(artifact, key string, out any) error {
	if !strings.HasPrefix(artifact, VersionTag) {
		if err := json.Unmarshal([]byte(artifact), out); err != nil {
			return fmt.Errorf("%w: legacy payload: %v", ErrEncoding, err)
		}
		return nil
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrEncoding)
	}

	transformed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(artifact, VersionTag))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	raw, err := decompact(Transform(transformed, []byte(key)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", ErrEncoding, err)
	}

	if Checksum([]byte(env.Data)) != env.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrIntegrity)
	}

	if err := json.Unmarshal([]byte(env.Data), out); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrEncoding, err)
	}
	return nil
}

// IsEncoded reports whether artifact carries the version tag.
func IsEncoded(artifact string) bool {
	return strings.HasPrefix(artifact, VersionTag)
}
