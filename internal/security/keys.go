package security

import (
	"encoding/base64"
	"errors"
)

// ErrInvalidKey is returned when the configured signing key is missing, not
// valid base64, or too short for HS256.
var ErrInvalidKey = errors.New("invalid signing key")

// minKeyBytes is the minimum decoded key length accepted for HS256.
const minKeyBytes = 32

// ParseSigningKey decodes the base64-encoded symmetric signing key from
// configuration. The returned key is process-wide and read-only after startup.
func ParseSigningKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrInvalidKey
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(key) < minKeyBytes {
		return nil, ErrInvalidKey
	}
	return key, nil
}
