package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLSafeString returns an unguessable random string built from size
// bytes of crypto/rand output, encoded with the unpadded URL-safe base64
// alphabet. With size 32 the result carries 256 bits of entropy, which makes
// collisions with previously issued strings negligible.
//
// It returns an error only if the random number generator fails.
func MakeRandURLSafeString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with
// zeros. Useful for removing passwords from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
