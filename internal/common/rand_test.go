package common

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandURLSafeString(t *testing.T) {
	t.Parallel()

	s, err := MakeRandURLSafeString(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestMakeRandURLSafeString_Distinct(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		s, err := MakeRandURLSafeString(32)
		require.NoError(t, err)
		if _, ok := seen[s]; ok {
			t.Fatalf("duplicate random string: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestWipeByteArray(t *testing.T) {
	t.Parallel()

	b := []byte("hunter2")
	WipeByteArray(b)
	for i, v := range b {
		assert.Zerof(t, v, "byte %d not wiped", i)
	}

	WipeByteArray(nil) // must not panic
}
