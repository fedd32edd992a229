package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2hunter2", hash)

	require.True(t, VerifyPassword("hunter2hunter2", hash))
	require.False(t, VerifyPassword("wrong-password", hash))
}

func TestCompareDigest(t *testing.T) {
	require.True(t, CompareDigest("deadbeef", "deadbeef"))
	require.True(t, CompareDigest("DEADBEEF", "deadbeef"))
	require.False(t, CompareDigest("deadbeef", "deadbeee"))
	require.False(t, CompareDigest("", "deadbeef"))
	require.False(t, CompareDigest("deadbeef00", "deadbeef"))
}
