package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("password1", 4)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hash, "password1"))
	require.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestHashPasswordFallsBackOnBadCost(t *testing.T) {
	// bcrypt rejects costs above 31; the helper substitutes the default
	// instead of surfacing the error.
	hash, err := HashPassword("password1", 99)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hash, "password1"))
}
