package apikey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	key, err := Generate()
	require.NoError(t, err)
	require.Len(t, key, 32)
	hash, err := Hash(key)
	require.NoError(t, err)

	v := NewVerifier([]string{"plain-key"}, []string{hash})
	require.True(t, v.Enabled())
	require.True(t, v.Verify("plain-key"))
	require.True(t, v.Verify(key))
	require.False(t, v.Verify("wrong"))
	require.False(t, v.Verify(""))
	require.False(t, NewVerifier(nil, nil).Enabled())
}
