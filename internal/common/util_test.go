package common

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNonce_AlphabetAndLength(t *testing.T) {
	s, err := MakeNonce(AuthStateLength)
	require.NoError(t, err)
	require.Len(t, s, AuthStateLength)

	for _, r := range s {
		assert.True(t, strings.ContainsRune(nonceAlphabet, r), "unexpected rune %q", r)
	}
}

func TestMakeNonce_EntropyHint(t *testing.T) {
	a, err := MakeNonce(32)
	require.NoError(t, err)
	b, err := MakeNonce(32)
	require.NoError(t, err)

	if a == b {
		t.Logf("warning: two MakeNonce(32) results are identical; extremely unlikely")
	}
}

func TestNewLocalID_IsUUID(t *testing.T) {
	id := NewLocalID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewLocalID())
}
