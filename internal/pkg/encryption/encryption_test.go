package encryption_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/pkg/encryption"
)

func newSealer(t *testing.T) *encryption.AESSealer {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	s, err := encryption.NewAESSealer(key)
	require.NoError(t, err)
	return s
}

func TestNewAESSealer_KeyFormats(t *testing.T) {
	_, err := encryption.NewAESSealer(strings.Repeat("k", 32))
	assert.NoError(t, err)

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	_, err = encryption.NewAESSealer(key)
	assert.NoError(t, err)

	_, err = encryption.NewAESSealer("short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 32 bytes")
}

func TestAESSealer_RoundTripWithSessionBinding(t *testing.T) {
	s := newSealer(t)
	payload := []byte(`{"session_id":"s1","messages":[]}`)

	sealed, err := s.Seal(payload, []byte("s1"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "session_id")

	opened, err := s.Open(sealed, []byte("s1"))
	require.NoError(t, err)
	assert.Equal(t, payload, opened)
}

func TestAESSealer_Open_WrongSessionFails(t *testing.T) {
	s := newSealer(t)
	sealed, err := s.Seal([]byte("payload"), []byte("s1"))
	require.NoError(t, err)

	_, err = s.Open(sealed, []byte("s2"))

	assert.Error(t, err)
}

func TestAESSealer_Seal_NonceDiffers(t *testing.T) {
	s := newSealer(t)

	a, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestAESSealer_Open_Malformed(t *testing.T) {
	s := newSealer(t)

	_, err := s.Open([]byte("x"), nil)

	assert.ErrorIs(t, err, encryption.ErrMalformed)
}

func TestNoOpSealer(t *testing.T) {
	var s encryption.Sealer = encryption.NoOpSealer{}

	sealed, err := s.Seal([]byte("plain"), []byte("ignored"))
	require.NoError(t, err)
	opened, err := s.Open(sealed, nil)
	require.NoError(t, err)

	assert.Equal(t, []byte("plain"), opened)
}
