package dotenv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelcopilot/chat-service/internal/core/vault"
	"github.com/steelcopilot/chat-service/internal/infrastructure/vault/dotenv"
)

func TestVault_StoreAndGetSecret(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)
	ctx := context.Background()

	uri, err := v.StoreSecret(ctx, "CHAT_TEST_SECRET", "secret-value")
	require.NoError(t, err)
	assert.Equal(t, "dotenv://CHAT_TEST_SECRET", uri)

	value, err := v.GetSecret(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, "secret-value", value)
}

func TestVault_StoreSecret_EmptyKey(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)

	_, err = v.StoreSecret(context.Background(), "", "x")

	assert.Error(t, err)
}

func TestVault_GetSecret_EnvironmentWins(t *testing.T) {
	t.Setenv("CHAT_TEST_ENV_SECRET", "from-env")
	v, err := dotenv.NewVault()
	require.NoError(t, err)
	_, err = v.StoreSecret(context.Background(), "CHAT_TEST_ENV_SECRET", "from-memory")
	require.NoError(t, err)

	value, err := v.GetSecret(context.Background(), "dotenv://CHAT_TEST_ENV_SECRET")

	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestVault_GetSecret_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("AZURE_OPENAI_KEY_FILE_TEST=file-key\n"), 0o600))

	v, err := dotenv.NewVault(path)
	require.NoError(t, err)

	value, err := v.GetSecret(context.Background(), "AZURE_OPENAI_KEY_FILE_TEST")
	require.NoError(t, err)
	assert.Equal(t, "file-key", value)
}

func TestNewVault_MissingFile(t *testing.T) {
	_, err := dotenv.NewVault(filepath.Join(t.TempDir(), "absent.env"))

	assert.Error(t, err)
}

func TestVault_GetSecret_NotFound(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)

	value, err := v.GetSecret(context.Background(), "dotenv://CHAT_TEST_MISSING")

	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
	assert.Empty(t, value)
}

func TestVault_GetSecret_UnsupportedScheme(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)

	_, err = v.GetSecret(context.Background(), "azure://kv/secret")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported secret reference")
}

func TestResolve(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)
	ctx := context.Background()
	ref, err := v.StoreSecret(ctx, "CHAT_TEST_RESOLVE", "resolved")
	require.NoError(t, err)

	got, err := vault.Resolve(ctx, v, "explicit", ref)
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	got, err = vault.Resolve(ctx, v, "", ref)
	require.NoError(t, err)
	assert.Equal(t, "resolved", got)

	got, err = vault.Resolve(ctx, v, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVault_PingClose(t *testing.T) {
	v, err := dotenv.NewVault()
	require.NoError(t, err)

	assert.NoError(t, v.Ping(context.Background()))
	assert.NoError(t, v.Close())
}
