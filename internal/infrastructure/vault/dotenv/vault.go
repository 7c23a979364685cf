// Package dotenv provides a vault backed by environment variables and .env
// files, for development and single-host deployments.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/steelcopilot/chat-service/internal/core/vault"
)

const scheme = "dotenv://"

// Vault implements vault.Vault. Lookups check the process environment first,
// then secrets loaded from files or stored at runtime.
type Vault struct {
	secrets map[string]string
	mu      sync.RWMutex
}

// NewVault creates a vault seeded from the given .env files. Missing files
// are an error; pass none to rely on the environment alone.
func NewVault(files ...string) (*Vault, error) {
	secrets := make(map[string]string)
	if len(files) > 0 {
		loaded, err := godotenv.Read(files...)
		if err != nil {
			return nil, fmt.Errorf("failed to read secrets file: %w", err)
		}
		secrets = loaded
	}
	return &Vault{secrets: secrets}, nil
}

// StoreSecret stores a secret in memory and returns its "dotenv://" reference.
func (v *Vault) StoreSecret(_ context.Context, key string, value string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("secret key is required")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.secrets[key] = value
	return scheme + key, nil
}

// GetSecret resolves a "dotenv://KEY" reference. A bare key is accepted too.
func (v *Vault) GetSecret(_ context.Context, uri string) (string, error) {
	if strings.Contains(uri, "://") && !strings.HasPrefix(uri, scheme) {
		return "", fmt.Errorf("unsupported secret reference %q", uri)
	}
	key := strings.TrimPrefix(uri, scheme)

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if value, ok := v.secrets[key]; ok {
		return value, nil
	}

	return "", fmt.Errorf("%w: %s", vault.ErrSecretNotFound, key)
}

// Ping always succeeds.
func (v *Vault) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (v *Vault) Close() error {
	return nil
}
