// Package vault defines secret lookup for credentials referenced from
// configuration, such as the completion API key.
package vault

import (
	"context"
	"errors"
)

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv resolves secrets from the environment and .env files.
	TypeDotEnv Type = "dotenv"
)

// ErrSecretNotFound is returned when a reference resolves to nothing.
var ErrSecretNotFound = errors.New("secret not found")

// Vault resolves secret references of the form "<scheme>://<key>".
type Vault interface {
	// GetSecret returns the secret value for uri.
	GetSecret(ctx context.Context, uri string) (string, error)

	// StoreSecret keeps value under key and returns its reference.
	StoreSecret(ctx context.Context, key string, value string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Resolve returns value when set, otherwise the secret behind ref. An empty
// ref yields an empty value.
func Resolve(ctx context.Context, v Vault, value, ref string) (string, error) {
	if value != "" || ref == "" {
		return value, nil
	}
	return v.GetSecret(ctx, ref)
}
