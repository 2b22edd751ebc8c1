package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringBackend keeps the token in the operating system keychain.
type KeyringBackend struct {
	service string
	user    string
}

// NewKeyringBackend creates a backend for the given service and account.
func NewKeyringBackend(service, user string) *KeyringBackend {
	return &KeyringBackend{service: service, user: user}
}

// Load reads the token. A missing entry means no token.
func (b *KeyringBackend) Load() (string, error) {
	token, err := keyring.Get(b.service, b.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}

		return "", fmt.Errorf("reading keyring entry: %w", err)
	}

	return token, nil
}

// Save writes the token.
func (b *KeyringBackend) Save(token string) error {
	err := keyring.Set(b.service, b.user, token)
	if err != nil {
		return fmt.Errorf("writing keyring entry: %w", err)
	}

	return nil
}

// Delete removes the entry. A missing entry is not an error.
func (b *KeyringBackend) Delete() error {
	err := keyring.Delete(b.service, b.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting keyring entry: %w", err)
	}

	return nil
}
