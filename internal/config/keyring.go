package config

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name kissa registers under in the OS keychain.
	KeyringService = "kissa"
	// KeyringIdentityItem stores an optional opaque identity/auth token; no
	// kissa command reads or writes it, and nothing in the core
	// scan/classify/plan path reads it.
	KeyringIdentityItem = "identity-token"
)

// KeyringManager wraps OS-keychain access for the one secret kissa ever
// stores: an optional identity token. No kissa command constructs one.
type KeyringManager struct{}

func NewKeyringManager() *KeyringManager { return &KeyringManager{} }

func (km *KeyringManager) SetIdentityToken(token string) error {
	if token == "" {
		return fmt.Errorf("identity token cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringIdentityItem, token); err != nil {
		return fmt.Errorf("save identity token to OS keychain: %w", err)
	}
	return nil
}

func (km *KeyringManager) GetIdentityToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringIdentityItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read identity token from OS keychain: %w", err)
	}
	return token, nil
}

func (km *KeyringManager) DeleteIdentityToken() error {
	err := keyring.Delete(KeyringService, KeyringIdentityItem)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete identity token from OS keychain: %w", err)
	}
	return nil
}

// IsAvailable reports whether the OS keychain backend can be reached at all
// (false on headless Linux systems lacking a Secret Service provider).
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "availability-probe")
	if err == keyring.ErrNotFound {
		return true
	}
	return err == nil
}
