package auth

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSecretKey reads the signing key at path, generating and persisting a
// random one the first time.
func LoadSecretKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) == 0 {
			return nil, fmt.Errorf("JWT secret key %s is empty", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read JWT secret key: %w", err)
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random JWT secret key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create JWT secret key directory: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return nil, fmt.Errorf("failed to write JWT secret key: %w", err)
	}
	return b, nil
}
