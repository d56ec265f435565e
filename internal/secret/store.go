// Package secret resolves credentials that must not live in config.yaml,
// such as the archive database password.
package secret

import (
	"os"
	"sync"
)

// SecretStore stores sensitive values by key.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns nil and no error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// ArchiveKey is the keychain account holding the archive password for a
// driver, e.g. "archive:postgres".
func ArchiveKey(driver string) string {
	return "archive:" + driver
}

// Resolve returns the value of envVar when set, otherwise the stored secret
// for key. A nil store skips the lookup.
func Resolve(store SecretStore, envVar, key string) (string, error) {
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}
	if store == nil {
		return "", nil
	}
	v, err := store.Get(key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// MemoryStore keeps secrets in process memory. Used by tests and headless
// runs without a keychain.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
