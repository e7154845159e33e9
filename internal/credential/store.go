// Package credential defines the lookup boundary for secrets required by
// tools. The executor checks availability before attempting any node whose
// tools need a credential and surfaces a structural failure rather than
// attempting the call. Storage and encryption are out of scope here.
package credential

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aden-hq/hive/internal/types"
)

// Secret is an opaque secret value.
type Secret string

// Store is the credential lookup interface consumed by the engine.
// Implementations must be safe for concurrent read; they are treated as
// read-only shared state while runs execute.
type Store interface {
	// IsAvailable reports whether a secret with the given name can be
	// resolved without error.
	IsAvailable(name string) bool

	// Get resolves a secret by name, failing with a MISSING_CREDENTIAL
	// error when it is absent.
	Get(name string) (Secret, error)
}

// StaticStore is an in-memory Store seeded from configuration or tests.
type StaticStore struct {
	mu      sync.RWMutex
	secrets map[string]Secret
}

// NewStaticStore creates a StaticStore seeded with the given secrets.
func NewStaticStore(secrets map[string]Secret) *StaticStore {
	s := &StaticStore{secrets: make(map[string]Secret, len(secrets))}
	for name, secret := range secrets {
		s.secrets[name] = secret
	}
	return s
}

// Set adds or replaces a secret.
func (s *StaticStore) Set(name string, secret Secret) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = secret
}

// IsAvailable implements Store.
func (s *StaticStore) IsAvailable(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.secrets[name]
	return ok
}

// Get implements Store.
func (s *StaticStore) Get(name string) (Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[name]
	if !ok {
		return "", types.NewError(types.MISSING_CREDENTIAL,
			fmt.Sprintf("credential %q is not available", name))
	}
	return secret, nil
}

// EnvStore resolves secrets from environment variables. A credential name
// is upper-cased, dashes become underscores, and the configured prefix is
// prepended ("calcom-api-key" with prefix "HIVE_" reads HIVE_CALCOM_API_KEY).
type EnvStore struct {
	prefix string
}

// NewEnvStore creates an EnvStore with the given variable prefix.
func NewEnvStore(prefix string) *EnvStore {
	return &EnvStore{prefix: prefix}
}

func (s *EnvStore) varName(name string) string {
	v := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return s.prefix + v
}

// IsAvailable implements Store.
func (s *EnvStore) IsAvailable(name string) bool {
	v, ok := os.LookupEnv(s.varName(name))
	return ok && v != ""
}

// Get implements Store.
func (s *EnvStore) Get(name string) (Secret, error) {
	v, ok := os.LookupEnv(s.varName(name))
	if !ok || v == "" {
		return "", types.NewError(types.MISSING_CREDENTIAL,
			fmt.Sprintf("credential %q is not available (looked up %s)", name, s.varName(name)))
	}
	return Secret(v), nil
}
