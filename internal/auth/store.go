package auth

import (
	"github.com/regsense/assistant-gateway/internal/config"
)

// KeyStore resolves an API key hash to its metadata.
type KeyStore interface {
	Lookup(keyHash string) (*KeyMetadata, bool)
	// Empty reports whether no keys are configured at all, which switches
	// the middleware into stub mode.
	Empty() bool
}

// KeyMetadata describes one accepted API key.
type KeyMetadata struct {
	Name string
}

// StaticKeyStore holds key hashes loaded from config. There is no real
// identity system behind this gateway; a flat hash list is all it needs.
type StaticKeyStore struct {
	keys map[string]KeyMetadata
}

func NewStaticKeyStore(cfg config.AuthConfig) *StaticKeyStore {
	keys := make(map[string]KeyMetadata, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[k.Hash] = KeyMetadata{Name: k.Name}
	}
	return &StaticKeyStore{keys: keys}
}

func (s *StaticKeyStore) Lookup(keyHash string) (*KeyMetadata, bool) {
	meta, ok := s.keys[keyHash]
	if !ok {
		return nil, false
	}
	return &meta, true
}

func (s *StaticKeyStore) Empty() bool {
	return len(s.keys) == 0
}
