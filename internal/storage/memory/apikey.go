package memory

import (
	"context"
	"sync"

	"github.com/yndnr/claimledger-go/internal/core/domain"
)

// APIKeyStore provides in-memory storage for API keys.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.APIKey
}

// NewAPIKeyStore creates an empty API key store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys: make(map[string]*domain.APIKey),
	}
}

// Replace validates keys and swaps them in as the whole key set.
// Addresses are stored in checksummed form. On error nothing changes.
func (s *APIKeyStore) Replace(keys []domain.APIKey) error {
	next := make(map[string]*domain.APIKey, len(keys))
	for i := range keys {
		key := keys[i].Clone()
		if err := key.Validate(); err != nil {
			return err
		}
		if _, dup := next[key.ID]; dup {
			return domain.ErrBadRequest.WithDetails("duplicate api key id " + key.ID)
		}
		key.Address = domain.MustParseAddress(string(key.Address))
		next[key.ID] = key
	}

	s.mu.Lock()
	s.keys = next
	s.mu.Unlock()
	return nil
}

// Get retrieves an API key by ID.
func (s *APIKeyStore) Get(_ context.Context, keyID string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyID]
	if !ok {
		return nil, domain.ErrAPIKeyInvalid.WithDetails("unknown key id")
	}
	return key.Clone(), nil
}

// List retrieves all API keys.
func (s *APIKeyStore) List(_ context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*domain.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key.Clone())
	}
	return keys, nil
}
