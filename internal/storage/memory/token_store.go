package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by mint address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.Address] = &copy
	return nil
}

// GetByAddress retrieves a token by mint address.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetAll retrieves all tokens ordered by created_at ASC.
func (s *TokenStore) GetAll(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Address < result[j].Address
	})

	return result, nil
}
