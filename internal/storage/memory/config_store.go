package memory

import (
	"context"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu     sync.RWMutex
	active *domain.TradeConfig
}

// NewConfigStore creates a config store holding the given snapshot.
func NewConfigStore(cfg *domain.TradeConfig) *ConfigStore {
	return &ConfigStore{active: cfg}
}

var _ storage.ConfigStore = (*ConfigStore)(nil)

// GetActive retrieves the current config snapshot.
func (s *ConfigStore) GetActive(_ context.Context) (*domain.TradeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, storage.ErrNotFound
	}
	copy := *s.active
	return &copy, nil
}

// Set replaces the active snapshot.
func (s *ConfigStore) Set(cfg *domain.TradeConfig) {
	s.mu.Lock()
	s.active = cfg
	s.mu.Unlock()
}
