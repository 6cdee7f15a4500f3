package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" || t.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.ID] = &copy
	return nil
}

// UpdateStatus transitions a pending trade exactly once.
func (s *TradeStore) UpdateStatus(_ context.Context, id string, status domain.TradeStatus, transactionID *string, price *float64, errDetail *string) error {
	if status != domain.TradeCompleted && status != domain.TradeFailed {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	if t.Status != domain.TradePending {
		return storage.ErrInvalidInput
	}

	t.Status = status
	t.TransactionID = transactionID
	t.Price = price
	t.Error = errDetail
	return nil
}

// GetByToken retrieves all trades for a token, ordered by created_at ASC.
func (s *TradeStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TokenAddress == tokenAddress {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}
