package memory

import (
	"context"
	"sync"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
// Append-only: analyses are not unique over time.
type AnalysisStore struct {
	mu   sync.RWMutex
	data []*domain.TokenAnalysis
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert appends one analysis record.
func (s *AnalysisStore) Insert(_ context.Context, a *domain.TokenAnalysis) error {
	if a == nil || a.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *a
	copy.Reasons = append([]string(nil), a.Reasons...)
	s.data = append(s.data, &copy)
	return nil
}

// GetByToken returns all recorded analyses for a token, in insertion order.
func (s *AnalysisStore) GetByToken(_ context.Context, tokenAddress string) []*domain.TokenAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenAnalysis
	for _, a := range s.data {
		if a.TokenAddress == tokenAddress {
			copy := *a
			result = append(result, &copy)
		}
	}
	return result
}
