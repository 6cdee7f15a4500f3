package postgres

import (
	"context"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore backed by PostgreSQL.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new Postgres analysis store.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert appends one analysis record.
func (s *AnalysisStore) Insert(ctx context.Context, a *domain.TokenAnalysis) error {
	if a == nil || a.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_analyses (
			token_address, total_holders, max_holder_percentage,
			has_unlimited_mint, has_pausable_trading, has_blacklist, has_ownership_risk,
			volume_24h, risk_level, is_safe, reasons, evaluated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		a.TokenAddress,
		int64(a.TotalHolders),
		a.MaxHolderPercentage,
		a.HasUnlimitedMint,
		a.HasPausableTrading,
		a.HasBlacklist,
		a.HasOwnershipRisk,
		a.Volume24h,
		a.RiskLevel,
		a.IsSafe,
		a.Reasons,
		a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	return nil
}
