package clickhouse

import (
	"context"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using ClickHouse.
// Analyses are append-only history, so MergeTree's lack of uniqueness
// enforcement is fine here.
type AnalysisStore struct {
	conn *Conn
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(conn *Conn) *AnalysisStore {
	return &AnalysisStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds a single analysis row.
func (s *AnalysisStore) Insert(ctx context.Context, a *domain.TokenAnalysis) error {
	if a == nil || a.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	return s.InsertBulk(ctx, []*domain.TokenAnalysis{a})
}

// InsertBulk adds multiple analyses in a single batch.
func (s *AnalysisStore) InsertBulk(ctx context.Context, analyses []*domain.TokenAnalysis) error {
	if len(analyses) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_analyses (
			token_address, total_holders, max_holder_percentage,
			has_unlimited_mint, has_pausable_trading, has_blacklist, has_ownership_risk,
			volume_24h, risk_level, is_safe, reasons, evaluated_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range analyses {
		err = batch.Append(
			a.TokenAddress, uint64(a.TotalHolders), a.MaxHolderPercentage,
			a.HasUnlimitedMint, a.HasPausableTrading, a.HasBlacklist, a.HasOwnershipRisk,
			a.Volume24h, string(a.RiskLevel), a.IsSafe,
			a.Reasons, uint64(a.EvaluatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all analyses for a token, ordered by evaluation time ASC.
func (s *AnalysisStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TokenAnalysis, error) {
	if tokenAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			token_address, total_holders, max_holder_percentage,
			has_unlimited_mint, has_pausable_trading, has_blacklist, has_ownership_risk,
			volume_24h, risk_level, is_safe, reasons, evaluated_at_ms
		FROM token_analyses
		WHERE token_address = ?
		ORDER BY evaluated_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*domain.TokenAnalysis
	for rows.Next() {
		var (
			a             domain.TokenAnalysis
			totalHolders  uint64
			riskLevel     string
			evaluatedAtMs uint64
		)
		err := rows.Scan(
			&a.TokenAddress, &totalHolders, &a.MaxHolderPercentage,
			&a.HasUnlimitedMint, &a.HasPausableTrading, &a.HasBlacklist, &a.HasOwnershipRisk,
			&a.Volume24h, &riskLevel, &a.IsSafe, &a.Reasons, &evaluatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.TotalHolders = uint(totalHolders)
		a.RiskLevel = domain.RiskLevel(riskLevel)
		a.EvaluatedAt = int64(evaluatedAtMs)
		analyses = append(analyses, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}

	return analyses, nil
}
