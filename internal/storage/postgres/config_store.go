package postgres

import (
	"context"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// ConfigStore implements storage.ConfigStore backed by PostgreSQL.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new Postgres config store.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

var _ storage.ConfigStore = (*ConfigStore)(nil)

// GetActive returns the most recently updated active trade configuration.
func (s *ConfigStore) GetActive(ctx context.Context) (*domain.TradeConfig, error) {
	query := `
		SELECT max_trade_amount, min_liquidity, is_active, wallet_address
		FROM trade_config
		WHERE is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var cfg domain.TradeConfig
	err := s.pool.QueryRow(ctx, query).Scan(
		&cfg.MaxTradeAmount,
		&cfg.MinLiquidity,
		&cfg.IsActive,
		&cfg.WalletAddress,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active config: %w", err)
	}

	return &cfg, nil
}

// Upsert stores or replaces the trade configuration for a wallet.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *domain.TradeConfig) error {
	if cfg == nil || cfg.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_config (wallet_address, max_trade_amount, min_liquidity, is_active, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (wallet_address) DO UPDATE
		SET max_trade_amount = EXCLUDED.max_trade_amount,
		    min_liquidity = EXCLUDED.min_liquidity,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query, cfg.WalletAddress, cfg.MaxTradeAmount, cfg.MinLiquidity, cfg.IsActive)
	if err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}

	return nil
}
