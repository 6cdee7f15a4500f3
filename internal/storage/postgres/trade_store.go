package postgres

import (
	"context"
	"fmt"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

// TradeStore implements storage.TradeStore backed by PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new Postgres trade store.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" || t.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (id, token_address, amount, price, status, transaction_id, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.TokenAddress, t.Amount, t.Price, t.Status, t.TransactionID, t.Error, t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}

	return nil
}

// UpdateStatus transitions a pending trade exactly once.
func (s *TradeStore) UpdateStatus(ctx context.Context, id string, status domain.TradeStatus, transactionID *string, price *float64, errDetail *string) error {
	if status != domain.TradeCompleted && status != domain.TradeFailed {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE trades
		SET status = $2, transaction_id = $3, price = $4, error = $5
		WHERE id = $1 AND status = $6
	`

	tag, err := s.pool.Exec(ctx, query, id, status, transactionID, price, errDetail, domain.TradePending)
	if err != nil {
		return fmt.Errorf("update trade status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish missing from already-transitioned.
		var exists bool
		err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM trades WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check trade exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrInvalidInput
	}

	return nil
}

// GetByToken retrieves all trades for a token, ordered by created_at ASC.
func (s *TradeStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Trade, error) {
	if tokenAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT id, token_address, amount, price, status, transaction_id, error, created_at
		FROM trades
		WHERE token_address = $1
		ORDER BY created_at, id
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.TokenAddress, &t.Amount, &t.Price,
			&t.Status, &t.TransactionID, &t.Error, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}
