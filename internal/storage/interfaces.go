package storage

import (
	"context"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
)

// TokenStore provides access to observed token storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByAddress retrieves a token by mint address. Returns ErrNotFound
	// if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// GetAll retrieves all tokens ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.Token, error)
}

// TradeStore provides access to trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// UpdateStatus transitions a pending trade to completed or failed,
	// recording the transaction id and achieved price on completion or
	// the failure detail otherwise. Returns ErrNotFound if the trade
	// does not exist and ErrInvalidInput if it has already left pending.
	UpdateStatus(ctx context.Context, id string, status domain.TradeStatus, transactionID *string, price *float64, errDetail *string) error

	// GetByToken retrieves all trades for a token, ordered by created_at ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.Trade, error)
}

// AnalysisStore records finalized token analyses. Observational:
// failures are logged by callers and never block trading logic.
type AnalysisStore interface {
	// Insert appends one analysis record.
	Insert(ctx context.Context, a *domain.TokenAnalysis) error
}

// ConfigStore provides the active trading configuration.
type ConfigStore interface {
	// GetActive retrieves the current config snapshot. Returns
	// ErrNotFound if no active config exists.
	GetActive(ctx context.Context) (*domain.TradeConfig, error)
}
