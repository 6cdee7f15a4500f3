package domain

// TradeStatus is the lifecycle state of a purchase attempt.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeFailed    TradeStatus = "failed"
)

// Trade records one purchase attempt for a token.
// Created pending by the executor, then transitions exactly once to
// completed (with a transaction id) or failed.
type Trade struct {
	ID            string // deterministic: sha256 of token|created_at in stores that need one
	TokenAddress  string
	Amount        float64 // reference asset units, > 0
	Price         *float64
	Status        TradeStatus
	TransactionID *string // network-assigned signature, set on completion
	Error         *string // failure detail, set on failure
	CreatedAt     int64   // Unix timestamp in milliseconds
}
