package domain

// TradeConfig is the active trading configuration snapshot.
// It is read-only from the core's perspective and fetched once per
// monitoring session; staleness within a session is accepted.
type TradeConfig struct {
	MaxTradeAmount float64 // reference asset units
	MinLiquidity   float64
	IsActive       bool
	WalletAddress  string
}
