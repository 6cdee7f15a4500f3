package domain

// Token represents a newly listed token observed on chain.
// Identity is the mint address; a token is created once on first
// observation and never mutated.
type Token struct {
	Address   string // token mint address
	Name      string
	Symbol    string
	CreatedAt int64 // Unix timestamp in milliseconds
}
