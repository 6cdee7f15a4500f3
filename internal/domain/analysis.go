package domain

// RiskLevel classifies how many heuristic contract flags fired.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// TokenAnalysis is the result of one safety evaluation of a token.
// It is ephemeral: a new record is produced per evaluation.
type TokenAnalysis struct {
	TokenAddress        string
	TotalHolders        uint
	MaxHolderPercentage float64 // in [0, 100]
	HasUnlimitedMint    bool
	HasPausableTrading  bool
	HasBlacklist        bool
	HasOwnershipRisk    bool
	Volume24h           float64
	RiskLevel           RiskLevel
	IsSafe              bool
	Reasons             []string // human-readable failure details
	EvaluatedAt         int64    // Unix timestamp in milliseconds
}

// FlagCount returns the number of heuristic contract flags that fired.
func (a *TokenAnalysis) FlagCount() int {
	n := 0
	for _, f := range []bool{a.HasUnlimitedMint, a.HasPausableTrading, a.HasBlacklist, a.HasOwnershipRisk} {
		if f {
			n++
		}
	}
	return n
}
