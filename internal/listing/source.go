// Package listing surfaces newly listed tokens from the chain, either by
// polling RPC signatures or by streaming program logs over WebSocket.
package listing

import (
	"context"
	"regexp"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
)

// Known launch venue program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun bonding curve program.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// DefaultPrograms are the venues watched when none are configured.
func DefaultPrograms() []string {
	return []string{PumpFun, RaydiumAMMV4}
}

// Source produces newly listed tokens. Poll returns listings observed
// since the previous call; implementations dedupe within a batch but not
// across process restarts.
type Source interface {
	Poll(ctx context.Context) ([]domain.Token, error)
	Close() error
}

// creationPattern matches log lines emitted by pool/token creation
// instructions on the watched venues.
var creationPattern = regexp.MustCompile(`Instruction: Create\b|Instruction: InitializeMint|initialize2`)

// extractListing inspects a transaction for a creation event and returns
// the new token's mint.
func extractListing(tx *solana.Transaction) (domain.Token, bool) {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
		return domain.Token{}, false
	}

	created := false
	for _, line := range tx.Meta.LogMessages {
		if creationPattern.MatchString(line) {
			created = true
			break
		}
	}
	if !created {
		return domain.Token{}, false
	}

	// The listed token is the non-WSOL side of the new pool.
	for _, balance := range tx.Meta.PostTokenBalances {
		if balance.Mint != "" && balance.Mint != solana.WSOLMint {
			createdAt := tx.BlockTime * 1000
			return domain.Token{Address: balance.Mint, CreatedAt: createdAt}, true
		}
	}

	return domain.Token{}, false
}
