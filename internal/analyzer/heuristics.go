package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
)

// heuristicFlags are the contract-pattern verdict inputs. This is a
// heuristic byte/text scan, not a decompilation; false positives and
// negatives are expected.
type heuristicFlags struct {
	unlimitedMint bool
	pausable      bool
	blacklist     bool
	ownership     bool
}

// Pattern groups scanned over the account data's text representation.
var (
	mintPattern        = regexp.MustCompile(`(?i)mint_to|mintable|unlimited[_-]?mint`)
	supplyGuardPattern = regexp.MustCompile(`(?i)max[_-]?supply|supply[_-]?cap|hard[_-]?cap`)
	pausePattern       = regexp.MustCompile(`(?i)pause|freeze|suspend|halt`)
	blacklistPattern   = regexp.MustCompile(`(?i)blacklist|denylist|blocklist|banned`)
	ownershipPattern   = regexp.MustCompile(`(?i)transfer[_-]?ownership|set[_-]?authority|change[_-]?owner|new[_-]?owner`)
)

// SPL mint account layout offsets.
// mint_authority COption<Pubkey>(36) | supply u64(8) | decimals(1) |
// is_initialized(1) | freeze_authority COption<Pubkey>(36)
const (
	splMintSize           = 82
	mintAuthorityTagOff   = 0
	freezeAuthorityTagOff = 46
)

// contractHeuristics fetches the mint's raw account data and scans it for
// risk pattern groups.
func (a *Analyzer) contractHeuristics(ctx context.Context, mint string) (heuristicFlags, error) {
	info, err := retry.Do(ctx, a.maxAttempts, a.baseDelay, func(ctx context.Context) (*solana.AccountInfo, error) {
		if err := a.throttle.Await(ctx); err != nil {
			return nil, err
		}
		return a.rpc.GetAccountInfo(ctx, mint)
	})
	if err != nil {
		return heuristicFlags{}, fmt.Errorf("get mint account: %w", err)
	}
	if info == nil || info.Data == "" {
		return heuristicFlags{}, fmt.Errorf("mint account %s not found", mint)
	}

	decoded, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return heuristicFlags{}, fmt.Errorf("decode mint account data: %w", err)
	}

	return scanAccountData(decoded), nil
}

// scanAccountData combines the structural SPL mint fields with text pattern
// groups over the raw bytes.
func scanAccountData(data []byte) heuristicFlags {
	var flags heuristicFlags
	text := string(data)

	// Structural: an unreleased mint authority means supply can grow; a set
	// freeze authority means trading can be halted per account.
	if len(data) >= splMintSize {
		if binary.LittleEndian.Uint32(data[mintAuthorityTagOff:mintAuthorityTagOff+4]) != 0 {
			flags.unlimitedMint = true
		}
		if binary.LittleEndian.Uint32(data[freezeAuthorityTagOff:freezeAuthorityTagOff+4]) != 0 {
			flags.pausable = true
		}
	}

	if mintPattern.MatchString(text) {
		flags.unlimitedMint = true
	}
	// A max-supply guard neutralizes the mint group.
	if flags.unlimitedMint && supplyGuardPattern.MatchString(text) {
		flags.unlimitedMint = false
	}

	if pausePattern.MatchString(text) {
		flags.pausable = true
	}
	if blacklistPattern.MatchString(text) {
		flags.blacklist = true
	}
	if ownershipPattern.MatchString(text) {
		flags.ownership = true
	}

	return flags
}
