// Package analyzer evaluates newly listed tokens against safety heuristics:
// holder concentration, contract-pattern flags and recent transfer volume.
package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mr-tron/base58"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
)

// Thresholds are the verdict boundaries. A token is safe only when it clears
// every one of them and no heuristic flag fired.
type Thresholds struct {
	HolderMin        uint    // minimum distinct holders
	ConcentrationMax float64 // maximum share of supply held by one owner, percent
	VolumeMin        float64 // minimum 24h transfer volume
}

// DefaultThresholds returns the standard verdict boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HolderMin:        100,
		ConcentrationMax: 20.0,
		VolumeMin:        2000.0,
	}
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second

	signaturePageLimit = 1000
	maxSignaturePages  = 5
)

// Options configures an Analyzer.
type Options struct {
	RPC      solana.Client
	Throttle *throttle.Throttle

	// Analyses receives finalized results. Optional; persistence failures
	// are logged and never change the verdict.
	Analyses storage.AnalysisStore

	// Thresholds defaults to DefaultThresholds when zero.
	Thresholds Thresholds

	// MaxAttempts/BaseDelay bound the retry of each network step.
	MaxAttempts int
	BaseDelay   time.Duration

	Logger *log.Logger
	Now    func() time.Time
}

// Analyzer computes a TokenAnalysis per token.
type Analyzer struct {
	rpc         solana.Client
	throttle    *throttle.Throttle
	analyses    storage.AnalysisStore
	thresholds  Thresholds
	maxAttempts int
	baseDelay   time.Duration
	logger      *log.Logger
	now         func() time.Time
}

// New creates an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if opts.RPC == nil {
		return nil, errors.New("analyzer: RPC client is required")
	}
	if opts.Throttle == nil {
		return nil, errors.New("analyzer: throttle is required")
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Analyzer{
		rpc:         opts.RPC,
		throttle:    opts.Throttle,
		analyses:    opts.Analyses,
		thresholds:  opts.Thresholds,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Evaluate computes the safety verdict for a token. Fetch failures degrade
// the affected dimension to its worst case instead of aborting, so a verdict
// is always produced. The returned error is reserved for context
// cancellation.
func (a *Analyzer) Evaluate(ctx context.Context, token domain.Token) (domain.TokenAnalysis, error) {
	analysis := domain.TokenAnalysis{
		TokenAddress: token.Address,
		EvaluatedAt:  a.now().UnixMilli(),
	}

	if !isValidAddress(token.Address) {
		analysis.HasUnlimitedMint = true
		analysis.HasPausableTrading = true
		analysis.HasBlacklist = true
		analysis.HasOwnershipRisk = true
		analysis.RiskLevel = domain.RiskHigh
		analysis.Reasons = append(analysis.Reasons, fmt.Sprintf("Invalid token address %q", token.Address))
		a.persist(ctx, analysis)
		return analysis, nil
	}

	holders, maxPct, err := a.holderDistribution(ctx, token.Address)
	if err != nil {
		if ctx.Err() != nil {
			return domain.TokenAnalysis{}, ctx.Err()
		}
		a.logger.Printf("[analyzer] holder distribution for %s: %v", token.Address, err)
		analysis.Reasons = append(analysis.Reasons, "Holder distribution unavailable")
		holders, maxPct = 0, 0
	}
	analysis.TotalHolders = holders
	analysis.MaxHolderPercentage = maxPct

	flags, err := a.contractHeuristics(ctx, token.Address)
	if err != nil {
		if ctx.Err() != nil {
			return domain.TokenAnalysis{}, ctx.Err()
		}
		a.logger.Printf("[analyzer] contract heuristics for %s: %v", token.Address, err)
		analysis.Reasons = append(analysis.Reasons, "Contract data unavailable")
		flags = heuristicFlags{unlimitedMint: true, pausable: true, blacklist: true, ownership: true}
	}
	analysis.HasUnlimitedMint = flags.unlimitedMint
	analysis.HasPausableTrading = flags.pausable
	analysis.HasBlacklist = flags.blacklist
	analysis.HasOwnershipRisk = flags.ownership

	volume, err := a.volume24h(ctx, token.Address)
	if err != nil {
		if ctx.Err() != nil {
			return domain.TokenAnalysis{}, ctx.Err()
		}
		a.logger.Printf("[analyzer] volume aggregation for %s: %v", token.Address, err)
		analysis.Reasons = append(analysis.Reasons, "Volume data unavailable")
		volume = 0
	}
	analysis.Volume24h = volume

	a.renderVerdict(&analysis)
	a.persist(ctx, analysis)

	return analysis, nil
}

// renderVerdict fills RiskLevel, IsSafe and the human-readable reasons.
func (a *Analyzer) renderVerdict(analysis *domain.TokenAnalysis) {
	switch n := analysis.FlagCount(); {
	case n == 0:
		analysis.RiskLevel = domain.RiskLow
	case n <= 2:
		analysis.RiskLevel = domain.RiskMedium
	default:
		analysis.RiskLevel = domain.RiskHigh
	}

	// Zero holders is worst-case concentration regardless of percentage.
	if analysis.TotalHolders == 0 {
		analysis.RiskLevel = domain.RiskHigh
	}

	t := a.thresholds
	if analysis.TotalHolders < t.HolderMin {
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("Only %d holders (minimum %d)", analysis.TotalHolders, t.HolderMin))
	}
	if analysis.MaxHolderPercentage > t.ConcentrationMax {
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("Top holder owns %.1f%% of supply (maximum %.1f%%)", analysis.MaxHolderPercentage, t.ConcentrationMax))
	}
	if analysis.HasUnlimitedMint {
		analysis.Reasons = append(analysis.Reasons, "Unlimited mint authority detected")
	}
	if analysis.HasPausableTrading {
		analysis.Reasons = append(analysis.Reasons, "Pausable trading detected")
	}
	if analysis.HasBlacklist {
		analysis.Reasons = append(analysis.Reasons, "Blacklist capability detected")
	}
	if analysis.HasOwnershipRisk {
		analysis.Reasons = append(analysis.Reasons, "Ownership transfer capability detected")
	}
	if analysis.Volume24h < t.VolumeMin {
		analysis.Reasons = append(analysis.Reasons,
			fmt.Sprintf("24h volume %.2f below minimum %.2f", analysis.Volume24h, t.VolumeMin))
	}

	analysis.IsSafe = analysis.TotalHolders >= t.HolderMin &&
		analysis.MaxHolderPercentage <= t.ConcentrationMax &&
		analysis.FlagCount() == 0 &&
		analysis.Volume24h >= t.VolumeMin
}

// persist hands the analysis to the history store. Failure is logged only;
// observational data must not block trading logic.
func (a *Analyzer) persist(ctx context.Context, analysis domain.TokenAnalysis) {
	if a.analyses == nil {
		return
	}
	if err := a.analyses.Insert(ctx, &analysis); err != nil {
		a.logger.Printf("[analyzer] record analysis for %s: %v", analysis.TokenAddress, err)
	}
}

// holderDistribution returns the number of distinct holders with a nonzero
// balance and the largest holder's share of total supply in percent.
func (a *Analyzer) holderDistribution(ctx context.Context, mint string) (uint, float64, error) {
	accounts, err := retry.Do(ctx, a.maxAttempts, a.baseDelay, func(ctx context.Context) ([]solana.ProgramAccount, error) {
		if err := a.throttle.Await(ctx); err != nil {
			return nil, err
		}
		return a.rpc.GetTokenAccountsByMint(ctx, mint)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("get token accounts: %w", err)
	}

	// One owner may hold several token accounts; aggregate by owner.
	balances := make(map[string]uint64, len(accounts))
	for _, acct := range accounts {
		owner, amount, err := parseTokenAccount(acct.Data)
		if err != nil {
			a.logger.Printf("[analyzer] skip malformed token account %s: %v", acct.Pubkey, err)
			continue
		}
		if amount == 0 {
			continue
		}
		balances[owner] += amount
	}

	if len(balances) == 0 {
		return 0, 0, nil
	}

	var total, max float64
	for _, amount := range balances {
		f := float64(amount)
		total += f
		if f > max {
			max = f
		}
	}

	return uint(len(balances)), max / total * 100, nil
}

// parseTokenAccount parses SPL token account data.
// Layout: mint(32) | owner(32) | amount(8 LE) | ...
func parseTokenAccount(data string) (owner string, amount uint64, err error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", 0, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < 72 {
		return "", 0, fmt.Errorf("token account data too short: %d", len(decoded))
	}
	return base58.Encode(decoded[32:64]), binary.LittleEndian.Uint64(decoded[64:72]), nil
}

// volume24h sums absolute token-balance deltas across transactions touching
// the mint within the last 24 hours. Individual transactions that fail to
// fetch are skipped.
func (a *Analyzer) volume24h(ctx context.Context, mint string) (float64, error) {
	cutoff := a.now().Add(-24 * time.Hour).Unix()

	var signatures []string
	var before string

	for page := 0; page < maxSignaturePages; page++ {
		batch, err := retry.Do(ctx, a.maxAttempts, a.baseDelay, func(ctx context.Context) ([]solana.SignatureInfo, error) {
			if err := a.throttle.Await(ctx); err != nil {
				return nil, err
			}
			return a.rpc.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{
				Limit:  signaturePageLimit,
				Before: before,
			})
		})
		if err != nil {
			return 0, fmt.Errorf("get signatures: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		reachedCutoff := false
		for _, sig := range batch {
			// Signatures arrive newest first; stop at the window edge.
			if sig.BlockTime != nil && *sig.BlockTime < cutoff {
				reachedCutoff = true
				break
			}
			if sig.Err != nil {
				continue
			}
			signatures = append(signatures, sig.Signature)
		}

		if reachedCutoff || len(batch) < signaturePageLimit {
			break
		}
		before = batch[len(batch)-1].Signature
	}

	var volume float64
	for _, sig := range signatures {
		tx, err := retry.Do(ctx, a.maxAttempts, a.baseDelay, func(ctx context.Context) (*solana.Transaction, error) {
			if err := a.throttle.Await(ctx); err != nil {
				return nil, err
			}
			return a.rpc.GetTransaction(ctx, sig)
		})
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			a.logger.Printf("[analyzer] skip transaction %s: %v", sig, err)
			continue
		}
		if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
			continue
		}

		volume += balanceDelta(tx.Meta, mint)
	}

	return volume, nil
}

// balanceDelta sums |post - pre| over all accounts of the mint in one
// transaction's balance snapshots.
func balanceDelta(meta *solana.TransactionMeta, mint string) float64 {
	pre := make(map[int]float64)
	for _, b := range meta.PreTokenBalances {
		if b.Mint == mint {
			pre[b.AccountIndex] = b.Amount
		}
	}

	var delta float64
	seen := make(map[int]bool)
	for _, b := range meta.PostTokenBalances {
		if b.Mint != mint {
			continue
		}
		seen[b.AccountIndex] = true
		d := b.Amount - pre[b.AccountIndex]
		if d < 0 {
			d = -d
		}
		delta += d
	}
	// Accounts drained to zero may be absent from the post snapshot.
	for idx, amount := range pre {
		if !seen[idx] {
			delta += amount
		}
	}

	return delta
}

// isValidAddress reports whether addr is a well-formed base58 32-byte key.
func isValidAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	return err == nil && len(decoded) == 32
}
