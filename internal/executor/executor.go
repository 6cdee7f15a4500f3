// Package executor performs bounded token purchases through the swap
// aggregator: quote, sign, submit, confirm.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bong69rip420/rugwatcher-automator/internal/flight"
	"github.com/bong69rip420/rugwatcher-automator/internal/jupiter"
	"github.com/bong69rip420/rugwatcher-automator/internal/observability"
	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
	"github.com/bong69rip420/rugwatcher-automator/internal/wallet"
)

var (
	// ErrNotInitialized is returned when the session is not ready or no
	// signing key is set.
	ErrNotInitialized = errors.New("executor not initialized")

	// ErrInsufficientFunds is returned when the funding wallet cannot
	// cover the purchase amount plus fee headroom.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConfirmationTimeout is returned when a submitted transaction was
	// not confirmed within the polling window. Deliberately not transient:
	// the transaction may still land, so the attempt must not be repeated.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

const (
	// DefaultSlippageBps is the maximum accepted slippage (1%).
	DefaultSlippageBps = 100

	defaultMaxAttempts  = 3
	defaultAttemptDelay = 2 * time.Second

	confirmPolls        = 30
	confirmPollInterval = 400 * time.Millisecond

	lamportsPerSOL = 1_000_000_000

	// feeHeadroomLamports keeps room for network and priority fees.
	feeHeadroomLamports = 5_000_000
)

// Options configures an Executor.
type Options struct {
	RPC        solana.Client
	Aggregator jupiter.Client
	Wallet     *wallet.Manager

	// RPCThrottle and AggregatorThrottle space out calls per collaborator.
	RPCThrottle        *throttle.Throttle
	AggregatorThrottle *throttle.Throttle

	// Init is the session setup routine run once behind the single-flight
	// initializer. Optional; defaults to an RPC reachability probe.
	Init func(ctx context.Context) error

	SlippageBps  int
	MaxAttempts  int
	AttemptDelay time.Duration

	Metrics *observability.Metrics
	Logger  *log.Logger
}

// Executor is safe for concurrent use. Readiness requires both the
// connection session and a set signing key.
type Executor struct {
	rpc         solana.Client
	aggregator  jupiter.Client
	wallet      *wallet.Manager
	session     *flight.Initializer
	init        func(ctx context.Context) error
	rpcThrottle *throttle.Throttle
	aggThrottle *throttle.Throttle

	slippageBps  int
	maxAttempts  int
	attemptDelay time.Duration

	metrics *observability.Metrics
	logger  *log.Logger
}

// New creates an Executor.
func New(opts Options) (*Executor, error) {
	if opts.RPC == nil {
		return nil, errors.New("executor: RPC client is required")
	}
	if opts.Aggregator == nil {
		return nil, errors.New("executor: aggregator client is required")
	}
	if opts.Wallet == nil {
		return nil, errors.New("executor: wallet manager is required")
	}
	if opts.RPCThrottle == nil {
		return nil, errors.New("executor: RPC throttle is required")
	}
	if opts.AggregatorThrottle == nil {
		return nil, errors.New("executor: aggregator throttle is required")
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = DefaultSlippageBps
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.AttemptDelay <= 0 {
		opts.AttemptDelay = defaultAttemptDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	e := &Executor{
		rpc:          opts.RPC,
		aggregator:   opts.Aggregator,
		wallet:       opts.Wallet,
		session:      flight.New(),
		init:         opts.Init,
		rpcThrottle:  opts.RPCThrottle,
		aggThrottle:  opts.AggregatorThrottle,
		slippageBps:  opts.SlippageBps,
		maxAttempts:  opts.MaxAttempts,
		attemptDelay: opts.AttemptDelay,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if e.init == nil {
		e.init = e.probe
	}

	return e, nil
}

// Session exposes the single-flight session so the host can force
// re-initialization on stop.
func (e *Executor) Session() *flight.Initializer {
	return e.session
}

// probe is the default session init: one throttled RPC call proving the
// collaborator is reachable for the wallet's account.
func (e *Executor) probe(ctx context.Context) error {
	pubkey, err := e.wallet.PublicKey()
	if err != nil {
		return err
	}
	_, err = retry.Do(ctx, e.maxAttempts, time.Second, func(ctx context.Context) (uint64, error) {
		if err := e.rpcThrottle.Await(ctx); err != nil {
			return 0, err
		}
		return e.rpc.GetBalance(ctx, pubkey)
	})
	return err
}

// Receipt is the outcome of a completed purchase.
type Receipt struct {
	// TransactionID is the network-assigned signature.
	TransactionID string
	// Price is the achieved rate: reference asset base units paid per
	// token base unit received, from the quote that was executed.
	Price float64
}

// ExecutePurchase buys tokenAddress with amount of the reference asset
// (in whole units) and returns the confirmed purchase receipt.
//
// Not idempotent across restarts; callers gate on prior trade records.
func (e *Executor) ExecutePurchase(ctx context.Context, tokenAddress string, amount float64) (*Receipt, error) {
	pubkey, err := e.wallet.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	if err := e.session.Do(ctx, e.init); err != nil {
		return nil, fmt.Errorf("%w: session init: %v", ErrNotInitialized, err)
	}

	if amount <= 0 {
		return nil, fmt.Errorf("purchase amount must be positive, got %v", amount)
	}
	lamports := uint64(amount * lamportsPerSOL)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			if e.metrics != nil {
				e.metrics.PurchaseRetries.Inc()
			}
			select {
			case <-time.After(e.attemptDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		receipt, err := e.attempt(ctx, pubkey, tokenAddress, lamports)
		if err == nil {
			return receipt, nil
		}
		if !retry.IsTransient(err) {
			return nil, err
		}

		e.logger.Printf("[executor] purchase attempt %d/%d for %s: %v", attempt, e.maxAttempts, tokenAddress, err)
		lastErr = err
	}

	return nil, lastErr
}

// attempt runs one full purchase cycle:
// QuoteRequested -> RouteSelected -> Signed -> Submitted -> Confirmed.
// A fresh quote is fetched every time; a stale quote is never resubmitted.
func (e *Executor) attempt(ctx context.Context, pubkey, tokenAddress string, lamports uint64) (*Receipt, error) {
	// Balance preflight before spending an aggregator call.
	if err := e.rpcThrottle.Await(ctx); err != nil {
		return nil, err
	}
	balance, err := e.rpc.GetBalance(ctx, pubkey)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if balance < lamports+feeHeadroomLamports {
		return nil, fmt.Errorf("%w: have %d lamports, need %d", ErrInsufficientFunds, balance, lamports+feeHeadroomLamports)
	}

	if err := e.aggThrottle.Await(ctx); err != nil {
		return nil, err
	}
	quote, err := e.aggregator.Quote(ctx, solana.WSOLMint, tokenAddress, lamports, e.slippageBps)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if quote.RouteCount == 0 {
		return nil, jupiter.ErrNoRoute
	}

	if err := e.aggThrottle.Await(ctx); err != nil {
		return nil, err
	}
	unsignedTx, err := e.aggregator.Swap(ctx, quote, pubkey)
	if err != nil {
		return nil, fmt.Errorf("build swap transaction: %w", err)
	}

	signedTx, err := signTransaction(unsignedTx, e.wallet)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	// Past this point the purchase is irrevocable once submitted, so
	// detach from the caller's cancellation.
	sendCtx := context.WithoutCancel(ctx)

	if err := e.rpcThrottle.Await(sendCtx); err != nil {
		return nil, err
	}
	signature, err := e.rpc.SendTransaction(sendCtx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	if err := e.confirm(sendCtx, signature); err != nil {
		return nil, err
	}

	receipt := &Receipt{TransactionID: signature}
	if quote.OutAmount > 0 {
		receipt.Price = float64(quote.InAmount) / float64(quote.OutAmount)
	}
	return receipt, nil
}

// confirm polls signature status until it reaches confirmed or finalized
// commitment.
func (e *Executor) confirm(ctx context.Context, signature string) error {
	for poll := 0; poll < confirmPolls; poll++ {
		if poll > 0 {
			select {
			case <-time.After(confirmPollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := e.rpcThrottle.Await(ctx); err != nil {
			return err
		}
		statuses, err := e.rpc.GetSignatureStatuses(ctx, signature)
		if err != nil {
			e.logger.Printf("[executor] status poll for %s: %v", signature, err)
			continue
		}
		if len(statuses) == 0 || statuses[0] == nil {
			continue
		}

		status := statuses[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", signature, status.Err)
		}
		if status.ConfirmationStatus == solana.CommitmentConfirmed ||
			status.ConfirmationStatus == solana.CommitmentFinalized {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
}
