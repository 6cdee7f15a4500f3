package listing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/retry"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
)

const (
	// bootstrapLimit bounds the first poll, which has no cursor yet.
	bootstrapLimit = 25
	pollLimit      = 100
)

// RPCSourceOptions configures an RPCSource.
type RPCSourceOptions struct {
	RPC      solana.Client
	Throttle *throttle.Throttle

	// Programs are the venue program IDs to watch. Defaults to
	// DefaultPrograms.
	Programs []string

	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *log.Logger
}

// RPCSource detects listings by polling each venue program's recent
// signatures and inspecting the transactions for creation events.
type RPCSource struct {
	rpc         solana.Client
	throttle    *throttle.Throttle
	programs    []string
	maxAttempts int
	baseDelay   time.Duration
	logger      *log.Logger

	// cursor holds the newest signature seen per program, used as the
	// Until bound of the next poll.
	cursor map[string]string
}

// NewRPCSource creates an RPC polling listing source.
func NewRPCSource(opts RPCSourceOptions) (*RPCSource, error) {
	if opts.RPC == nil {
		return nil, errors.New("listing: RPC client is required")
	}
	if opts.Throttle == nil {
		return nil, errors.New("listing: throttle is required")
	}
	if len(opts.Programs) == 0 {
		opts.Programs = DefaultPrograms()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &RPCSource{
		rpc:         opts.RPC,
		throttle:    opts.Throttle,
		programs:    opts.Programs,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		logger:      opts.Logger,
		cursor:      make(map[string]string),
	}, nil
}

var _ Source = (*RPCSource)(nil)

// Poll returns tokens listed since the previous call. A venue whose fetch
// fails is skipped for this round; its cursor is untouched so nothing is
// lost.
func (s *RPCSource) Poll(ctx context.Context) ([]domain.Token, error) {
	var tokens []domain.Token
	seen := make(map[string]bool)

	for _, program := range s.programs {
		listed, err := s.pollProgram(ctx, program)
		if err != nil {
			if ctx.Err() != nil {
				return tokens, ctx.Err()
			}
			s.logger.Printf("[listing] poll %s: %v", program, err)
			continue
		}
		for _, token := range listed {
			if seen[token.Address] {
				continue
			}
			seen[token.Address] = true
			tokens = append(tokens, token)
		}
	}

	return tokens, nil
}

func (s *RPCSource) pollProgram(ctx context.Context, program string) ([]domain.Token, error) {
	opts := &solana.SignaturesOpts{Limit: pollLimit, Until: s.cursor[program]}
	if opts.Until == "" {
		opts.Limit = bootstrapLimit
	}

	sigs, err := retry.Do(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		if err := s.throttle.Await(ctx); err != nil {
			return nil, err
		}
		return s.rpc.GetSignaturesForAddress(ctx, program, opts)
	})
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, nil
	}

	// Newest first; remember the head as the next Until bound.
	s.cursor[program] = sigs[0].Signature

	var tokens []domain.Token
	for i := len(sigs) - 1; i >= 0; i-- {
		sig := sigs[i]
		if sig.Err != nil {
			continue
		}

		tx, err := retry.Do(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) (*solana.Transaction, error) {
			if err := s.throttle.Await(ctx); err != nil {
				return nil, err
			}
			return s.rpc.GetTransaction(ctx, sig.Signature)
		})
		if err != nil {
			if ctx.Err() != nil {
				return tokens, ctx.Err()
			}
			s.logger.Printf("[listing] skip transaction %s: %v", sig.Signature, err)
			continue
		}

		if token, ok := extractListing(tx); ok {
			tokens = append(tokens, token)
		}
	}

	return tokens, nil
}

// Close is a no-op; the RPC source holds no long-lived resources.
func (s *RPCSource) Close() error {
	return nil
}
