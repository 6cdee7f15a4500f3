// Package monitor runs the periodic listing watch: observe new tokens,
// analyze them, and purchase the ones that pass.
package monitor

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/executor"
	"github.com/bong69rip420/rugwatcher-automator/internal/flight"
	"github.com/bong69rip420/rugwatcher-automator/internal/idhash"
	"github.com/bong69rip420/rugwatcher-automator/internal/listing"
	"github.com/bong69rip420/rugwatcher-automator/internal/observability"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
)

const (
	defaultInterval       = 10 * time.Second
	defaultPurchaseAmount = 0.1
	defaultSeenCacheSize  = 4096
)

// Evaluator renders a safety verdict for a token.
type Evaluator interface {
	Evaluate(ctx context.Context, token domain.Token) (domain.TokenAnalysis, error)
}

// Purchaser executes a bounded purchase and returns its receipt.
type Purchaser interface {
	ExecutePurchase(ctx context.Context, tokenAddress string, amount float64) (*executor.Receipt, error)
}

// Options configures a Monitor.
type Options struct {
	Source   listing.Source
	Analyzer Evaluator
	Executor Purchaser

	// Session is the executor's single-flight session; Stop resets it so
	// a subsequent Start re-initializes cleanly.
	Session *flight.Initializer

	Tokens  storage.TokenStore
	Trades  storage.TradeStore
	Configs storage.ConfigStore

	Interval       time.Duration
	PurchaseAmount float64
	SeenCacheSize  int

	Metrics  *observability.Metrics
	Notifier Notifier
	Logger   *log.Logger
	Now      func() time.Time
}

// Monitor is the orchestration root. Start and Stop are safe for
// concurrent use; Start is a no-op while running.
type Monitor struct {
	source   listing.Source
	analyzer Evaluator
	executor Purchaser
	session  *flight.Initializer

	tokens  storage.TokenStore
	trades  storage.TradeStore
	configs storage.ConfigStore

	interval       time.Duration
	purchaseAmount float64

	metrics  *observability.Metrics
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time

	seen *lru.Cache[string, struct{}]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// cfg is the session's config snapshot, fetched at Start. Staleness
	// within one session is accepted.
	cfg domain.TradeConfig
}

// New creates a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Source == nil {
		return nil, errors.New("monitor: listing source is required")
	}
	if opts.Analyzer == nil {
		return nil, errors.New("monitor: analyzer is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("monitor: executor is required")
	}
	if opts.Tokens == nil || opts.Trades == nil {
		return nil, errors.New("monitor: token and trade stores are required")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.PurchaseAmount <= 0 {
		opts.PurchaseAmount = defaultPurchaseAmount
	}
	if opts.SeenCacheSize <= 0 {
		opts.SeenCacheSize = defaultSeenCacheSize
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	seen, err := lru.New[string, struct{}](opts.SeenCacheSize)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		source:         opts.Source,
		analyzer:       opts.Analyzer,
		executor:       opts.Executor,
		session:        opts.Session,
		tokens:         opts.Tokens,
		trades:         opts.Trades,
		configs:        opts.Configs,
		interval:       opts.Interval,
		purchaseAmount: opts.PurchaseAmount,
		metrics:        opts.Metrics,
		notifier:       opts.Notifier,
		logger:         opts.Logger,
		now:            opts.Now,
		seen:           seen,
	}, nil
}

// Start begins the periodic tick. No-op if already running.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	m.cfg = m.loadConfig(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	if m.metrics != nil {
		m.metrics.MonitorRunning.Set(1)
	}

	m.wg.Add(1)
	go m.run(runCtx)

	m.logger.Printf("[monitor] started, interval %s, trading active: %t", m.interval, m.cfg.IsActive)
}

// Stop cancels the tick and releases the executor session so the next
// Start re-initializes. Idempotent. An in-flight purchase already past
// submission is not aborted.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	if m.session != nil {
		m.session.Reset()
	}
	if m.metrics != nil {
		m.metrics.MonitorRunning.Set(0)
	}

	m.logger.Printf("[monitor] stopped")
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// loadConfig fetches the session's trade config snapshot. Absence or a
// store failure degrades to observe-only (trading inactive).
func (m *Monitor) loadConfig(ctx context.Context) domain.TradeConfig {
	if m.configs == nil {
		return domain.TradeConfig{}
	}

	cfg, err := m.configs.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Printf("[monitor] load trade config: %v", err)
		}
		return domain.TradeConfig{}
	}

	return *cfg
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick observes listings and processes each unseen token. Failures are
// logged and never stop the loop.
func (m *Monitor) tick(ctx context.Context) {
	tokens, err := m.source.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Printf("[monitor] poll listings: %v", err)
	}

	for _, token := range tokens {
		if ctx.Err() != nil {
			return
		}
		m.handleToken(ctx, token)
	}

	if m.metrics != nil {
		m.metrics.LastTickTime.Set(float64(m.now().Unix()))
	}
}

func (m *Monitor) handleToken(ctx context.Context, token domain.Token) {
	if m.metrics != nil {
		m.metrics.TokensObserved.Inc()
	}

	if m.seen.Contains(token.Address) {
		return
	}

	// The durable store is the cross-restart dedupe authority; the cache
	// only short-circuits repeats within this process.
	if _, err := m.tokens.GetByAddress(ctx, token.Address); err == nil {
		m.seen.Add(token.Address, struct{}{})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Printf("[monitor] lookup token %s: %v", token.Address, err)
	}

	if err := m.tokens.Insert(ctx, &token); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			m.seen.Add(token.Address, struct{}{})
			return
		}
		m.logger.Printf("[monitor] persist token %s: %v", token.Address, err)
		if m.metrics != nil {
			m.metrics.PersistenceErrors.WithLabelValues("tokens").Inc()
		}
	} else if m.metrics != nil {
		m.metrics.TokensPersisted.Inc()
	}
	m.seen.Add(token.Address, struct{}{})

	m.notifier.NewToken(token)

	analysis, err := m.analyzer.Evaluate(ctx, token)
	if err != nil {
		m.logger.Printf("[monitor] evaluate %s: %v", token.Address, err)
		return
	}
	m.observeAnalysis(analysis)

	if !analysis.IsSafe {
		m.logger.Printf("[monitor] %s rejected (%s): %s",
			token.Address, analysis.RiskLevel, strings.Join(analysis.Reasons, "; "))
		return
	}

	if !m.cfg.IsActive {
		m.logger.Printf("[monitor] %s passed but trading is inactive", token.Address)
		return
	}

	// At most one purchase attempt per listing: gate on prior records.
	prior, err := m.trades.GetByToken(ctx, token.Address)
	if err != nil {
		m.logger.Printf("[monitor] lookup trades for %s: %v", token.Address, err)
		return
	}
	if len(prior) > 0 {
		return
	}

	m.purchase(ctx, token)
}

func (m *Monitor) observeAnalysis(analysis domain.TokenAnalysis) {
	if m.metrics == nil {
		return
	}
	verdict := "unsafe"
	if analysis.IsSafe {
		verdict = "safe"
	}
	m.metrics.AnalysesTotal.WithLabelValues(verdict).Inc()
	m.metrics.RiskLevels.WithLabelValues(string(analysis.RiskLevel)).Inc()
}

// purchase runs one executor attempt and records the trade transitions.
func (m *Monitor) purchase(ctx context.Context, token domain.Token) {
	amount := m.purchaseAmount
	if m.cfg.MaxTradeAmount > 0 && amount > m.cfg.MaxTradeAmount {
		amount = m.cfg.MaxTradeAmount
	}

	createdAt := m.now().UnixMilli()
	trade := domain.Trade{
		ID:           idhash.ComputeTradeID(token.Address, createdAt),
		TokenAddress: token.Address,
		Amount:       amount,
		Status:       domain.TradePending,
		CreatedAt:    createdAt,
	}
	recorded := true
	if err := m.trades.Insert(ctx, &trade); err != nil {
		recorded = false
		m.logger.Printf("[monitor] persist pending trade for %s: %v", token.Address, err)
		if m.metrics != nil {
			m.metrics.PersistenceErrors.WithLabelValues("trades").Inc()
		}
	}

	receipt, err := m.executor.ExecutePurchase(ctx, token.Address, amount)

	// The purchase may be irrevocable; record the outcome even if the
	// monitor is shutting down.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		m.logger.Printf("[monitor] purchase %s: %v", token.Address, err)
		if m.metrics != nil {
			m.metrics.TradesTotal.WithLabelValues(string(domain.TradeFailed)).Inc()
		}
		if recorded {
			detail := err.Error()
			if uerr := m.trades.UpdateStatus(recordCtx, trade.ID, domain.TradeFailed, nil, nil, &detail); uerr != nil {
				m.logger.Printf("[monitor] mark trade %s failed: %v", trade.ID, uerr)
			}
		}
		return
	}

	m.logger.Printf("[monitor] bought %s for %.4f, tx %s", token.Address, amount, receipt.TransactionID)
	if m.metrics != nil {
		m.metrics.TradesTotal.WithLabelValues(string(domain.TradeCompleted)).Inc()
	}
	if recorded {
		if uerr := m.trades.UpdateStatus(recordCtx, trade.ID, domain.TradeCompleted, &receipt.TransactionID, &receipt.Price, nil); uerr != nil {
			m.logger.Printf("[monitor] mark trade %s completed: %v", trade.ID, uerr)
		}
	}

	trade.Status = domain.TradeCompleted
	trade.TransactionID = &receipt.TransactionID
	trade.Price = &receipt.Price
	m.notifier.TradeCompleted(trade)
}
