package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/executor"
	"github.com/bong69rip420/rugwatcher-automator/internal/flight"
	"github.com/bong69rip420/rugwatcher-automator/internal/idhash"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	batches [][]domain.Token
	polls   int
}

func (s *fakeSource) Poll(context.Context) ([]domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *fakeSource) Close() error { return nil }

func (s *fakeSource) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

type fakeEvaluator struct {
	mu       sync.Mutex
	analysis domain.TokenAnalysis
	calls    int
	done     chan struct{}
}

func (e *fakeEvaluator) Evaluate(_ context.Context, token domain.Token) (domain.TokenAnalysis, error) {
	e.mu.Lock()
	e.calls++
	analysis := e.analysis
	e.mu.Unlock()
	analysis.TokenAddress = token.Address
	if e.done != nil {
		select {
		case e.done <- struct{}{}:
		default:
		}
	}
	return analysis, nil
}

func (e *fakeEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakePurchaser struct {
	mu    sync.Mutex
	txID  string
	price float64
	err   error
	calls []float64
}

func (p *fakePurchaser) ExecutePurchase(_ context.Context, _ string, amount float64) (*executor.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, amount)
	if p.err != nil {
		return nil, p.err
	}
	return &executor.Receipt{TransactionID: p.txID, Price: p.price}, nil
}

func (p *fakePurchaser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// chanNotifier signals trade completion, which happens strictly after the
// trade record was finalized.
type chanNotifier struct {
	completed chan domain.Trade
}

func (chanNotifier) NewToken(domain.Token) {}

func (n chanNotifier) TradeCompleted(trade domain.Trade) {
	select {
	case n.completed <- trade:
	default:
	}
}

func safeAnalysis() domain.TokenAnalysis {
	return domain.TokenAnalysis{
		TotalHolders:        150,
		MaxHolderPercentage: 12,
		Volume24h:           2500,
		RiskLevel:           domain.RiskLow,
		IsSafe:              true,
	}
}

func unsafeAnalysis() domain.TokenAnalysis {
	return domain.TokenAnalysis{
		TotalHolders: 40,
		RiskLevel:    domain.RiskHigh,
		Reasons:      []string{"Only 40 holders (minimum 100)"},
	}
}

type fixture struct {
	mon      *Monitor
	source   *fakeSource
	eval     *fakeEvaluator
	purchase *fakePurchaser
	tokens   *memory.TokenStore
	trades   *memory.TradeStore
	done     chan domain.Trade
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		source:   &fakeSource{},
		eval:     &fakeEvaluator{analysis: safeAnalysis(), done: make(chan struct{}, 16)},
		purchase: &fakePurchaser{txID: "tx-1", price: 0.0125},
		tokens:   memory.NewTokenStore(),
		trades:   memory.NewTradeStore(),
		done:     make(chan domain.Trade, 16),
	}

	if opts.Source == nil {
		opts.Source = f.source
	}
	if opts.Analyzer == nil {
		opts.Analyzer = f.eval
	}
	if opts.Executor == nil {
		opts.Executor = f.purchase
	}
	if opts.Tokens == nil {
		opts.Tokens = f.tokens
	}
	if opts.Trades == nil {
		opts.Trades = f.trades
	}
	if opts.Configs == nil {
		opts.Configs = memory.NewConfigStore(&domain.TradeConfig{IsActive: true, MaxTradeAmount: 0.05})
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour // only the immediate first tick fires
	}
	if opts.Notifier == nil {
		opts.Notifier = chanNotifier{completed: f.done}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	mon, err := New(opts)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	f.mon = mon
	return f
}

func waitSignal[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestStartIsNoOpWhileRunning(t *testing.T) {
	f := newFixture(t, Options{})

	f.mon.Start(context.Background())
	defer f.mon.Stop()
	f.mon.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	if got := f.source.pollCount(); got != 1 {
		t.Errorf("second Start must not spawn another loop: %d polls", got)
	}
	if !f.mon.Running() {
		t.Error("monitor should report running")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	f.mon.Start(context.Background())
	f.mon.Stop()
	f.mon.Stop()
	if f.mon.Running() {
		t.Error("monitor should report stopped")
	}
}

func TestSafeTokenIsPurchasedAndRecorded(t *testing.T) {
	f := newFixture(t, Options{PurchaseAmount: 0.1})
	token := domain.Token{Address: "mint-safe", Name: "Safe", Symbol: "SAFE", CreatedAt: 1700000000000}
	f.source.batches = [][]domain.Token{{token}}

	f.mon.Start(context.Background())
	trade := waitSignal(t, f.done, "trade completion")
	f.mon.Stop()

	if trade.TransactionID == nil || *trade.TransactionID != "tx-1" {
		t.Errorf("expected tx-1, got %v", trade.TransactionID)
	}
	// Purchase is bounded by the configured maximum, not the default amount.
	if trade.Amount != 0.05 {
		t.Errorf("expected amount capped at 0.05, got %f", trade.Amount)
	}

	stored, err := f.trades.GetByToken(context.Background(), token.Address)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(stored))
	}
	if stored[0].Status != domain.TradeCompleted {
		t.Errorf("expected completed, got %s", stored[0].Status)
	}
	if stored[0].TransactionID == nil || *stored[0].TransactionID == "" {
		t.Error("completed trade must carry the transaction id")
	}
	if stored[0].Price == nil || *stored[0].Price != 0.0125 {
		t.Errorf("completed trade must carry the achieved price, got %v", stored[0].Price)
	}

	if _, err := f.tokens.GetByAddress(context.Background(), token.Address); err != nil {
		t.Errorf("token must be persisted: %v", err)
	}
}

func TestUnsafeTokenIsNotPurchased(t *testing.T) {
	f := newFixture(t, Options{})
	f.eval.analysis = unsafeAnalysis()
	token := domain.Token{Address: "mint-risky", CreatedAt: 1700000000000}
	f.source.batches = [][]domain.Token{{token}}

	f.mon.Start(context.Background())
	waitSignal(t, f.eval.done, "evaluation")
	f.mon.Stop()

	if got := f.purchase.callCount(); got != 0 {
		t.Errorf("unsafe token must not be purchased, got %d attempts", got)
	}
	trades, _ := f.trades.GetByToken(context.Background(), token.Address)
	if len(trades) != 0 {
		t.Errorf("no trade record expected, got %d", len(trades))
	}
	// The token itself is still recorded for observability.
	if _, err := f.tokens.GetByAddress(context.Background(), token.Address); err != nil {
		t.Errorf("token must be persisted: %v", err)
	}
}

func TestInactiveConfigObservesOnly(t *testing.T) {
	f := newFixture(t, Options{
		Configs: memory.NewConfigStore(&domain.TradeConfig{IsActive: false}),
	})
	f.source.batches = [][]domain.Token{{{Address: "mint-idle", CreatedAt: 1700000000000}}}

	f.mon.Start(context.Background())
	waitSignal(t, f.eval.done, "evaluation")
	f.mon.Stop()

	if got := f.purchase.callCount(); got != 0 {
		t.Errorf("inactive config must not trade, got %d attempts", got)
	}
}

func TestPriorTradeGatesRepurchase(t *testing.T) {
	f := newFixture(t, Options{})
	token := domain.Token{Address: "mint-prior", CreatedAt: 1700000000000}
	prior := domain.Trade{
		ID:           idhash.ComputeTradeID(token.Address, 1690000000000),
		TokenAddress: token.Address,
		Amount:       0.05,
		Status:       domain.TradeCompleted,
		CreatedAt:    1690000000000,
	}
	if err := f.trades.Insert(context.Background(), &prior); err != nil {
		t.Fatalf("seed prior trade: %v", err)
	}
	f.source.batches = [][]domain.Token{{token}}

	f.mon.Start(context.Background())
	waitSignal(t, f.eval.done, "evaluation")
	f.mon.Stop()

	if got := f.purchase.callCount(); got != 0 {
		t.Errorf("prior trade must gate a repurchase, got %d attempts", got)
	}
}

func TestKnownTokenSkipsEvaluation(t *testing.T) {
	f := newFixture(t, Options{})
	token := domain.Token{Address: "mint-known", CreatedAt: 1700000000000}
	if err := f.tokens.Insert(context.Background(), &token); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	f.source.batches = [][]domain.Token{{token}}

	f.mon.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	f.mon.Stop()

	if got := f.eval.callCount(); got != 0 {
		t.Errorf("already-persisted token must not be re-evaluated, got %d", got)
	}
}

func TestDuplicateListingsInOneBatchCollapse(t *testing.T) {
	f := newFixture(t, Options{})
	token := domain.Token{Address: "mint-dup", CreatedAt: 1700000000000}
	f.source.batches = [][]domain.Token{{token, token, token}}

	f.mon.Start(context.Background())
	waitSignal(t, f.done, "trade completion")
	f.mon.Stop()

	if got := f.eval.callCount(); got != 1 {
		t.Errorf("duplicates within a batch must collapse, got %d evaluations", got)
	}
	if got := f.purchase.callCount(); got != 1 {
		t.Errorf("expected exactly 1 purchase, got %d", got)
	}
}

func TestFailedPurchaseIsRecordedAsFailed(t *testing.T) {
	f := newFixture(t, Options{})
	f.purchase.err = errors.New("no route found")
	token := domain.Token{Address: "mint-fail", CreatedAt: 1700000000000}
	f.source.batches = [][]domain.Token{{token}}

	f.mon.Start(context.Background())
	waitSignal(t, f.eval.done, "evaluation")
	// Give the failure path time to write the trade record.
	deadline := time.Now().Add(2 * time.Second)
	for {
		trades, _ := f.trades.GetByToken(context.Background(), token.Address)
		if len(trades) == 1 && trades[0].Status == domain.TradeFailed {
			if trades[0].Error == nil || *trades[0].Error == "" {
				t.Error("failed trade must carry the error detail")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("failed trade was not recorded: %v", trades)
		}
		time.Sleep(10 * time.Millisecond)
	}
	f.mon.Stop()
}

func TestStopReleasesExecutorSession(t *testing.T) {
	session := flight.New()
	var mu sync.Mutex
	inits := 0
	init := func(context.Context) error {
		mu.Lock()
		inits++
		mu.Unlock()
		return nil
	}

	if err := session.Do(context.Background(), init); err != nil {
		t.Fatalf("first init: %v", err)
	}

	f := newFixture(t, Options{Session: session})
	f.mon.Start(context.Background())
	f.mon.Stop()

	// Stop reset the session, so the next Do runs init again.
	if err := session.Do(context.Background(), init); err != nil {
		t.Fatalf("second init: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if inits != 2 {
		t.Errorf("expected re-initialization after Stop, got %d inits", inits)
	}
}

func TestMissingConfigStoreMeansInactive(t *testing.T) {
	f := newFixture(t, Options{Configs: memory.NewConfigStore(nil)})
	f.source.batches = [][]domain.Token{{{Address: "mint-nocfg", CreatedAt: 1700000000000}}}

	f.mon.Start(context.Background())
	waitSignal(t, f.eval.done, "evaluation")
	f.mon.Stop()

	if got := f.purchase.callCount(); got != 0 {
		t.Errorf("absent config must degrade to observe-only, got %d attempts", got)
	}
}
