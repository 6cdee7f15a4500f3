// Command watcher runs the token listing monitor: it watches launch venues
// for new tokens, scores each against safety heuristics, and places bounded
// purchases for the ones that pass.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bong69rip420/rugwatcher-automator/internal/analyzer"
	"github.com/bong69rip420/rugwatcher-automator/internal/config"
	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
	"github.com/bong69rip420/rugwatcher-automator/internal/executor"
	"github.com/bong69rip420/rugwatcher-automator/internal/jupiter"
	"github.com/bong69rip420/rugwatcher-automator/internal/listing"
	"github.com/bong69rip420/rugwatcher-automator/internal/monitor"
	"github.com/bong69rip420/rugwatcher-automator/internal/observability"
	"github.com/bong69rip420/rugwatcher-automator/internal/secrets"
	"github.com/bong69rip420/rugwatcher-automator/internal/solana"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage/clickhouse"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage/memory"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage/migrations"
	"github.com/bong69rip420/rugwatcher-automator/internal/storage/postgres"
	"github.com/bong69rip420/rugwatcher-automator/internal/throttle"
	"github.com/bong69rip420/rugwatcher-automator/internal/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("[watcher] load .env: %v", err)
	}

	if err := run(*configPath, logger); err != nil {
		logger.Fatalf("[watcher] %v", err)
	}
}

func run(configPath string, logger *log.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Signing key. Absence is fatal; the value itself is never logged.
	keySource := secrets.NewEnv("RUGWATCHER")
	encodedKey, err := secrets.Require(ctx, keySource, "wallet_key")
	if err != nil {
		return err
	}
	walletMgr := wallet.NewManager()
	pubkey, err := walletMgr.SetKey(encodedKey)
	if err != nil {
		return err
	}
	logger.Printf("[watcher] trading wallet %s", pubkey)

	metrics := observability.NewMetrics("rugwatcher")

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithTimeout(cfg.Solana.RequestTimeout),
		solana.WithMetrics(metrics))
	rpcThrottle := throttle.New(cfg.Solana.ThrottleInterval)
	aggThrottle := throttle.New(cfg.Aggregator.ThrottleInterval)
	aggregator := jupiter.NewHTTPClient(
		jupiter.WithEndpoints(cfg.Aggregator.QuoteURL, cfg.Aggregator.SwapURL),
		jupiter.WithMetrics(metrics))

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	anlz, err := analyzer.New(analyzer.Options{
		RPC:      rpc,
		Throttle: rpcThrottle,
		Analyses: stores.analyses,
		Thresholds: analyzer.Thresholds{
			HolderMin:        cfg.Analyzer.HolderMin,
			ConcentrationMax: cfg.Analyzer.ConcentrationMax,
			VolumeMin:        cfg.Analyzer.VolumeMin,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	exec, err := executor.New(executor.Options{
		RPC:                rpc,
		Aggregator:         aggregator,
		Wallet:             walletMgr,
		RPCThrottle:        rpcThrottle,
		AggregatorThrottle: aggThrottle,
		SlippageBps:        cfg.Aggregator.SlippageBps,
		MaxAttempts:        cfg.Executor.MaxAttempts,
		AttemptDelay:       cfg.Executor.AttemptDelay,
		Metrics:            metrics,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	source, err := buildSource(ctx, cfg, rpc, rpcThrottle, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	mon, err := monitor.New(monitor.Options{
		Source:         source,
		Analyzer:       anlz,
		Executor:       exec,
		Session:        exec.Session(),
		Tokens:         stores.tokens,
		Trades:         stores.trades,
		Configs:        stores.configs,
		Interval:       cfg.Monitor.Interval,
		PurchaseAmount: cfg.Monitor.PurchaseAmount,
		Metrics:        metrics,
		Notifier:       monitor.NewLogNotifier(logger),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("[watcher] metrics server: %v", err)
			}
		}()
	}

	mon.Start(ctx)

	<-ctx.Done()
	logger.Printf("[watcher] shutting down")

	mon.Stop()
	walletMgr.Clear()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("[watcher] metrics shutdown: %v", err)
		}
	}

	return nil
}

type storeSet struct {
	tokens   storage.TokenStore
	trades   storage.TradeStore
	configs  storage.ConfigStore
	analyses storage.AnalysisStore
}

// buildStores wires the configured persistence backend. The returned
// cleanup closes any held connections.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (storeSet, func(), error) {
	cleanup := func() {}

	if cfg.Storage.Backend == "memory" {
		return storeSet{
			tokens:   memory.NewTokenStore(),
			trades:   memory.NewTradeStore(),
			configs:  memory.NewConfigStore(&domain.TradeConfig{IsActive: true, MaxTradeAmount: cfg.Monitor.PurchaseAmount}),
			analyses: memory.NewAnalysisStore(),
		}, cleanup, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return storeSet{}, cleanup, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return storeSet{}, cleanup, err
	}

	stores := storeSet{
		tokens:  postgres.NewTokenStore(pool),
		trades:  postgres.NewTradeStore(pool),
		configs: postgres.NewConfigStore(pool),
	}

	var chConn *clickhouse.Conn
	if cfg.Storage.ClickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return storeSet{}, cleanup, err
		}
		stores.analyses = clickhouse.NewAnalysisStore(chConn)
	} else {
		stores.analyses = postgres.NewAnalysisStore(pool)
	}

	cleanup = func() {
		if chConn != nil {
			if err := chConn.Close(); err != nil {
				logger.Printf("[watcher] close clickhouse: %v", err)
			}
		}
		pool.Close()
	}

	return stores, cleanup, nil
}

func buildSource(ctx context.Context, cfg *config.Config, rpc solana.Client, rpcThrottle *throttle.Throttle, logger *log.Logger) (listing.Source, error) {
	if cfg.Monitor.UseWebsocket {
		return listing.NewWSSource(ctx, listing.WSSourceOptions{
			Endpoint: cfg.Solana.WSURL,
			RPC:      rpc,
			Throttle: rpcThrottle,
			Programs: cfg.Monitor.Programs,
			Logger:   logger,
		})
	}

	return listing.NewRPCSource(listing.RPCSourceOptions{
		RPC:      rpc,
		Throttle: rpcThrottle,
		Programs: cfg.Monitor.Programs,
		Logger:   logger,
	})
}
