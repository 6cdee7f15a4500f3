// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Monitor metrics
	TokensObserved  prometheus.Counter
	TokensPersisted prometheus.Counter
	MonitorRunning  prometheus.Gauge
	LastTickTime    prometheus.Gauge

	// Analyzer metrics
	AnalysesTotal *prometheus.CounterVec // label: verdict (safe|unsafe)
	RiskLevels    *prometheus.CounterVec // label: level (LOW|MEDIUM|HIGH)

	// Executor metrics
	TradesTotal     *prometheus.CounterVec // label: status (completed|failed)
	PurchaseRetries prometheus.Counter

	// Latency metrics
	RPCCallLatency        *prometheus.HistogramVec // label: method
	AggregatorCallLatency *prometheus.HistogramVec // label: operation

	// Storage metrics
	PersistenceErrors *prometheus.CounterVec // label: store
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics on reg. Tests pass a fresh
// registry so multiple instances can coexist in one process.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "rugwatcher"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TokensObserved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tokens_observed_total",
			Help:      "Total number of token listings observed",
		}),
		TokensPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tokens_persisted_total",
			Help:      "Total number of new tokens persisted",
		}),
		MonitorRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "running",
			Help:      "Whether the monitor loop is running (1) or stopped (0)",
		}),
		LastTickTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_tick_timestamp_seconds",
			Help:      "Unix timestamp of the last completed monitor tick",
		}),
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "analyses_total",
			Help:      "Total number of token analyses by verdict",
		}, []string{"verdict"}),
		RiskLevels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "risk_levels_total",
			Help:      "Total number of token analyses by risk level",
		}, []string{"level"}),
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_total",
			Help:      "Total number of purchase attempts by final status",
		}, []string{"status"}),
		PurchaseRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "purchase_retries_total",
			Help:      "Total number of purchase attempt retries",
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Latency of Solana RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		AggregatorCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "call_duration_seconds",
			Help:      "Latency of DEX aggregator calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "persistence_errors_total",
			Help:      "Total number of non-fatal persistence failures",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
