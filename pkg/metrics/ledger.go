package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records counters for stock ledger commits and conflicts.
type LedgerMetrics struct {
	txDuration        *prometheus.HistogramVec
	commits           *prometheus.CounterVec
	insufficientStock prometheus.Counter
	txRetries         prometheus.Counter
	txExhausted       prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op instance, which tests rely on.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_tx_duration_seconds",
		Help:    "Duration of ledger transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commits_total",
		Help: "Committed ledger transactions by operation.",
	}, []string{"op"})
	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_insufficient_stock_total",
		Help: "Sales rejected because stock would go negative.",
	})
	txRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_tx_retries_total",
		Help: "Transactions retried after a serialization or lock failure.",
	})
	txExhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_tx_retries_exhausted_total",
		Help: "Transactions abandoned after exhausting retries.",
	})
	reg.MustRegister(txDuration, commits, insufficientStock, txRetries, txExhausted)
	return &LedgerMetrics{
		txDuration:        txDuration,
		commits:           commits,
		insufficientStock: insufficientStock,
		txRetries:         txRetries,
		txExhausted:       txExhausted,
	}
}

// ObserveTx records the duration for the named operation.
func (m *LedgerMetrics) ObserveTx(op string, duration time.Duration) {
	if m == nil || m.txDuration == nil {
		return
	}
	m.txDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncCommit increments the commit counter for the named operation.
func (m *LedgerMetrics) IncCommit(op string) {
	if m == nil || m.commits == nil {
		return
	}
	m.commits.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncInsufficientStock counts a rejected oversell.
func (m *LedgerMetrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncTxRetry counts a transaction retry.
func (m *LedgerMetrics) IncTxRetry() {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.Inc()
}

// IncTxExhausted counts a transaction abandoned after retries ran out.
func (m *LedgerMetrics) IncTxExhausted() {
	if m == nil || m.txExhausted == nil {
		return
	}
	m.txExhausted.Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
