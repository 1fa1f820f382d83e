// Package metrics holds the Prometheus instruments of the ledger service.
package metrics

import (
	"fmt"
	"time"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Settlement outcomes.
const (
	StatusSettled = "settled"
	StatusNoDebts = "no_debts"
	StatusFailed  = "failed"
)

// Rate lookup outcomes.
const (
	RateOK          = "ok"
	RateUnavailable = "unavailable"
	RateError       = "error"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry owns every metric below. Private so that tests and
	// multiple services never collide on registration.
	Registry *prometheus.Registry

	operationDuration   *prometheus.HistogramVec
	settlements         *prometheus.CounterVec
	settlementTransfers prometheus.Counter
	debtsEmitted        *prometheus.CounterVec
	rateLookups         *prometheus.CounterVec
}

// New creates a dedicated registry and registers all metrics in it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgerwise_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerwise_settlements_total",
				Help: "Guest settlements by outcome.",
			},
			[]string{"status"},
		),
		settlementTransfers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledgerwise_settlement_transfers_total",
				Help: "Transfers written by guest settlements.",
			},
		),
		debtsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerwise_debts_emitted_total",
				Help: "Debts produced by the reducer.",
			},
			[]string{"currency"},
		),
		rateLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgerwise_rate_lookups_total",
				Help: "Exchange rate snapshot lookups by outcome.",
			},
			[]string{"result"},
		),
	}
}

// ObserveOperation records how long an operation took.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrSettlement counts a settlement and the transfers it wrote.
func (m *Metrics) IncrSettlement(status string, transfers int) {
	m.settlements.WithLabelValues(status).Inc()
	if status == StatusSettled {
		m.settlementTransfers.Add(float64(transfers))
	}
}

// AddDebts counts reducer output for a currency.
func (m *Metrics) AddDebts(c models.Currency, n int) {
	if n == 0 {
		return
	}
	m.debtsEmitted.WithLabelValues(string(c)).Add(float64(n))
}

// IncrRateLookup counts a rate snapshot lookup.
func (m *Metrics) IncrRateLookup(result string) {
	m.rateLookups.WithLabelValues(result).Inc()
}

// Settlements returns the current settlement count for a status.
func (m *Metrics) Settlements(status string) float64 {
	return counterValue(m.settlements.WithLabelValues(status))
}

// RateLookups returns the current rate lookup count for a result.
func (m *Metrics) RateLookups(result string) float64 {
	return counterValue(m.rateLookups.WithLabelValues(result))
}

// WriteFile writes every metric to path in the text exposition format,
// for pickup by a node_exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}
