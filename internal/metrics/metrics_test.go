package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_Twice(t *testing.T) {
	// Private registries: creating two must not panic.
	New()
	New()
}

func TestIncrSettlement(t *testing.T) {
	m := New()

	m.IncrSettlement(StatusSettled, 2)
	m.IncrSettlement(StatusSettled, 1)
	m.IncrSettlement(StatusFailed, 3)
	m.IncrSettlement(StatusNoDebts, 0)

	if got := m.Settlements(StatusSettled); got != 2 {
		t.Errorf("settled = %v, want 2", got)
	}
	if got := m.Settlements(StatusFailed); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.settlementTransfers); got != 3 {
		t.Errorf("transfers = %v, want 3 (failed settlements excluded)", got)
	}
}

func TestAddDebts(t *testing.T) {
	m := New()

	m.AddDebts("EUR", 2)
	m.AddDebts("EUR", 0)
	m.AddDebts("USD", 1)

	if got := testutil.ToFloat64(m.debtsEmitted.WithLabelValues("EUR")); got != 2 {
		t.Errorf("EUR debts = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.debtsEmitted); got != 2 {
		t.Errorf("series = %d, want 2", got)
	}
}

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("settle_guest", 15*time.Millisecond)

	if got := testutil.CollectAndCount(m.operationDuration, "ledgerwise_operation_duration_seconds"); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.IncrRateLookup(RateUnavailable)

	path := filepath.Join(t.TempDir(), "ledgerwise.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(data), `ledgerwise_rate_lookups_total{result="unavailable"} 1`) {
		t.Errorf("metrics file missing rate lookup counter:\n%s", data)
	}
}
