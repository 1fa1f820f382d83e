// Package rates provides exchange-rate snapshots and the providers that fetch them.
package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// Provider supplies the latest exchange-rate snapshot.
type Provider interface {
	LatestRates(ctx context.Context) (Snapshot, error)
}

// Snapshot is a set of exchange rates valid at one point in time.
// Rates[c] is the number of units of c worth one unit of Base.
type Snapshot struct {
	Base      models.Currency
	Rates     map[models.Currency]decimal.Decimal
	FetchedAt time.Time
}

// UnavailableError indicates that no usable rate exists for a currency.
type UnavailableError struct {
	Currency models.Currency
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("exchange rate unavailable for currency %s", e.Currency)
}

// ExternalError indicates a failure fetching rates from an external service.
type ExternalError struct {
	Service string
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// Rate returns the rate of c against the snapshot base.
// The base currency always has rate 1, listed or not.
func (s Snapshot) Rate(c models.Currency) (decimal.Decimal, bool) {
	if c == s.Base && c != "" {
		return decimal.NewFromInt(1), true
	}
	r, ok := s.Rates[c]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Convert converts amount from src to target.
// Returns *UnavailableError naming the first currency without a rate.
func (s Snapshot) Convert(amount decimal.Decimal, src, target models.Currency) (decimal.Decimal, error) {
	if src == target {
		return amount, nil
	}
	srcRate, ok := s.Rate(src)
	if !ok {
		return decimal.Zero, &UnavailableError{Currency: src}
	}
	targetRate, ok := s.Rate(target)
	if !ok {
		return decimal.Zero, &UnavailableError{Currency: target}
	}
	// Multiply first so exact rates stay exact.
	return amount.Mul(targetRate).Div(srcRate), nil
}

// Static is a Provider that always returns the same snapshot.
type Static struct {
	snapshot Snapshot
}

// NewStatic creates a provider for a fixed snapshot.
func NewStatic(snapshot Snapshot) *Static {
	return &Static{snapshot: snapshot}
}

// LatestRates returns the fixed snapshot.
func (p *Static) LatestRates(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return p.snapshot, nil
}
