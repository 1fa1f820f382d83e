package calculator

import (
	"errors"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/rates"
	"github.com/shopspring/decimal"
)

// Project computes a user's net position across all of their groups.
//
// The user's participant ID is resolved in every group and a single Aggregate
// runs over all events filtered to that set of IDs, so positions are merged by
// currency only. Each non-zero currency is then converted to target with the
// snapshot and summed.
//
// A non-zero currency without a rate fails with *rates.UnavailableError;
// several are joined with errors.Join in currency order. The per-currency map
// uses the Balance sign convention (positive = the user owes money).
func Project(userID string, groups []models.Group, expenses []models.Expense, transfers []models.Transfer, snap rates.Snapshot, target models.Currency) (map[models.Currency]decimal.Decimal, decimal.Decimal, error) {
	var ids []string
	for i := range groups {
		if id, ok := groups[i].ParticipantFor(userID); ok {
			ids = append(ids, id)
		}
	}

	byCurrency := make(map[models.Currency]decimal.Decimal)
	if len(ids) == 0 {
		return byCurrency, decimal.Zero, nil
	}

	balance := Aggregate(expenses, transfers, NewParticipantFilter(ids...))

	total := decimal.Zero
	var errs []error
	for _, c := range balance.Currencies() {
		amount := balance.Sum(c)
		if amount.IsZero() {
			continue
		}
		byCurrency[c] = amount

		converted, err := snap.Convert(amount, c, target)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total = total.Add(converted)
	}

	if len(errs) > 0 {
		return byCurrency, decimal.Zero, errors.Join(errs...)
	}
	return byCurrency, total, nil
}
