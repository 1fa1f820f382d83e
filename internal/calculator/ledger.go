package calculator

import (
	"sort"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// Balance maps currency to participant ID to signed net position.
// Positive = net debtor (owes money into the group),
// negative = net creditor (is owed money by the group).
type Balance map[models.Currency]map[string]decimal.Decimal

// Currencies returns the currencies present in the balance, sorted.
func (b Balance) Currencies() []models.Currency {
	currencies := make([]models.Currency, 0, len(b))
	for c := range b {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })
	return currencies
}

// Sum returns the total of all positions in one currency.
// It is zero for a complete, unfiltered set of valid events.
func (b Balance) Sum(c models.Currency) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range b[c] {
		sum = sum.Add(amount)
	}
	return sum
}

// ParticipantFilter restricts aggregation to a set of participant IDs.
// A nil or empty filter includes every participant.
type ParticipantFilter map[string]struct{}

// NewParticipantFilter creates a filter for the given IDs.
func NewParticipantFilter(ids ...string) ParticipantFilter {
	f := make(ParticipantFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

// Includes reports whether the participant passes the filter.
func (f ParticipantFilter) Includes(participantID string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[participantID]
	return ok
}

// Aggregate folds expenses and transfers into per-currency net balances.
//
// Sign rules:
//   - Share: participant owes more (+amount)
//   - Payment: participant owes less (-amount)
//   - Transfer: sender -amount, receiver +amount
//
// Inputs are assumed well formed (each expense's shares and payments both sum
// to its amount, amounts non-negative). This is not re-checked here; malformed
// input yields balances that do not sum to zero but never a panic.
// Participants whose balance ends at exactly zero are omitted.
func Aggregate(expenses []models.Expense, transfers []models.Transfer, scope ParticipantFilter) Balance {
	balance := make(Balance)

	apply := func(c models.Currency, participantID string, delta decimal.Decimal) {
		if !scope.Includes(participantID) {
			return
		}
		cells, ok := balance[c]
		if !ok {
			cells = make(map[string]decimal.Decimal)
			balance[c] = cells
		}
		cells[participantID] = cells[participantID].Add(delta)
	}

	for _, e := range expenses {
		for _, s := range e.Shares {
			apply(e.Currency, s.ParticipantID, s.Amount)
		}
		for _, p := range e.Payments {
			apply(e.Currency, p.ParticipantID, p.Amount.Neg())
		}
	}

	for _, t := range transfers {
		apply(t.Currency, t.SenderID, t.Amount.Neg())
		apply(t.Currency, t.ReceiverID, t.Amount)
	}

	for c, cells := range balance {
		for id, amount := range cells {
			if amount.IsZero() {
				delete(cells, id)
			}
		}
		if len(cells) == 0 {
			delete(balance, c)
		}
	}

	return balance
}
