package calculator

import (
	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// Debt is a recommended payment from Debtor to Creditor.
// It is never persisted; settling it creates a models.Transfer.
type Debt struct {
	Debtor   string // Participant who owes
	Creditor string // Participant who is owed
	Amount   decimal.Decimal
	Currency models.Currency
}

// Rounded returns the debt with Amount rounded to the currency's minor unit.
func (d Debt) Rounded() Debt {
	d.Amount = currency.Round(d.Amount, d.Currency)
	return d
}

// position is one participant's outstanding amount, always positive.
type position struct {
	id     string
	amount decimal.Decimal
}

// Reduce turns one currency's balances into the payments that settle them.
//
// Greedy netting: repeatedly match the largest debtor with the largest
// creditor and settle the smaller of the two amounts. Ties on amount go to
// the lexicographically smallest participant ID, so output is identical
// across runs. Every step zeroes at least one participant, so at most N-1
// debts are emitted for N nonzero balances.
//
// Amounts keep full precision; use Debt.Rounded at presentation time.
// The input map is not modified.
func Reduce(balance map[string]decimal.Decimal, c models.Currency) []Debt {
	var debtors, creditors []position
	for id, amount := range balance {
		switch amount.Sign() {
		case 1:
			debtors = append(debtors, position{id: id, amount: amount})
		case -1:
			creditors = append(creditors, position{id: id, amount: amount.Neg()})
		}
	}

	var debts []Debt
	for len(debtors) > 0 && len(creditors) > 0 {
		di := largest(debtors)
		ci := largest(creditors)
		d, cr := &debtors[di], &creditors[ci]

		amount := decimal.Min(d.amount, cr.amount)
		debts = append(debts, Debt{
			Debtor:   d.id,
			Creditor: cr.id,
			Amount:   amount,
			Currency: c,
		})

		d.amount = d.amount.Sub(amount)
		cr.amount = cr.amount.Sub(amount)

		if d.amount.IsZero() {
			debtors = remove(debtors, di)
		}
		if cr.amount.IsZero() {
			creditors = remove(creditors, ci)
		}
	}

	return debts
}

// ReduceAll reduces every currency of the balance, currencies in sorted order.
func ReduceAll(b Balance) []Debt {
	var debts []Debt
	for _, c := range b.Currencies() {
		debts = append(debts, Reduce(b[c], c)...)
	}
	return debts
}

// largest returns the index of the biggest amount, smallest ID on ties.
func largest(ps []position) int {
	best := 0
	for i := 1; i < len(ps); i++ {
		switch ps[i].amount.Cmp(ps[best].amount) {
		case 1:
			best = i
		case 0:
			if ps[i].id < ps[best].id {
				best = i
			}
		}
	}
	return best
}

// remove deletes index i without preserving order; selection does not depend on it.
func remove(ps []position, i int) []position {
	last := len(ps) - 1
	ps[i] = ps[last]
	return ps[:last]
}
