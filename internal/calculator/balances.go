package calculator

import (
	"sort"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// MemberBalance represents the balance information for one group member in one currency.
type MemberBalance struct {
	ParticipantID string
	TotalPaid     decimal.Decimal // Payments made plus transfers sent
	TotalOwed     decimal.Decimal // Shares owed plus transfers received
	NetBalance    decimal.Decimal // TotalOwed - TotalPaid; positive = owes money
}

// CurrencyBalances is the balance sheet and settlement plan of one currency.
type CurrencyBalances struct {
	Currency models.Currency
	Members  []MemberBalance
	Debts    []Debt
}

// Summarize computes paid/owed totals per participant and currency.
// Members are sorted by participant ID.
func Summarize(expenses []models.Expense, transfers []models.Transfer) map[models.Currency][]MemberBalance {
	totals := make(map[models.Currency]map[string]*MemberBalance)

	get := func(c models.Currency, id string) *MemberBalance {
		members, ok := totals[c]
		if !ok {
			members = make(map[string]*MemberBalance)
			totals[c] = members
		}
		mb, ok := members[id]
		if !ok {
			mb = &MemberBalance{ParticipantID: id}
			members[id] = mb
		}
		return mb
	}

	for _, e := range expenses {
		for _, s := range e.Shares {
			mb := get(e.Currency, s.ParticipantID)
			mb.TotalOwed = mb.TotalOwed.Add(s.Amount)
		}
		for _, p := range e.Payments {
			mb := get(e.Currency, p.ParticipantID)
			mb.TotalPaid = mb.TotalPaid.Add(p.Amount)
		}
	}

	// Sender's balance improves (they effectively "paid" to settle debt);
	// receiver's worsens (they received money).
	for _, t := range transfers {
		sender := get(t.Currency, t.SenderID)
		sender.TotalPaid = sender.TotalPaid.Add(t.Amount)
		receiver := get(t.Currency, t.ReceiverID)
		receiver.TotalOwed = receiver.TotalOwed.Add(t.Amount)
	}

	result := make(map[models.Currency][]MemberBalance, len(totals))
	for c, members := range totals {
		list := make([]MemberBalance, 0, len(members))
		for _, mb := range members {
			mb.NetBalance = mb.TotalOwed.Sub(mb.TotalPaid)
			list = append(list, *mb)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ParticipantID < list[j].ParticipantID })
		result[c] = list
	}
	return result
}

// CalculateGroupBalances computes balances across all expenses and transfers
// of a group, returning per-currency member summaries and a minimal set of
// debts that settles each currency. Currencies are sorted.
func CalculateGroupBalances(expenses []models.Expense, transfers []models.Transfer) []CurrencyBalances {
	summaries := Summarize(expenses, transfers)
	balance := Aggregate(expenses, transfers, nil)

	currencies := make([]models.Currency, 0, len(summaries))
	for c := range summaries {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	result := make([]CurrencyBalances, 0, len(currencies))
	for _, c := range currencies {
		result = append(result, CurrencyBalances{
			Currency: c,
			Members:  summaries[c],
			Debts:    Reduce(balance[c], c),
		})
	}
	return result
}
