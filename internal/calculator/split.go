package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNoParticipants = errors.New("must have at least one participant")
	ErrZeroSubtotal   = errors.New("subtotal cannot be zero")
	ErrNegativeAmount = errors.New("amounts cannot be negative")
)

// Item represents a single item on the bill
type Item struct {
	Description string
	Amount      decimal.Decimal
	AssignedTo  []string
}

// SplitExpense computes each participant's share of an expense.
//
// Without items the total is split equally. With items, each item is split
// equally among its assignees and tax is applied proportionally:
// person_total = person_subtotal × (total / subtotal).
//
// Shares are rounded down to the currency's minor unit and the leftover minor
// units go one at a time to the largest rounding remainders (ties by
// participant ID), so the shares always sum to exactly total.
func SplitExpense(items []Item, total, subtotal decimal.Decimal, participants []string, c models.Currency) ([]models.Share, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if total.IsNegative() || subtotal.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if !currency.Round(total, c).Equal(total) {
		return nil, fmt.Errorf("total %s has more precision than %s allows", total, c)
	}

	raw := make(map[string]decimal.Decimal, len(participants))
	for _, p := range participants {
		if _, dup := raw[p]; dup {
			return nil, fmt.Errorf("duplicate participant %s", p)
		}
		raw[p] = decimal.Zero
	}

	if len(items) == 0 {
		perPerson := total.Div(decimal.NewFromInt(int64(len(participants))))
		for p := range raw {
			raw[p] = perPerson
		}
	} else {
		if subtotal.IsZero() {
			return nil, ErrZeroSubtotal
		}
		itemsTotal := decimal.Zero
		for _, item := range items {
			if item.Amount.IsNegative() {
				return nil, ErrNegativeAmount
			}
			if len(item.AssignedTo) == 0 {
				return nil, fmt.Errorf("item %q is not assigned to anyone", item.Description)
			}
			perPerson := item.Amount.Div(decimal.NewFromInt(int64(len(item.AssignedTo))))
			for _, person := range item.AssignedTo {
				if _, ok := raw[person]; !ok {
					return nil, fmt.Errorf("item %q assigned to non-participant %s", item.Description, person)
				}
				raw[person] = raw[person].Add(perPerson)
			}
			itemsTotal = itemsTotal.Add(item.Amount)
		}
		if !itemsTotal.Equal(subtotal) {
			return nil, fmt.Errorf("items sum to %s, want subtotal %s", itemsTotal, subtotal)
		}
		for p, sub := range raw {
			raw[p] = sub.Mul(total).Div(subtotal)
		}
	}

	return allocate(raw, participants, total, c), nil
}

// allocate floors each raw amount to the minor unit and hands out the
// remaining units by largest remainder.
func allocate(raw map[string]decimal.Decimal, participants []string, total decimal.Decimal, c models.Currency) []models.Share {
	places := currency.MinorUnits(c)
	unit := currency.Unit(c)

	floored := make(map[string]decimal.Decimal, len(raw))
	allocated := decimal.Zero
	for p, amount := range raw {
		f := amount.RoundFloor(places)
		floored[p] = f
		allocated = allocated.Add(f)
	}

	order := make([]string, len(participants))
	copy(order, participants)
	sort.Slice(order, func(i, j int) bool {
		ri := raw[order[i]].Sub(floored[order[i]])
		rj := raw[order[j]].Sub(floored[order[j]])
		if cmp := ri.Cmp(rj); cmp != 0 {
			return cmp > 0
		}
		return order[i] < order[j]
	})

	for i := 0; allocated.LessThan(total); i++ {
		p := order[i%len(order)]
		floored[p] = floored[p].Add(unit)
		allocated = allocated.Add(unit)
	}

	shares := make([]models.Share, len(participants))
	for i, p := range participants {
		shares[i] = models.Share{ParticipantID: p, Amount: floored[p]}
	}
	return shares
}
