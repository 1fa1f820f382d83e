package models

import "github.com/shopspring/decimal"

// Currency is an ISO 4217 style currency code such as "EUR" or "JPY".
type Currency string

// Expense is a shared cost recorded in a group.
//
// Every Share and Payment carries the expense's Currency. The sum of Shares
// and the sum of Payments both equal Amount; this is checked when the expense
// is recorded, not by the calculator.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a human-readable label (e.g., "Dinner", "Groceries").
	Description string

	// Currency is the currency of Amount, Shares and Payments.
	Currency Currency

	// Amount is the full cost of the expense including tax and tips.
	Amount decimal.Decimal

	// Shares is each participant's portion of the cost.
	Shares []Share

	// Payments is what each participant paid toward the cost.
	Payments []Payment

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this expense.
	CreatedBy string
}

// Share is a participant's portion of an expense.
type Share struct {
	ParticipantID string
	Amount        decimal.Decimal
}

// Payment is an amount a participant paid toward an expense.
type Payment struct {
	ParticipantID string
	Amount        decimal.Decimal
}
