package models

import "github.com/shopspring/decimal"

// Transfer represents a direct payment between group members.
// Settling a debt is recorded as a Transfer from the debtor to the creditor.
type Transfer struct {
	// ID is the unique identifier for the transfer (UUID format).
	ID string

	// GroupID is the group this transfer belongs to.
	GroupID string

	// SenderID is the participant who paid.
	SenderID string

	// ReceiverID is the participant who received the payment.
	ReceiverID string

	// Currency is the currency of Amount.
	Currency Currency

	// Amount is the payment amount.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the transfer was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this transfer.
	// Empty for transfers created by a settlement.
	CreatedBy string

	// Note is an optional description for the transfer.
	Note string
}
