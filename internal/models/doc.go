// Package models defines the core domain models for ledgerwise.
//
// # Ledger events
//
// Balances are never stored. They are derived on every read from three
// kinds of ledger event:
//   - Share: a participant's portion of an Expense (increases what they owe)
//   - Payment: what a participant actually paid toward an Expense (decreases what they owe)
//   - Transfer: a direct settlement between two participants
//
// # Participants
//
// A participant is a Member of a Group, identified by the membership ID.
// Registered users and guests are both members; guests simply have no UserID.
// The calculator never needs to know which kind an ID refers to.
//
// # Design Principles
//
// 1. **Fixed-point money**: every amount is a decimal.Decimal, never a float
// 2. **Avoid circular references**: use ID strings instead of pointers for relationships
// 3. **Immutable events**: expenses and transfers are appended, settlements are new transfers
package models
