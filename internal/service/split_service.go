package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledgerwise/internal/calculator"
	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/models"
)

// ExpenseInput describes an expense to record.
type ExpenseInput struct {
	GroupID     string
	Description string // generated from participant names when empty
	Currency    models.Currency
	Total       decimal.Decimal
	// Subtotal is the pre-tax sum of Items. Defaults to Total.
	Subtotal decimal.Decimal
	// Items splits the expense by line item. Without items the split is equal.
	Items []calculator.Item
	// Participants share the expense. Defaults to every group member.
	Participants []string
	// PayerID paid the full Total. Ignored when Payments is set.
	PayerID   string
	Payments  []models.Payment
	CreatedBy string
}

// TransferInput describes a direct payment between two members.
type TransferInput struct {
	GroupID    string
	SenderID   string
	ReceiverID string
	Currency   models.Currency
	Amount     decimal.Decimal
	Note       string
	CreatedBy  string
}

// validatePayerID checks if the payer is one of the participants.
func validatePayerID(payerID string, participants []string) error {
	if payerID == "" {
		return invalidf("payer_id or payments required")
	}
	if !isParticipant(payerID, participants) {
		return invalidf("payer_id '%s' must be a group member", payerID)
	}
	return nil
}

// isParticipant checks if the ID is in the participants list.
func isParticipant(id string, participants []string) bool {
	for _, p := range participants {
		if p == id {
			return true
		}
	}
	return false
}

// RecordExpense splits an expense among its participants and stores it.
func (s *LedgerService) RecordExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	slog.Info("RecordExpense request received",
		"group_id", in.GroupID,
		"currency", in.Currency,
		"total", in.Total.String(),
		"items_count", len(in.Items),
	)
	defer s.observe("record_expense", time.Now())

	if in.GroupID == "" {
		return nil, invalidf("group_id required")
	}
	c := currency.Normalize(string(in.Currency))
	if c == "" {
		return nil, invalidf("currency required")
	}
	if !in.Total.IsPositive() {
		return nil, invalidf("total must be positive")
	}

	group, err := s.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		slog.Error("RecordExpense failed - group not found", "group_id", in.GroupID, "error", err)
		return nil, err
	}
	members := group.ParticipantIDs()

	participants := in.Participants
	if len(participants) == 0 {
		participants = members
	}
	for _, p := range participants {
		if !isParticipant(p, members) {
			return nil, invalidf("participant %s is not a member of group %s", p, in.GroupID)
		}
	}

	payments := in.Payments
	if len(payments) == 0 {
		if err := validatePayerID(in.PayerID, members); err != nil {
			return nil, err
		}
		payments = []models.Payment{{ParticipantID: in.PayerID, Amount: in.Total}}
	}
	paid := decimal.Zero
	for _, p := range payments {
		if !isParticipant(p.ParticipantID, members) {
			return nil, invalidf("payer %s is not a member of group %s", p.ParticipantID, in.GroupID)
		}
		if !p.Amount.IsPositive() {
			return nil, invalidf("payment amounts must be positive")
		}
		paid = paid.Add(p.Amount)
	}
	if !paid.Equal(in.Total) {
		return nil, invalidf("payments sum to %s, want total %s", paid, in.Total)
	}

	subtotal := in.Subtotal
	if subtotal.IsZero() {
		subtotal = in.Total
	}
	shares, err := calculator.SplitExpense(in.Items, in.Total, subtotal, participants, c)
	if err != nil {
		slog.Error("SplitExpense failed during RecordExpense", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = generateTitle(memberNames(group, participants))
	}

	expense := &models.Expense{
		GroupID:     in.GroupID,
		Description: description,
		Currency:    c,
		Amount:      in.Total,
		Shares:      shares,
		Payments:    payments,
		CreatedBy:   in.CreatedBy,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("RecordExpense failed", "error", err)
		return nil, err
	}

	slog.Info("Expense recorded", "group_id", in.GroupID, "expense_id", expense.ID)
	return expense, nil
}

// RecordTransfer stores a direct payment between two group members.
func (s *LedgerService) RecordTransfer(ctx context.Context, in TransferInput) (*models.Transfer, error) {
	slog.Info("RecordTransfer request received",
		"group_id", in.GroupID,
		"sender_id", in.SenderID,
		"receiver_id", in.ReceiverID,
		"amount", in.Amount.String(),
	)
	defer s.observe("record_transfer", time.Now())

	if in.GroupID == "" {
		return nil, invalidf("group_id required")
	}
	if in.SenderID == "" || in.ReceiverID == "" {
		return nil, invalidf("sender_id and receiver_id required")
	}
	if in.SenderID == in.ReceiverID {
		return nil, invalidf("cannot transfer to yourself")
	}
	if !in.Amount.IsPositive() {
		return nil, invalidf("amount must be positive")
	}
	c := currency.Normalize(string(in.Currency))
	if c == "" {
		return nil, invalidf("currency required")
	}

	group, err := s.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		slog.Error("RecordTransfer failed - group not found", "group_id", in.GroupID, "error", err)
		return nil, err
	}
	members := group.ParticipantIDs()
	if !isParticipant(in.SenderID, members) || !isParticipant(in.ReceiverID, members) {
		return nil, invalidf("sender and receiver must be members of group %s", in.GroupID)
	}

	transfer := &models.Transfer{
		GroupID:    in.GroupID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Currency:   c,
		Amount:     in.Amount,
		CreatedBy:  in.CreatedBy,
		Note:       in.Note,
	}
	if err := s.store.InsertTransfer(ctx, transfer); err != nil {
		slog.Error("RecordTransfer failed", "error", err)
		return nil, err
	}

	slog.Info("Transfer recorded", "group_id", in.GroupID, "transfer_id", transfer.ID)
	return transfer, nil
}

func memberNames(group *models.Group, participantIDs []string) []string {
	names := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		if m, ok := group.Member(id); ok {
			names = append(names, m.Name)
		}
	}
	return names
}

// generateTitle creates an auto-generated description from participant names.
func generateTitle(names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("Expense - %s", time.Now().Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
