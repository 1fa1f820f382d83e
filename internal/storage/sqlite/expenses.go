package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmynk/ledgerwise/internal/models"
)

// CreateExpense persists an expense with its shares and payments.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, description, currency, amount, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, string(expense.Currency),
		expense.Amount.String(), expense.CreatedAt, expense.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, share := range expense.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, participant_id, amount) VALUES (?, ?, ?)",
			expense.ID, share.ParticipantID, share.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	for _, payment := range expense.Payments {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_payments (expense_id, participant_id, amount) VALUES (?, ?, ?)",
			expense.ID, payment.ParticipantID, payment.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetEventsByGroup returns all expenses and transfers of a group.
func (s *SQLiteStore) GetEventsByGroup(ctx context.Context, groupID string) ([]models.Expense, []models.Transfer, error) {
	expenses, err := s.queryExpenses(ctx,
		"WHERE group_id = ?", groupID,
	)
	if err != nil {
		return nil, nil, err
	}

	transfers, err := s.queryTransfers(ctx,
		"WHERE group_id = ?", groupID,
	)
	if err != nil {
		return nil, nil, err
	}

	return expenses, transfers, nil
}

// GetEventsByParticipantIDs returns the events involving any of the participants.
func (s *SQLiteStore) GetEventsByParticipantIDs(ctx context.Context, participantIDs []string) ([]models.Expense, []models.Transfer, error) {
	if len(participantIDs) == 0 {
		return nil, nil, nil
	}

	in := placeholders(len(participantIDs))
	ids := stringArgs(participantIDs)

	expenseArgs := append(append([]any{}, ids...), ids...)
	expenses, err := s.queryExpenses(ctx,
		`WHERE id IN (
			SELECT expense_id FROM expense_shares WHERE participant_id IN (`+in+`)
			UNION
			SELECT expense_id FROM expense_payments WHERE participant_id IN (`+in+`)
		)`,
		expenseArgs...,
	)
	if err != nil {
		return nil, nil, err
	}

	transferArgs := append(append([]any{}, ids...), ids...)
	transfers, err := s.queryTransfers(ctx,
		"WHERE sender_id IN ("+in+") OR receiver_id IN ("+in+")",
		transferArgs...,
	)
	if err != nil {
		return nil, nil, err
	}

	return expenses, transfers, nil
}

// queryExpenses loads the expenses matching where, then their shares and payments.
func (s *SQLiteStore) queryExpenses(ctx context.Context, where string, args ...any) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, description, currency, amount, created_at, created_by
		 FROM expenses `+where+` ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var c, amount string
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &c, &amount, &e.CreatedAt, &e.CreatedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Currency = models.Currency(c)
		if e.Amount, err = parseAmount(amount); err != nil {
			rows.Close()
			return nil, err
		}
		expenses = append(expenses, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if len(expenses) == 0 {
		return expenses, nil
	}

	index := make(map[string]int, len(expenses))
	for i, e := range expenses {
		index[e.ID] = i
	}

	err = s.queryLines(ctx, "expense_shares", where, args, func(expenseID, participantID string, amount string) error {
		i, ok := index[expenseID]
		if !ok {
			return nil // expense created after the first query
		}
		a, err := parseAmount(amount)
		if err != nil {
			return err
		}
		expenses[i].Shares = append(expenses[i].Shares, models.Share{ParticipantID: participantID, Amount: a})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.queryLines(ctx, "expense_payments", where, args, func(expenseID, participantID string, amount string) error {
		i, ok := index[expenseID]
		if !ok {
			return nil
		}
		a, err := parseAmount(amount)
		if err != nil {
			return err
		}
		expenses[i].Payments = append(expenses[i].Payments, models.Payment{ParticipantID: participantID, Amount: a})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expenses, nil
}

// queryLines streams the share or payment rows of the expenses matching where
// to fn. The expense filter is repeated as a subquery so the number of bound
// variables does not grow with the number of expenses.
func (s *SQLiteStore) queryLines(ctx context.Context, table, where string, args []any, fn func(expenseID, participantID, amount string) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, participant_id, amount FROM "+table+
			" WHERE expense_id IN (SELECT id FROM expenses "+where+") ORDER BY expense_id, rowid",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID, participantID, amount string
		if err := rows.Scan(&expenseID, &participantID, &amount); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if err := fn(expenseID, participantID, amount); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	return nil
}
