package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/ledgerwise/internal/models"
)

// CreateExpense persists an expense with its shares and payments.
func (s *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO expenses (id, group_id, description, currency, amount, created_at, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			expense.ID, expense.GroupID, expense.Description, string(expense.Currency),
			expense.Amount.String(), expense.CreatedAt, expense.CreatedBy,
		); err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		batch := &pgx.Batch{}
		for _, share := range expense.Shares {
			batch.Queue("INSERT INTO expense_shares (expense_id, participant_id, amount) VALUES ($1, $2, $3)",
				expense.ID, share.ParticipantID, share.Amount.String())
		}
		for _, payment := range expense.Payments {
			batch.Queue("INSERT INTO expense_payments (expense_id, participant_id, amount) VALUES ($1, $2, $3)",
				expense.ID, payment.ParticipantID, payment.Amount.String())
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert expense lines: %w", err)
		}
		return nil
	})
}

// GetEventsByGroup returns all expenses and transfers of a group.
func (s *PostgresStore) GetEventsByGroup(ctx context.Context, groupID string) ([]models.Expense, []models.Transfer, error) {
	expenses, err := s.queryExpenses(ctx, "WHERE group_id = $1", groupID)
	if err != nil {
		return nil, nil, err
	}
	transfers, err := s.queryTransfers(ctx, "WHERE group_id = $1", groupID)
	if err != nil {
		return nil, nil, err
	}
	return expenses, transfers, nil
}

// GetEventsByParticipantIDs returns the events involving any of the participants.
func (s *PostgresStore) GetEventsByParticipantIDs(ctx context.Context, participantIDs []string) ([]models.Expense, []models.Transfer, error) {
	if len(participantIDs) == 0 {
		return nil, nil, nil
	}

	expenses, err := s.queryExpenses(ctx,
		`WHERE id IN (
			SELECT expense_id FROM expense_shares WHERE participant_id = ANY($1)
			UNION
			SELECT expense_id FROM expense_payments WHERE participant_id = ANY($1)
		)`,
		participantIDs,
	)
	if err != nil {
		return nil, nil, err
	}

	transfers, err := s.queryTransfers(ctx,
		"WHERE sender_id = ANY($1) OR receiver_id = ANY($1)",
		participantIDs,
	)
	if err != nil {
		return nil, nil, err
	}
	return expenses, transfers, nil
}

// InsertTransfer persists one transfer.
func (s *PostgresStore) InsertTransfer(ctx context.Context, transfer *models.Transfer) error {
	prepareTransfer(transfer)
	if _, err := s.pool.Exec(ctx, insertTransferSQL, transferArgs(transfer)...); err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// InsertTransfers persists all transfers in one transaction.
func (s *PostgresStore) InsertTransfers(ctx context.Context, transfers []models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range transfers {
			prepareTransfer(&transfers[i])
			batch.Queue(insertTransferSQL, transferArgs(&transfers[i])...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert transfers: %w", err)
		}
		return nil
	})
}

const insertTransferSQL = `INSERT INTO transfers (id, group_id, sender_id, receiver_id, currency, amount, created_at, created_by, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func prepareTransfer(transfer *models.Transfer) {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}
}

func transferArgs(t *models.Transfer) []any {
	var note *string
	if t.Note != "" {
		note = &t.Note
	}
	return []any{
		t.ID, t.GroupID, t.SenderID, t.ReceiverID,
		string(t.Currency), t.Amount.String(), t.CreatedAt, t.CreatedBy, note,
	}
}

func (s *PostgresStore) queryExpenses(ctx context.Context, where string, args ...any) ([]models.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, description, currency, amount::text, created_at, created_by
		 FROM expenses `+where+` ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	index := make(map[string]int)
	for rows.Next() {
		var e models.Expense
		var c, amount string
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &c, &amount, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Currency = models.Currency(c)
		if e.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if len(expenses) == 0 {
		return expenses, nil
	}

	ids := make([]string, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}

	for _, table := range []string{"expense_shares", "expense_payments"} {
		lineRows, err := s.pool.Query(ctx,
			"SELECT expense_id, participant_id, amount::text FROM "+table+
				" WHERE expense_id = ANY($1) ORDER BY expense_id, participant_id",
			ids,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}

		for lineRows.Next() {
			var expenseID, participantID, amount string
			if err := lineRows.Scan(&expenseID, &participantID, &amount); err != nil {
				lineRows.Close()
				return nil, fmt.Errorf("failed to scan %s: %w", table, err)
			}
			a, err := parseAmount(amount)
			if err != nil {
				lineRows.Close()
				return nil, err
			}
			e := &expenses[index[expenseID]]
			if table == "expense_shares" {
				e.Shares = append(e.Shares, models.Share{ParticipantID: participantID, Amount: a})
			} else {
				e.Payments = append(e.Payments, models.Payment{ParticipantID: participantID, Amount: a})
			}
		}
		err = lineRows.Err()
		lineRows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
		}
	}

	return expenses, nil
}

func (s *PostgresStore) queryTransfers(ctx context.Context, where string, args ...any) ([]models.Transfer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, sender_id, receiver_id, currency, amount::text, created_at, created_by, note
		 FROM transfers `+where+` ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		var c, amount string
		var note *string
		if err := rows.Scan(&t.ID, &t.GroupID, &t.SenderID, &t.ReceiverID,
			&c, &amount, &t.CreatedAt, &t.CreatedBy, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.Currency = models.Currency(c)
		if t.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if note != nil {
			t.Note = *note
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}
