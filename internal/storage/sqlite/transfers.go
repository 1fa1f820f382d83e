package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmynk/ledgerwise/internal/models"
)

// InsertTransfer persists a new transfer to the database.
func (s *SQLiteStore) InsertTransfer(ctx context.Context, transfer *models.Transfer) error {
	prepareTransfer(transfer)
	return insertTransfer(ctx, s.db, transfer)
}

// InsertTransfers persists all transfers in one transaction.
func (s *SQLiteStore) InsertTransfers(ctx context.Context, transfers []models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range transfers {
		prepareTransfer(&transfers[i])
		if err := insertTransfer(ctx, tx, &transfers[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func prepareTransfer(transfer *models.Transfer) {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	if transfer.CreatedAt == 0 {
		transfer.CreatedAt = time.Now().Unix()
	}
}

func insertTransfer(ctx context.Context, db execer, transfer *models.Transfer) error {
	var note any
	if transfer.Note != "" {
		note = transfer.Note
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO transfers (id, group_id, sender_id, receiver_id, currency, amount, created_at, created_by, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.GroupID, transfer.SenderID, transfer.ReceiverID,
		string(transfer.Currency), transfer.Amount.String(), transfer.CreatedAt, transfer.CreatedBy, note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

// queryTransfers loads the transfers matching where, oldest first.
func (s *SQLiteStore) queryTransfers(ctx context.Context, where string, args ...any) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, sender_id, receiver_id, currency, amount, created_at, created_by, note
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
		var note sql.NullString

		if err := rows.Scan(&t.ID, &t.GroupID, &t.SenderID, &t.ReceiverID,
			&c, &amount, &t.CreatedAt, &t.CreatedBy, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}

		t.Currency = models.Currency(c)
		if t.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if note.Valid {
			t.Note = note.String
		}

		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}

	return transfers, nil
}
