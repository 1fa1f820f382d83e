// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, verifies the connection and runs migrations.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// RunMigrations creates the schema if it does not exist.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS group_members (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id TEXT,
			name TEXT NOT NULL,
			guest BOOLEAN NOT NULL DEFAULT FALSE,
			position BIGSERIAL,
			UNIQUE (group_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			created_at BIGINT NOT NULL,
			created_by TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS expense_shares (
			expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL REFERENCES group_members(id),
			amount NUMERIC NOT NULL,
			PRIMARY KEY (expense_id, participant_id)
		);
		CREATE TABLE IF NOT EXISTS expense_payments (
			expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			participant_id TEXT NOT NULL REFERENCES group_members(id),
			amount NUMERIC NOT NULL,
			PRIMARY KEY (expense_id, participant_id)
		);
		CREATE TABLE IF NOT EXISTS transfers (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			sender_id TEXT NOT NULL REFERENCES group_members(id),
			receiver_id TEXT NOT NULL REFERENCES group_members(id),
			currency TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			created_at BIGINT NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			note TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
		CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
		CREATE INDEX IF NOT EXISTS idx_expense_shares_participant_id ON expense_shares(participant_id);
		CREATE INDEX IF NOT EXISTS idx_expense_payments_participant_id ON expense_payments(participant_id);
		CREATE INDEX IF NOT EXISTS idx_transfers_group_id ON transfers(group_id);
		CREATE INDEX IF NOT EXISTS idx_transfers_sender_id ON transfers(sender_id);
		CREATE INDEX IF NOT EXISTS idx_transfers_receiver_id ON transfers(receiver_id);
	`)
	return err
}

// CreateGroup persists a new group and its members.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"INSERT INTO groups (id, name, created_at) VALUES ($1, $2, $3)",
			group.ID, group.Name, group.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		for i := range group.Members {
			member := &group.Members[i]
			member.GroupID = group.ID
			if err := insertMember(ctx, tx, member); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// GetGroup retrieves a group by ID, including all members.
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = $1",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id, group_id, user_id, name, guest FROM group_members WHERE group_id = $1 ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		var userID *string
		if err := rows.Scan(&m.ID, &m.GroupID, &userID, &m.Name, &m.Guest); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if userID != nil {
			m.UserID = *userID
		}
		group.Members = append(group.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return group, nil
}

// AddMember adds a member to an existing group.
func (s *PostgresStore) AddMember(ctx context.Context, member *models.Member) error {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)", member.GroupID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("group %s: %w", member.GroupID, storage.ErrNotFound)
	}
	return insertMember(ctx, s.pool, member)
}

// ListGroupsByUser returns all groups with a membership for userID.
func (s *PostgresStore) ListGroupsByUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1
		 ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by user: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan groups: %w", err)
	}

	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// execer is satisfied by the pool and by transactions.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertMember(ctx context.Context, db execer, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	var userID *string
	if member.UserID != "" {
		userID = &member.UserID
	}

	if _, err := db.Exec(ctx,
		"INSERT INTO group_members (id, group_id, user_id, name, guest) VALUES ($1, $2, $3, $4, $5)",
		member.ID, member.GroupID, userID, member.Name, member.Guest,
	); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return d, nil
}
