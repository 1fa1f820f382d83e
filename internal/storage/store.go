// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/ledgerwise/internal/models"
)

// ErrNotFound is returned, wrapped with the missing ID, when a lookup finds nothing.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group with its members.
	// The group and member ID fields are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with all of its members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// AddMember adds a member or guest to an existing group.
	AddMember(ctx context.Context, member *models.Member) error

	// ListGroupsByUser returns every group the user is a member of.
	ListGroupsByUser(ctx context.Context, userID string) ([]models.Group, error)

	// CreateExpense persists an expense with its shares and payments atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetEventsByGroup returns all expenses and transfers of a group,
	// oldest first.
	GetEventsByGroup(ctx context.Context, groupID string) ([]models.Expense, []models.Transfer, error)

	// GetEventsByParticipantIDs returns every expense in which any of the
	// participants has a share or payment, complete with all lines, and every
	// transfer sent or received by them.
	GetEventsByParticipantIDs(ctx context.Context, participantIDs []string) ([]models.Expense, []models.Transfer, error)

	// InsertTransfer persists one transfer.
	InsertTransfer(ctx context.Context, transfer *models.Transfer) error

	// InsertTransfers persists a batch of transfers in a single transaction:
	// either all are stored or none are.
	InsertTransfers(ctx context.Context, transfers []models.Transfer) error

	// Close releases any resources held by the store.
	Close() error
}
