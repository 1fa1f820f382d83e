package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/mmynk/ledgerwise/internal/storage"
)

// newTestStore connects to LEDGERWISE_TEST_DATABASE_URL or skips.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("LEDGERWISE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGERWISE_TEST_DATABASE_URL not set")
	}

	store, err := New(context.Background(), url)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedGroup(t *testing.T, store *PostgresStore) *models.Group {
	t.Helper()
	group := &models.Group{
		Name: "Trip",
		Members: []models.Member{
			{UserID: "pg-alice", Name: "Alice"},
			{Name: "Guest", Guest: true},
		},
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func TestPostgresStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := seedGroup(t, store)

	retrieved, err := store.GetGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if len(retrieved.Members) != 2 || !retrieved.Members[1].Guest || retrieved.Members[1].UserID != "" {
		t.Errorf("members not round-tripped: %+v", retrieved.Members)
	}

	if _, err := store.GetGroup(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.AddMember(ctx, &models.Member{GroupID: "missing", Name: "X"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	groups, err := store.ListGroupsByUser(ctx, "pg-alice")
	if err != nil {
		t.Fatalf("ListGroupsByUser failed: %v", err)
	}
	found := false
	for _, g := range groups {
		if g.ID == group.ID {
			found = true
		}
	}
	if !found {
		t.Error("Expected seeded group in ListGroupsByUser")
	}
}

func TestPostgresStore_Events(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := seedGroup(t, store)
	alice, guest := group.Members[0].ID, group.Members[1].ID

	expense := &models.Expense{
		GroupID:  group.ID,
		Currency: "EUR",
		Amount:   decimal.RequireFromString("10.005"),
		Shares: []models.Share{
			{ParticipantID: alice, Amount: decimal.RequireFromString("5.0025")},
			{ParticipantID: guest, Amount: decimal.RequireFromString("5.0025")},
		},
		Payments: []models.Payment{{ParticipantID: alice, Amount: decimal.RequireFromString("10.005")}},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	expenses, _, err := store.GetEventsByParticipantIDs(ctx, []string{guest})
	if err != nil {
		t.Fatalf("GetEventsByParticipantIDs failed: %v", err)
	}
	if len(expenses) != 1 || !expenses[0].Amount.Equal(decimal.RequireFromString("10.005")) {
		t.Fatalf("expense not round-tripped: %+v", expenses)
	}
	if len(expenses[0].Shares) != 2 || len(expenses[0].Payments) != 1 {
		t.Errorf("lines not loaded: %+v", expenses[0])
	}

	dup := []models.Transfer{
		{ID: "pg-dup-" + group.ID, GroupID: group.ID, SenderID: guest, ReceiverID: alice, Currency: "EUR", Amount: decimal.NewFromInt(1)},
		{ID: "pg-dup-" + group.ID, GroupID: group.ID, SenderID: guest, ReceiverID: alice, Currency: "EUR", Amount: decimal.NewFromInt(1)},
	}
	if err := store.InsertTransfers(ctx, dup); err == nil {
		t.Fatal("Expected error for duplicate transfer ID")
	}

	_, transfers, err := store.GetEventsByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetEventsByGroup failed: %v", err)
	}
	if len(transfers) != 0 {
		t.Errorf("expected rollback, found %d transfers", len(transfers))
	}

	settle := []models.Transfer{
		{GroupID: group.ID, SenderID: guest, ReceiverID: alice, Currency: "EUR", Amount: decimal.RequireFromString("5.0025")},
	}
	if err := store.InsertTransfers(ctx, settle); err != nil {
		t.Fatalf("InsertTransfers failed: %v", err)
	}
	_, transfers, err = store.GetEventsByGroup(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetEventsByGroup failed: %v", err)
	}
	if len(transfers) != 1 || !transfers[0].Amount.Equal(decimal.RequireFromString("5.0025")) {
		t.Errorf("transfer not round-tripped: %+v", transfers)
	}
}
