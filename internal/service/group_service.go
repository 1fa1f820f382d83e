package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/ledgerwise/internal/models"
)

// CreateGroup creates a new group with the given members.
// Members without a UserID are stored as guests.
func (s *LedgerService) CreateGroup(ctx context.Context, name string, members []models.Member) (*models.Group, error) {
	slog.Info("CreateGroup request received",
		"name", name,
		"members_count", len(members),
	)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("group name required")
	}

	seen := make(map[string]bool, len(members))
	group := &models.Group{Name: name}
	for _, m := range members {
		if strings.TrimSpace(m.Name) == "" {
			return nil, invalidf("member name required")
		}
		if m.UserID != "" {
			if seen[m.UserID] {
				return nil, invalidf("user %s listed twice", m.UserID)
			}
			seen[m.UserID] = true
		}
		group.Members = append(group.Members, models.Member{
			UserID: m.UserID,
			Name:   m.Name,
			Guest:  m.UserID == "",
		})
	}

	// Save to storage (generates IDs and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *LedgerService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	slog.Info("GetGroup request received", "group_id", groupID)

	if groupID == "" {
		return nil, invalidf("group_id required")
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return group, nil
}

// AddGuest adds a guest pseudo-member to an existing group.
func (s *LedgerService) AddGuest(ctx context.Context, groupID, name string) (*models.Member, error) {
	slog.Info("AddGuest request received", "group_id", groupID, "name", name)

	if groupID == "" {
		return nil, invalidf("group_id required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("guest name required")
	}

	guest := &models.Member{GroupID: groupID, Name: name, Guest: true}
	if err := s.store.AddMember(ctx, guest); err != nil {
		slog.Error("AddGuest failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Guest added", "group_id", groupID, "guest_id", guest.ID)
	return guest, nil
}
