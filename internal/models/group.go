package models

// Group represents a set of members who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Work Lunch").
	Name string

	// Members is the list of participants in this group, guests included.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Member is one participant of a group.
type Member struct {
	// ID is the membership ID. This is the participant ID used by every
	// ledger event in the group.
	ID string

	// GroupID is the group this membership belongs to.
	GroupID string

	// UserID is the registered user behind the membership.
	// Empty for guests.
	UserID string

	// Name is the display name within the group.
	Name string

	// Guest marks a pseudo-member without a user account.
	Guest bool
}

// Member returns the member with the given participant ID.
func (g *Group) Member(participantID string) (Member, bool) {
	for _, m := range g.Members {
		if m.ID == participantID {
			return m, true
		}
	}
	return Member{}, false
}

// ParticipantFor returns the participant ID of userID within the group.
func (g *Group) ParticipantFor(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}
	for _, m := range g.Members {
		if m.UserID == userID {
			return m.ID, true
		}
	}
	return "", false
}

// ParticipantIDs returns the IDs of all members in their stored order.
func (g *Group) ParticipantIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}
