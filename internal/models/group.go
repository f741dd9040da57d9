package models

// Group represents a named collection of participants sharing expenses.
// Apart from its entry history and balances, a group is immutable after creation.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"groupId"`

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string `json:"groupName"`

	// CreatedBy is the participant who created the group. Always in Participants.
	CreatedBy string `json:"createdBy"`

	// Participants is the list of user IDs in this group, creator first.
	Participants []string `json:"participants"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// HasParticipant reports whether id is one of the group's participants.
func (g *Group) HasParticipant(id string) bool {
	for _, p := range g.Participants {
		if p == id {
			return true
		}
	}
	return false
}
