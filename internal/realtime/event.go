package realtime

import "github.com/mmynk/budgetwise/internal/models"

// EventType names a group event on the wire.
type EventType string

const (
	EventNewEntry    EventType = "newEntry"
	EventNewBalance  EventType = "newBalance"
	EventMarkPaid    EventType = "markPaid"
	EventMarkAllPaid EventType = "markAllPaid"
	EventNewGroup    EventType = "newGroup"
)

// Event is the payload shared by every recipient of one group change.
// Only the fields relevant to Type are set.
type Event struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"groupId"`

	Group    *models.Group    `json:"group,omitempty"`
	Entry    *models.Entry    `json:"entry,omitempty"`
	Payment  *models.Payment  `json:"payment,omitempty"`
	Balances []models.Balance `json:"balances,omitempty"`

	EntryID     string `json:"entryId,omitempty"`
	Participant string `json:"participant,omitempty"`
	Updated     int    `json:"updated,omitempty"`
}

// envelope is an Event personalized for one recipient.
type envelope struct {
	Event
	ReceiverID string `json:"receiverId"`
}
