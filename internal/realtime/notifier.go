package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/mmynk/budgetwise/internal/metrics"
)

// Notifier delivers group events to the connected members of a roster.
//
// Delivery is best effort: participants without an open connection are
// skipped, and a failed send is logged without affecting other recipients.
type Notifier struct {
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewNotifier creates a Notifier. Both arguments may be nil.
func NewNotifier(logger *slog.Logger, m *metrics.Metrics) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{log: logger, metrics: m}
}

// NotifyGroup sends event, tagged with each recipient's ID, to every roster
// entry whose connection is open at delivery time. It returns the number of
// messages handed to connections. An empty roster is a no-op.
func (n *Notifier) NotifyGroup(groupID string, roster []RosterEntry, event Event) int {
	if len(roster) == 0 {
		return 0
	}

	eventType := string(event.Type)
	sent := 0
	for _, member := range roster {
		if member.Conn == nil || !member.Conn.Open() {
			n.metrics.Notification(eventType, metrics.OutcomeSkipped)
			continue
		}

		msg, err := json.Marshal(envelope{Event: event, ReceiverID: member.Participant})
		if err != nil {
			n.log.Error("Failed to encode event", "group_id", groupID, "type", eventType, "error", err)
			n.metrics.Notification(eventType, metrics.OutcomeFailed)
			continue
		}

		if err := member.Conn.Send(msg); err != nil {
			n.log.Warn("Event delivery failed",
				"group_id", groupID,
				"type", eventType,
				"receiver_id", member.Participant,
				"error", err,
			)
			n.metrics.Notification(eventType, metrics.OutcomeFailed)
			continue
		}
		n.metrics.Notification(eventType, metrics.OutcomeDelivered)
		sent++
	}

	n.log.Debug("Group notified", "group_id", groupID, "type", eventType, "sent", sent, "roster", len(roster))
	return sent
}
