package realtime

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyGroup(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	n := NewNotifier(discardLogger(), m)

	alice, bob, carol := newFakeConn(), newFakeConn(), newFakeConn()
	carol.close()

	roster := []RosterEntry{
		{Participant: "alice", Conn: alice},
		{Participant: "bob", Conn: bob},
		{Participant: "carol", Conn: carol},
		{Participant: "dave", Conn: nil},
	}
	event := Event{
		Type:    EventNewEntry,
		GroupID: "g1",
		Entry:   &models.Entry{ID: "e1", GroupID: "g1", Payer: "alice", Amount: 30},
	}

	sent := n.NotifyGroup("g1", roster, event)
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}

	for name, conn := range map[string]*fakeConn{"alice": alice, "bob": bob} {
		msgs := conn.decoded(t)
		if len(msgs) != 1 {
			t.Fatalf("%s got %d messages, want 1", name, len(msgs))
		}
		msg := msgs[0]
		if msg["receiverId"] != name {
			t.Errorf("%s receiverId = %v", name, msg["receiverId"])
		}
		if msg["type"] != "newEntry" || msg["groupId"] != "g1" {
			t.Errorf("%s got type=%v groupId=%v", name, msg["type"], msg["groupId"])
		}
		entry, ok := msg["entry"].(map[string]any)
		if !ok || entry["entryId"] != "e1" {
			t.Errorf("%s entry payload = %v", name, msg["entry"])
		}
	}
	if len(carol.decoded(t)) != 0 {
		t.Error("closed connection should receive nothing")
	}

	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("newEntry", metrics.OutcomeDelivered)); got != 2 {
		t.Errorf("delivered counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("newEntry", metrics.OutcomeSkipped)); got != 2 {
		t.Errorf("skipped counter = %v, want 2", got)
	}
}

func TestNotifyGroup_EmptyRoster(t *testing.T) {
	n := NewNotifier(discardLogger(), nil)
	if sent := n.NotifyGroup("unknown", nil, Event{Type: EventNewBalance, GroupID: "unknown"}); sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}

func TestNotifyGroup_FailureIsIsolated(t *testing.T) {
	n := NewNotifier(discardLogger(), nil)

	broken, healthy := newFakeConn(), newFakeConn()
	broken.sendErr = errors.New("boom")

	sent := n.NotifyGroup("g1", []RosterEntry{
		{Participant: "broken", Conn: broken},
		{Participant: "healthy", Conn: healthy},
	}, Event{Type: EventMarkPaid, GroupID: "g1", EntryID: "e1", Participant: "healthy"})

	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if msgs := healthy.decoded(t); len(msgs) != 1 || msgs[0]["receiverId"] != "healthy" {
		t.Errorf("healthy got %v", msgs)
	}
}

func TestNotifyGroup_ConnectionChurn(t *testing.T) {
	r := NewRegistry(nil)
	n := NewNotifier(discardLogger(), nil)
	conn := newFakeConn()

	r.Register("alice", conn)
	if sent := n.NotifyGroup("g1", r.Roster([]string{"alice"}), Event{Type: EventNewBalance, GroupID: "g1"}); sent != 1 {
		t.Fatalf("first notify sent = %d, want 1", sent)
	}

	r.Unregister("alice")
	if sent := n.NotifyGroup("g1", r.Roster([]string{"alice"}), Event{Type: EventNewBalance, GroupID: "g1"}); sent != 0 {
		t.Errorf("second notify sent = %d, want 0", sent)
	}
	if msgs := conn.decoded(t); len(msgs) != 1 {
		t.Errorf("alice got %d messages, want 1", len(msgs))
	}
}

func TestNotifyGroup_ClosedAfterRosterBuilt(t *testing.T) {
	r := NewRegistry(nil)
	n := NewNotifier(discardLogger(), nil)
	conn := newFakeConn()
	r.Register("alice", conn)

	roster := r.Roster([]string{"alice"})
	conn.close() // closes between roster resolution and delivery

	if sent := n.NotifyGroup("g1", roster, Event{Type: EventNewGroup, GroupID: "g1"}); sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}
