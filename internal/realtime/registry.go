// Package realtime pushes group events to participants over live sockets.
//
// The Registry maps each participant to at most one live connection. The
// Notifier fans an event out to a group's roster, skipping anyone who is not
// connected. SocketHandler is the websocket transport that feeds the Registry.
package realtime

import (
	"errors"
	"sync"

	"github.com/mmynk/budgetwise/internal/metrics"
)

var (
	// ErrConnClosed is returned by Send once the connection has been closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Send when the outgoing queue of a
	// slow client is full and the message was dropped.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is a live bidirectional connection to one participant.
// Send must not block on a slow peer.
type Conn interface {
	Send(msg []byte) error
	Open() bool
}

// RosterEntry pairs a group participant with their connection at the time the
// roster was built. Conn is nil when the participant is not connected.
type RosterEntry struct {
	Participant string
	Conn        Conn
}

// Registry tracks the live connection of each participant.
// It is safe for concurrent use; all access to the mapping goes through it.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Conn
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		conns:   make(map[string]Conn),
		metrics: m,
	}
}

// Register associates participant with conn and returns the handle it
// replaced, if any.
func (r *Registry) Register(participant string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[participant]
	r.conns[participant] = conn
	r.metrics.SetConnections(len(r.conns))
	return prev
}

// Unregister removes participant's connection. It is a no-op if absent.
func (r *Registry) Unregister(participant string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, participant)
	r.metrics.SetConnections(len(r.conns))
}

// Release removes participant's connection only if it is still conn.
// A socket closing after its participant reconnected elsewhere must not
// remove the newer registration.
func (r *Registry) Release(participant string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[participant]; !ok || current != conn {
		return false
	}
	delete(r.conns, participant)
	r.metrics.SetConnections(len(r.conns))
	return true
}

// Lookup returns participant's connection, if registered.
func (r *Registry) Lookup(participant string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[participant]
	return conn, ok
}

// Roster resolves participants against the current registrations.
func (r *Registry) Roster(participants []string) []RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]RosterEntry, len(participants))
	for i, p := range participants {
		roster[i] = RosterEntry{Participant: p, Conn: r.conns[p]}
	}
	return roster
}

// Len returns the number of registered participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
