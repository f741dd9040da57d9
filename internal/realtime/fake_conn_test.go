package realtime

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeConn records everything sent to it.
type fakeConn struct {
	mu      sync.Mutex
	open    bool
	sendErr error
	msgs    [][]byte
}

func newFakeConn() *fakeConn { return &fakeConn{open: true} }

func (c *fakeConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.msgs))
	for i, msg := range c.msgs {
		if err := json.Unmarshal(msg, &out[i]); err != nil {
			t.Fatalf("message %d is not JSON: %v", i, err)
		}
	}
	return out
}
