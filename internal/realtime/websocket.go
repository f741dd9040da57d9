package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

// Inbound socket actions.
const (
	ActionConnect = "connect"
	ActionPing    = "ping"
)

// TokenVerifier checks a session token and returns the user it belongs to.
type TokenVerifier func(token string) (userID string, err error)

// SocketConfig tunes the websocket transport.
type SocketConfig struct {
	// SendBuffer is the number of outbound messages queued per connection
	// before new ones are dropped.
	SendBuffer int

	// WriteTimeout bounds a single write to the peer.
	WriteTimeout time.Duration

	// Verify, when set, requires a valid token whose user matches userId on
	// every connect action.
	Verify TokenVerifier
}

type inboundMessage struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

type controlMessage struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SocketHandler accepts websocket connections and keeps the Registry in sync
// with them: a connect action registers the socket, closing it releases the
// registration.
type SocketHandler struct {
	registry *Registry
	cfg      SocketConfig
	log      *slog.Logger
}

// NewSocketHandler creates the websocket endpoint.
func NewSocketHandler(registry *Registry, cfg SocketConfig, logger *slog.Logger) *SocketHandler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketHandler{registry: registry, cfg: cfg, log: logger}
}

// ServeHTTP upgrades the request. Origins are not checked; sockets carry no
// ambient credentials.
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Server{Handler: h.serve}.ServeHTTP(w, r)
}

func (h *SocketHandler) serve(ws *websocket.Conn) {
	conn := newSocketConn(ws, h.cfg.SendBuffer, h.cfg.WriteTimeout)
	go conn.writeLoop(h.log)

	var userID string
	defer func() {
		if userID != "" && h.registry.Release(userID, conn) {
			h.log.Info("Participant disconnected", "user_id", userID)
		}
		conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				h.log.Debug("Socket read ended", "user_id", userID, "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			h.log.Debug("Ignoring malformed socket message", "error", err)
			h.reply(conn, controlMessage{Type: "error", Error: "malformed message"})
			continue
		}

		switch msg.Action {
		case ActionConnect:
			if err := h.authorize(msg); err != nil {
				h.log.Warn("Socket connect rejected", "user_id", msg.UserID, "error", err)
				h.reply(conn, controlMessage{Type: "error", Error: "unauthorized"})
				continue
			}
			if userID != "" && userID != msg.UserID {
				h.registry.Release(userID, conn)
			}
			userID = msg.UserID
			if prev := h.registry.Register(userID, conn); prev != nil && prev != Conn(conn) {
				h.log.Debug("Replaced earlier socket", "user_id", userID)
			}
			h.log.Info("Participant connected", "user_id", userID)
			h.reply(conn, controlMessage{Type: "connected", ReceiverID: userID})
		case ActionPing:
			h.reply(conn, controlMessage{Type: "pong", ReceiverID: userID})
		default:
			h.log.Debug("Ignoring unknown socket action", "action", msg.Action)
		}
	}
}

func (h *SocketHandler) authorize(msg inboundMessage) error {
	if msg.UserID == "" {
		return errors.New("userId required")
	}
	if h.cfg.Verify == nil {
		return nil
	}
	tokenUser, err := h.cfg.Verify(msg.Token)
	if err != nil {
		return err
	}
	if tokenUser != msg.UserID {
		return fmt.Errorf("token belongs to %s", tokenUser)
	}
	return nil
}

func (h *SocketHandler) reply(conn *socketConn, msg controlMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.Send(data); err != nil {
		h.log.Debug("Socket reply dropped", "type", msg.Type, "error", err)
	}
}

// socketConn is a Conn backed by a websocket. Sends are queued and written by
// a dedicated goroutine so a slow peer only ever stalls itself.
type socketConn struct {
	ws           *websocket.Conn
	out          chan []byte
	done         chan struct{}
	open         atomic.Bool
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newSocketConn(ws *websocket.Conn, buffer int, writeTimeout time.Duration) *socketConn {
	c := &socketConn{
		ws:           ws,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	c.open.Store(true)
	return c
}

// Send queues msg for delivery. It never blocks.
func (c *socketConn) Send(msg []byte) error {
	if !c.open.Load() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.out <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Open reports whether the socket is still usable.
func (c *socketConn) Open() bool {
	return c.open.Load()
}

// Close shuts the socket down. It is safe to call more than once.
func (c *socketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *socketConn) writeLoop(log *slog.Logger) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				log.Debug("Failed to set write deadline", "error", err)
			}
			if err := websocket.Message.Send(c.ws, string(msg)); err != nil {
				log.Debug("Socket write failed", "error", err)
				c.Close()
				return
			}
		}
	}
}
