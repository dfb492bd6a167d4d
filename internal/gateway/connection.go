// Package gateway implements the Event Gateway (§4.8): the
// bidirectional per-connection message transport, connection-to-room
// binding, and room fan-out. Grounded on the teacher's Conn/ConnManager
// split (sonpython-slether connection.go): a uuid-identified wrapper
// around *websocket.Conn with a write mutex and a blocking read loop,
// generalized here from a single compact binary-ish protocol to the
// spec's full {event,payload} JSON envelope and from one global world
// to per-room message routing.
package gateway

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope is the wire-level shape every message takes in both
// directions (§4.12): {"event": "<name>", "payload": {...}}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Conn wraps one client WebSocket connection. Exactly mirrors the
// teacher's Conn (uuid ID, write mutex, closed flag) generalized to
// send typed {event,payload} envelopes instead of single-letter
// compact messages.
type Conn struct {
	ID string

	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded WebSocket in a Conn with a fresh id.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ID: uuid.NewString(), ws: ws}
}

// Send serializes payload into an envelope tagged with event and
// writes it as a single text message. A nil payload still encodes
// fine for zero-payload events like allPlayersReady.
func (c *Conn) Send(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Event: event, Payload: body}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close marks the connection closed and releases the underlying socket.
// Idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.ws.Close()
}

// ReadLoop blocks reading envelopes from the connection until it
// closes or errors, invoking onMessage for each well-formed envelope.
// Malformed frames are dropped rather than closing the connection,
// matching the teacher's "bad message, log and continue" policy
// (connection.go's ReadLoop).
func (c *Conn) ReadLoop(onMessage func(env Envelope)) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		onMessage(env)
	}
}
