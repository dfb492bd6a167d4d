package gateway

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"snake-arena-server/internal/config"
	"snake-arena-server/internal/model"
	"snake-arena-server/internal/npcai"
	"snake-arena-server/internal/powerup"
	"snake-arena-server/internal/room"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
)

// roomCodeAlphabet excludes visually ambiguous characters (0/O, 1/I),
// the same room-code texture used by the rest of the retrieved pack's
// lobby-based games.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Hub is the Event Gateway (§4.8): it owns the room directory, the
// per-connection registry, and the feature flags, and is the sole
// place that translates wire messages into room-controller calls and
// errors back into wire messages. Grounded on the teacher's
// ConnManager (sonpython-slether connection.go) generalized from "one
// global connection set over one World" to "many connections routed
// to many independently-lifecycled rooms".
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*room.Room
	conns    map[string]*Conn
	connRoom map[string]string // connID -> room code, current binding

	registry *session.Registry
	features config.Features
	nowMs    func() int64
}

// NewHub builds an empty gateway with the given feature flags.
func NewHub(features config.Features) *Hub {
	h := &Hub{
		rooms:    make(map[string]*room.Room),
		conns:    make(map[string]*Conn),
		connRoom: make(map[string]string),
		registry: session.NewRegistry(),
		features: features,
		nowMs:    func() int64 { return time.Now().UnixMilli() },
	}
	return h
}

// ConnectionCount is used by main.go's server-full guard.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send implements room.Broadcaster by forwarding to the named
// connection, a no-op if it's gone (already closed/evicted).
func (h *Hub) Send(connID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.Send(event, payload); err != nil {
		log.Printf("gateway: send %s to %s failed: %v", event, connID, err)
	}
}

// Accept registers a freshly-upgraded connection, sends the initial
// featureFlags announcement, then blocks running its read loop until
// the client disconnects — mirroring the teacher's per-connection
// blocking ReadLoop call in main.go.
func (h *Hub) Accept(conn *Conn) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.mu.Unlock()

	_ = conn.Send("featureFlags", struct {
		Chat          bool `json:"chat"`
		Powerups      bool `json:"powerups"`
		Accessibility bool `json:"accessibility"`
	}{h.features.Chat, h.features.Powerups, h.features.Accessibility})

	conn.ReadLoop(func(env Envelope) {
		h.dispatch(conn, env)
	})

	h.onConnClosed(conn)
}

// onConnClosed runs the §4.6 disconnect handling for whatever room the
// connection was last bound to, then drops it from the registry.
func (h *Hub) onConnClosed(conn *Conn) {
	h.mu.Lock()
	code, bound := h.connRoom[conn.ID]
	delete(h.connRoom, conn.ID)
	delete(h.conns, conn.ID)
	h.mu.Unlock()

	conn.Close()

	if !bound {
		return
	}
	r, ok := h.getRoom(code)
	if !ok {
		return
	}
	r.Disconnect(conn.ID, h.nowMs())
	h.publishPublicRooms()
}

// bindConn records which room a connection currently belongs to
// (§4.8: "each connection maps to at most one room-player binding at a
// time").
func (h *Hub) bindConn(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connRoom[connID] = roomCode
}

func (h *Hub) getRoom(code string) (*room.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[code]
	return r, ok
}

func (h *Hub) dropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// getOrCreateMultiRoom implements §4.6's "room is created on first
// join": an existing code is joined, an absent one is created under
// that exact code (uppercased), and an empty code generates a fresh
// one.
func (h *Hub) getOrCreateMultiRoom(code string) *room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if code == "" {
		code = h.freshCodeLocked("")
	}
	if r, ok := h.rooms[code]; ok {
		return r
	}
	r := h.newRoomLocked(code, model.ModeMulti, room.GameOptions{}, true)
	h.rooms[code] = r
	return r
}

// createSinglePlayerRoom always mints a fresh "SP"-prefixed code (§4.6).
func (h *Hub) createSinglePlayerRoom(wallMode bool) *room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	code := h.freshCodeLocked("SP")
	r := h.newRoomLocked(code, model.ModeSolo, room.GameOptions{WallMode: wallMode}, false)
	h.rooms[code] = r
	return r
}

// freshCodeLocked mints a room code not already present in h.rooms.
// Caller must hold h.mu.
func (h *Hub) freshCodeLocked(prefix string) string {
	for {
		code := prefix + randomCode(5)
		if _, exists := h.rooms[code]; !exists {
			return code
		}
	}
}

func randomCode(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(buf)
}

// newRoomLocked constructs a Room wired with this process's feature
// flags (powerups) and an unconditional NPC engine (§9 interface-seam
// re-architecture). Caller must hold h.mu.
func (h *Hub) newRoomLocked(code string, mode model.Mode, opts room.GameOptions, publicVisible bool) *room.Room {
	npcEngine := npcai.New()
	var powerupsSvc powerup.Service = powerup.NoopService{}
	if h.features.Powerups {
		powerupsSvc = powerup.New()
	}
	sim := simulation.New(powerupsSvc, npcEngine)

	r := room.New(code, mode, opts, h, sim, powerupsSvc, npcEngine, h.registry, h.nowMs, publicVisible)
	r.SetOnDispose(func(c string) {
		h.dropRoom(c)
		h.publishPublicRooms()
	})
	r.SetOnMembershipChanged(func() {
		h.publishPublicRooms()
	})
	return r
}

// StartSessionSweep launches the §4.7 periodic registry sweep on its
// own ticker; call once from main at process start.
func (h *Hub) StartSessionSweep(stop <-chan struct{}) {
	t := time.NewTicker(session.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			h.registry.Sweep(h.nowMs(), func(code string) bool {
				_, ok := h.getRoom(code)
				return ok
			})
		}
	}
}
