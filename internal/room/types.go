// Package room implements the room/session lifecycle and membership
// controller (§4.6): join, host election, ready gating, countdown,
// pause/resume with a bounded pause budget, reconnection windows, and
// cleanup. Grounded on the teacher's World+ConnManager split
// (sonpython-slether world.go/connection.go) generalized from one
// global arena to many independently-lifecycled rooms, each guarded by
// its own mutex per the concurrency model's option (b) — see
// DESIGN.md for why a per-room mutex was chosen over a channel actor.
package room

import (
	"sync"
	"time"

	"snake-arena-server/internal/model"
	"snake-arena-server/internal/npcai"
	"snake-arena-server/internal/powerup"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
)

// Phase is the room lifecycle state (§4.6).
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseReady     Phase = "ready"
	PhaseCountdown Phase = "countdown"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseEnded     Phase = "ended"
	PhaseDisposed  Phase = "disposed"
)

// GameOptions are the host-configurable per-room options (§6
// updateGameOptions).
type GameOptions struct {
	WallMode    bool   `json:"wallMode"`
	StrictMode  bool   `json:"strictMode"`
	TimeLimitMs *int64 `json:"timeLimit,omitempty"`
}

// GameOptionsPatch is the §6 updateGameOptions request body: every field
// is optional, and timeLimit can be explicitly set to null to clear it,
// so it needs its own presence flag distinct from "absent".
type GameOptionsPatch struct {
	WallMode     *bool
	StrictMode   *bool
	TimeLimitSet bool
	TimeLimitMs  *int64
}

// PauseBudgetMultiMs is the §4.6/§4.5 cumulative pause budget for multi
// mode; solo/single is unbounded (pass 0 to model.NewGameState).
const PauseBudgetMultiMs = 15 * 60 * 1000

// StartCountdownFrom / ResumeCountdownFrom are the countdown lengths
// (§4.6).
const (
	StartCountdownFrom  = 5
	ResumeCountdownFrom = 5
)

// ReadyDelayMs is the pause between "all ready" and the countdown start.
const ReadyDelayMs = 300

// DisconnectGraceMs is the reconnection window for lobby/ready (multi)
// and running (solo/single) disconnects.
const DisconnectGraceMs = 30 * 1000

// MultiCleanupDelay / SoloCleanupDelay are the post-game-end room
// deletion delays (§4.6).
const (
	MultiCleanupDelay = 10 * time.Second
	SoloCleanupDelay  = 0
)

const MaxMultiPlayers = 4

// Broadcaster is the seam the room actor uses to reach connections,
// implemented by internal/gateway. Kept as an interface here (rather
// than importing gateway) to avoid a room<->gateway import cycle, per
// spec §9's "explicit context structure passed to each handler" note.
type Broadcaster interface {
	// Send delivers a single event to one connection. No-op if the
	// connection is gone.
	Send(connID, event string, payload any)
}

// NPCConfig is one requested NPC's parameters for startSinglePlayer.
type NPCConfig struct {
	Name       string
	Difficulty string
	Profile    string
}

// Room is one match's full lifecycle and membership state (§3's Room
// data model).
type Room struct {
	mu sync.Mutex

	Code string
	Mode model.Mode
	Phase Phase

	Participants map[string]*model.Participant // playerID -> participant
	Tokens       map[string]string              // token -> playerID
	ConnToPlayer map[string]string               // connID -> playerID
	ReadyPlayers map[string]bool

	GameState *model.GameState
	NPCs      map[string]*model.NPCState

	GameOptions   GameOptions
	PublicVisible bool

	SessionID string

	countdownValue       int
	resumeCountdownValue int
	resumedBy            string
	pausedBy             string
	isResuming           bool
	pausedFromCountdown  bool

	tickerStop   chan struct{}
	tickPeriod   time.Duration
	tickerActive bool

	cleanupTimer     *time.Timer
	disconnectTimers map[string]*time.Timer

	gameEndedEmitted bool

	joinOrder []string // playerIDs in join order, for corner/color/host-in-lobby assignment

	lastChatMs map[string]int64 // §4.8 chat rate limit, per player

	sim             *simulation.Engine
	powerups        powerup.Service
	npcEngine       npcai.Engine
	sessionRegistry *session.Registry
	broadcaster     Broadcaster
	nowMs           func() int64
	onDispose       func(code string)
	onMembershipChanged func()

	createdAtMs int64
	lastActivityMs int64
}

// SetOnDispose registers the callback the controller uses to drop this
// room from its directory once Dispose/cleanup fires. Kept as a setter
// rather than a constructor arg so the controller can close over the
// room's own code/pointer after New returns.
func (r *Room) SetOnDispose(fn func(code string)) {
	r.lock()
	defer r.unlock()
	r.onDispose = fn
}

// SetOnMembershipChanged registers the callback the controller uses to
// republish the public-room index after membership changes that fire
// from a room-owned timer rather than a gateway dispatch call (e.g. a
// lobby/ready disconnect-grace expiry). Invoked in its own goroutine so
// it never runs while r.mu is held by the caller.
func (r *Room) SetOnMembershipChanged(fn func()) {
	r.lock()
	defer r.unlock()
	r.onMembershipChanged = fn
}

// ChatRateLimitMs is the §4.8 per-player chat relay rate limit.
const ChatRateLimitMs = 800

func (r *Room) lock()   { r.mu.Lock() }
func (r *Room) unlock() { r.mu.Unlock() }
