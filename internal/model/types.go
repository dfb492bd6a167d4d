// Package model holds the shared data types that flow between every
// component of the game server: positions, snakes, players, food,
// power-ups, and the aggregate GameState a room owns.
package model

// PlayerKind distinguishes a human-controlled player from an NPC.
type PlayerKind string

const (
	KindHuman PlayerKind = "human"
	KindNPC   PlayerKind = "npc"
)

// ControlScheme is opaque client-side input mapping metadata; the server
// never interprets it beyond echoing it back in roster payloads.
type ControlScheme string

// Position is an integer grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction is one of the four cardinal movement directions.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// PowerupType identifies one of the four power-up effects.
type PowerupType string

const (
	PowerupSpeedBoost  PowerupType = "speedBoost"
	PowerupShield      PowerupType = "shield"
	PowerupShrink      PowerupType = "shrink"
	PowerupSlowOthers  PowerupType = "slowOthers"
)

// AllPowerupTypes is the closed set sampled uniformly on spawn.
var AllPowerupTypes = []PowerupType{PowerupSpeedBoost, PowerupShield, PowerupShrink, PowerupSlowOthers}

// EffectSlowed is the only power-up effect allowed to stack on a player;
// it is keyed distinctly from the four PowerupType values because it is
// applied to *other* players, not the collector (see the powerup
// package's apply).
const EffectSlowed PowerupType = "slowed"

// Player is one participant's simulation state: a human or an NPC.
type Player struct {
	ID              string
	DisplayName     string
	Kind            PlayerKind
	Color           string
	Snake           []Position // index 0 = head
	Direction       Direction
	QueuedDirection Direction
	Score           int
	Alive           bool
	IsHost          bool
	ControlScheme   ControlScheme

	SurvivalStartMs    int64
	SurvivalDurationMs int64

	SpeedAccumulator float64

	// ActivePowerups maps effect -> expiry epoch ms. EffectSlowed may
	// coexist with one of the other three; the other three are mutually
	// exclusive (see the powerup package's apply).
	ActivePowerups map[PowerupType]int64
}

// Food is a single collectible grid cell.
type Food struct {
	Position
}

// Powerup is a spawned item on the board.
type Powerup struct {
	ID            string
	Position      Position
	Type          PowerupType
	SpawnEpochMs  int64
}

// Winner describes the outcome recorded at game end.
type Winner struct {
	PlayerID string
	Name     string
	Score    int
	IsLoser  bool
}

// Mode is the room's game mode.
type Mode string

const (
	ModeMulti Mode = "multi"
	ModeSingle Mode = "single"
	ModeSolo   Mode = "solo"
)

// GameState is the full authoritative simulation state for one room.
type GameState struct {
	Players map[string]*Player
	Food    map[Position]struct{}
	Powerups map[string]*Powerup

	Tick int

	StartEpochMs int64 // 0 until countdown ends
	TimerSeconds int

	Paused          bool
	PauseStartEpochMs int64
	TotalPauseMs      int64
	PauseBudgetMs     int64 // 0 == unbounded (solo/single)

	LastInputEpochMs map[string]int64
	LastInputTick    map[string]int

	Level          int
	TotalFoodEaten int

	WallMode   bool
	StrictMode bool
	TimeLimitMs *int64

	Winner *Winner

	LastSurvivorSinceEpochMs int64 // 0 == not set

	// PowerupLastSpawnEpochMs and PowerupNextSpawnDelayMs are the power-up
	// module's private spawn-cadence state, kept on GameState because the
	// module itself is stateless between calls (see powerup.Service).
	PowerupLastSpawnEpochMs int64
	PowerupNextSpawnDelayMs int64

	// Warned tracks players who already received an inactivityWarning this
	// idle period, so the watchdog only emits it once per idle episode.
	Warned map[string]bool
}

// NewGameState builds an empty, zeroed GameState ready for players to be
// added by the room controller.
func NewGameState(wallMode, strictMode bool, timeLimitMs *int64, pauseBudgetMs int64) *GameState {
	return &GameState{
		Players:          make(map[string]*Player),
		Food:             make(map[Position]struct{}),
		Powerups:         make(map[string]*Powerup),
		LastInputEpochMs: make(map[string]int64),
		LastInputTick:    make(map[string]int),
		Warned:           make(map[string]bool),
		Level:            1,
		WallMode:         wallMode,
		StrictMode:       strictMode,
		TimeLimitMs:      timeLimitMs,
		PauseBudgetMs:    pauseBudgetMs,
	}
}

// Head returns the player's head position. Caller must ensure len(Snake)>0.
func (p *Player) Head() Position {
	return p.Snake[0]
}

// HasEffect reports whether the given effect is active on the player at
// the supplied epoch-ms timestamp.
func (p *Player) HasEffect(effect PowerupType, nowMs int64) bool {
	if p.ActivePowerups == nil {
		return false
	}
	expiry, ok := p.ActivePowerups[effect]
	return ok && nowMs < expiry
}

// NPCState is the per-NPC tuning and decision bookkeeping.
type NPCState struct {
	ID         string
	Name       string
	Difficulty string // easy | medium | hard
	Profile    string // balanced | hunter | survivor | forager

	Speed     int // 1..5
	Skill     int // 1..5
	Boldness  int // 1..5

	TargetFood         *Position
	LastDirection      Direction
	DecisionDelayTicks int
}

// Participant is the room-membership view of a player (distinct from the
// simulation's Player, which only exists once a GameState has been built).
type Participant struct {
	ID                  string
	DisplayName         string
	ConnID              string // empty if disconnected
	Token               string
	Kind                PlayerKind
	IsHost              bool
	ControlScheme       ControlScheme
	Disconnected        bool
	DisconnectedAtEpochMs int64
}
