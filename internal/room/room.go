package room

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
	"snake-arena-server/internal/npcai"
	"snake-arena-server/internal/powerup"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
)

// JoinResult is returned to the gateway after a successful join, to be
// sent back to the joining connection as joinedRoom/gameStarted.
type JoinResult struct {
	PlayerID    string
	IsHost      bool
	IsReconnect bool
	Token       string
}

// New constructs an empty Lobby-phase room. sim/powerups/npcEngine are
// always non-nil (no-op implementations are supplied by the controller
// when a feature is disabled, per spec §9's interface-seam
// re-architecture).
func New(code string, mode model.Mode, opts GameOptions, broadcaster Broadcaster,
	sim *simulation.Engine, powerups powerup.Service, npcEngine npcai.Engine,
	registry *session.Registry, nowMs func() int64, publicVisible bool) *Room {
	return &Room{
		Code:             code,
		Mode:             mode,
		Phase:            PhaseLobby,
		Participants:     make(map[string]*model.Participant),
		Tokens:           make(map[string]string),
		ConnToPlayer:     make(map[string]string),
		ReadyPlayers:     make(map[string]bool),
		NPCs:             make(map[string]*model.NPCState),
		GameOptions:      opts,
		PublicVisible:    publicVisible && mode == model.ModeMulti,
		disconnectTimers: make(map[string]*time.Timer),
		sim:              sim,
		powerups:         powerups,
		npcEngine:        npcEngine,
		sessionRegistry:  registry,
		broadcaster:      broadcaster,
		nowMs:            nowMs,
		createdAtMs:      nowMs(),
	}
}

// Join implements §4.6's multi-mode join flow, including reconnection
// during Ready when an existing playerToken is presented.
func (r *Room) Join(playerName, controlScheme, existingToken, connID string, nowMs int64) (JoinResult, error) {
	r.lock()
	defer r.unlock()

	name := strings.TrimSpace(playerName)
	if name == "" {
		return JoinResult{}, ErrNameRequired
	}

	if existingToken != "" {
		if pid, ok := r.Tokens[existingToken]; ok {
			if p, ok := r.Participants[pid]; ok && r.reconnectAllowedLocked() {
				p.ConnID = connID
				p.Disconnected = false
				r.ConnToPlayer[connID] = pid
				r.cancelDisconnectTimer(pid)
				r.lastActivityMs = nowMs
				return JoinResult{PlayerID: pid, IsHost: p.IsHost, IsReconnect: true, Token: existingToken}, nil
			}
		}
	}

	if r.Phase != PhaseLobby {
		return JoinResult{}, ErrGameInProgress
	}
	if len(r.Participants) >= MaxMultiPlayers {
		return JoinResult{}, ErrRoomFull
	}
	for _, p := range r.Participants {
		if strings.EqualFold(p.DisplayName, name) {
			return JoinResult{}, ErrNameTaken
		}
	}

	isHost := len(r.Participants) == 0
	id := uuid.NewString()
	token := uuid.NewString()
	p := &model.Participant{
		ID:            id,
		DisplayName:   name,
		ConnID:        connID,
		Token:         token,
		Kind:          model.KindHuman,
		IsHost:        isHost,
		ControlScheme: model.ControlScheme(controlScheme),
	}
	r.Participants[id] = p
	r.Tokens[token] = id
	r.ConnToPlayer[connID] = id
	r.joinOrder = append(r.joinOrder, id)
	r.lastActivityMs = nowMs

	r.publishPublicEligibility()
	r.broadcastRoster("playerJoined", id)

	return JoinResult{PlayerID: id, IsHost: isHost, Token: token}, nil
}

// reconnectAllowedLocked implements the reconnection-window boundary the
// spec calls out precisely (§9): Lobby/Ready always allow reconnecting
// on a known token, multi mode never allows it once Countdown starts
// (Running/Paused-in-multi disconnects revoke the token immediately, see
// lifecycle.go's Disconnect), and solo/single allow it specifically
// while paused by a disconnect grace timer. Caller must hold r.mu.
func (r *Room) reconnectAllowedLocked() bool {
	switch r.Phase {
	case PhaseLobby, PhaseReady:
		return true
	case PhasePaused:
		return r.Mode != model.ModeMulti
	default:
		return false
	}
}

// StartGame implements §4.6's host-only multi-mode start.
func (r *Room) StartGame(playerID string, nowMs int64) error {
	r.lock()
	defer r.unlock()

	p, ok := r.Participants[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrGameInProgress
	}
	if len(r.Participants) < 2 || len(r.Participants) > MaxMultiPlayers {
		return ErrNotEnoughPlayers
	}

	r.buildGameState(nowMs)
	r.Phase = PhaseReady
	r.PublicVisible = false
	r.broadcastGameStarted()
	return nil
}

// StartSinglePlayer implements §4.6's solo/single start: a single human
// plus 0-3 NPCs, built in one shot (no lobby wait).
func (r *Room) StartSinglePlayer(playerName, controlScheme string, npcCount int, requestedMode model.Mode,
	configs []NPCConfig, connID string, nowMs int64) (JoinResult, error) {
	r.lock()
	defer r.unlock()

	if npcCount < 0 || npcCount > 3 {
		return JoinResult{}, ErrInvalidNPCCount
	}
	mode := model.ModeSingle
	if npcCount == 0 || requestedMode == model.ModeSolo {
		mode = model.ModeSolo
	}
	r.Mode = mode

	name := strings.TrimSpace(playerName)
	if name == "" {
		name = "Player"
	}
	id := uuid.NewString()
	token := uuid.NewString()
	human := &model.Participant{
		ID: id, DisplayName: name, ConnID: connID, Token: token,
		Kind: model.KindHuman, IsHost: true, ControlScheme: model.ControlScheme(controlScheme),
	}
	r.Participants[id] = human
	r.Tokens[token] = id
	r.ConnToPlayer[connID] = id
	r.joinOrder = append(r.joinOrder, id)

	defaultNames := []string{"Bot-Alpha", "Bot-Beta", "Bot-Gamma"}
	defaultDiff := []string{"easy", "medium", "hard"}
	for i := 0; i < npcCount; i++ {
		cfg := NPCConfig{Name: defaultNames[i%3], Difficulty: defaultDiff[i%3], Profile: "balanced"}
		if i < len(configs) {
			if configs[i].Name != "" {
				cfg.Name = configs[i].Name
			}
			if configs[i].Difficulty != "" {
				cfg.Difficulty = configs[i].Difficulty
			}
			if configs[i].Profile != "" {
				cfg.Profile = configs[i].Profile
			}
		}
		nid := uuid.NewString()
		r.Participants[nid] = &model.Participant{ID: nid, DisplayName: cfg.Name, Kind: model.KindNPC, IsHost: false}
		r.joinOrder = append(r.joinOrder, nid)
		r.NPCs[nid] = &model.NPCState{
			ID: nid, Name: cfg.Name, Difficulty: cfg.Difficulty, Profile: cfg.Profile,
			Speed: 3, Skill: 3, Boldness: 3,
		}
	}

	r.buildGameState(nowMs)
	r.Phase = PhaseReady
	r.broadcastGameStarted()

	return JoinResult{PlayerID: id, IsHost: true, Token: token}, nil
}

// buildGameState materializes model.GameState from the current
// roster, assigning corner spawns/colors by join order (§3).
func (r *Room) buildGameState(nowMs int64) {
	pauseBudget := int64(0)
	if r.Mode == model.ModeMulti {
		pauseBudget = PauseBudgetMultiMs
	}
	gs := model.NewGameState(r.GameOptions.WallMode, r.GameOptions.StrictMode, r.GameOptions.TimeLimitMs, pauseBudget)

	for i, id := range r.joinOrder {
		part := r.Participants[id]
		corner := grid.Corners[i%len(grid.Corners)]
		color := grid.Palette[i%len(grid.Palette)]
		player := &model.Player{
			ID: id, DisplayName: part.DisplayName, Kind: part.Kind, Color: color,
			Snake: []model.Position{corner.Pos}, Direction: corner.Dir, QueuedDirection: corner.Dir,
			Alive: true, IsHost: part.IsHost, ControlScheme: part.ControlScheme,
			SurvivalStartMs: nowMs,
		}
		gs.Players[id] = player
		gs.LastInputEpochMs[id] = nowMs
	}
	gs.Food[firstFoodCell(gs)] = struct{}{}

	r.GameState = gs
}

// firstFoodCell places the initial food item, disjoint from every
// spawn anchor (§3 invariant).
func firstFoodCell(gs *model.GameState) model.Position {
	occupied := make(map[model.Position]bool)
	for _, p := range gs.Players {
		for _, seg := range p.Snake {
			occupied[seg] = true
		}
	}
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			cand := model.Position{X: x, Y: y}
			if !occupied[cand] {
				return cand
			}
		}
	}
	return model.Position{}
}

// broadcastRoster sends §6's playerJoined event to every connected
// participant: the newest joiner's identity alongside the full roster.
func (r *Room) broadcastRoster(event, newestPlayerID string) {
	newest := r.Participants[newestPlayerID]
	payload := struct {
		PlayerID   string        `json:"playerId"`
		PlayerName string        `json:"playerName"`
		IsHost     bool          `json:"isHost"`
		Players    []RosterEntry `json:"players"`
	}{newestPlayerID, nameOr(newest), newest != nil && newest.IsHost, r.rosterSnapshot()}

	for _, p := range r.Participants {
		if p.ConnID == "" {
			continue
		}
		r.broadcaster.Send(p.ConnID, event, payload)
	}
}

// RosterEntry is the wire-shape of one participant in a players[] list.
type RosterEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"isHost"`
	Kind    string `json:"kind"`
	Ready   bool   `json:"ready"`
}

func (r *Room) rosterSnapshot() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		p := r.Participants[id]
		out = append(out, RosterEntry{ID: p.ID, Name: p.DisplayName, IsHost: p.IsHost, Kind: string(p.Kind), Ready: r.ReadyPlayers[p.ID]})
	}
	return out
}

// IsPublicEligible implements §4.6's public-index eligibility rule.
func (r *Room) IsPublicEligible() bool {
	r.lock()
	defer r.unlock()
	return r.isPublicEligibleLocked()
}

func (r *Room) isPublicEligibleLocked() bool {
	if r.Mode != model.ModeMulti || !r.PublicVisible || r.Phase != PhaseLobby {
		return false
	}
	n := len(r.Participants)
	return n >= 1 && n <= 3
}

// publishPublicEligibility is the §4.6 "recompute eligibility and
// publish" hook; Join calls it after adding a participant, and it does
// nothing itself. The actual publish to all connections is done by the
// controller, which polls IsPublicEligible after each mutating call;
// this keeps Room free of a back-reference to the controller.
func (r *Room) publishPublicEligibility() {}

// IsActive reports whether the room currently has a live simulation
// ticker (used by the session registry's isActive computation).
func (r *Room) IsActive() bool {
	r.lock()
	defer r.unlock()
	return r.tickerActive && r.GameState != nil && r.GameState.StartEpochMs > 0
}
