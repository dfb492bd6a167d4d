package room

import "snake-arena-server/internal/model"

// PlayerView is the wire shape of one player inside a gameState payload.
type PlayerView struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Kind            string           `json:"kind"`
	Color           string           `json:"color"`
	Snake           []model.Position `json:"snake"`
	Direction       model.Direction  `json:"direction"`
	Score           int              `json:"score"`
	Alive           bool             `json:"alive"`
	IsHost          bool             `json:"isHost"`
	ControlScheme   string           `json:"controlScheme"`
}

// PowerupView is the wire shape of one spawned power-up.
type PowerupView struct {
	ID       string         `json:"id"`
	Position model.Position `json:"position"`
	Type     string         `json:"type"`
}

// GameStateView is the JSON-serializable projection of model.GameState
// sent as the `gameState` payload field (maps keyed by non-string types
// can't round-trip through encoding/json, so food/powerups are
// flattened to slices here).
type GameStateView struct {
	Players        []PlayerView     `json:"players"`
	Food           []model.Position `json:"food"`
	Powerups       []PowerupView    `json:"powerups"`
	Tick           int              `json:"tick"`
	TimerSeconds   int              `json:"timerSeconds"`
	Paused         bool             `json:"paused"`
	Level          int              `json:"level"`
	TotalFoodEaten int              `json:"totalFoodEaten"`
	WallMode       bool             `json:"wallMode"`
	StrictMode     bool             `json:"strictMode"`
	Winner         *model.Winner    `json:"winner,omitempty"`
}

// stateView builds the current GameState snapshot. Caller must hold r.mu.
func (r *Room) stateView() GameStateView {
	gs := r.GameState
	if gs == nil {
		return GameStateView{}
	}
	view := GameStateView{
		Tick: gs.Tick, TimerSeconds: gs.TimerSeconds, Paused: gs.Paused,
		Level: gs.Level, TotalFoodEaten: gs.TotalFoodEaten,
		WallMode: gs.WallMode, StrictMode: gs.StrictMode, Winner: gs.Winner,
	}
	for _, id := range r.joinOrder {
		p, ok := gs.Players[id]
		if !ok {
			continue
		}
		view.Players = append(view.Players, PlayerView{
			ID: p.ID, Name: p.DisplayName, Kind: string(p.Kind), Color: p.Color,
			Snake: p.Snake, Direction: p.Direction, Score: p.Score, Alive: p.Alive,
			IsHost: p.IsHost, ControlScheme: string(p.ControlScheme),
		})
	}
	for f := range gs.Food {
		view.Food = append(view.Food, f)
	}
	for _, pu := range gs.Powerups {
		view.Powerups = append(view.Powerups, PowerupView{ID: pu.ID, Position: pu.Position, Type: string(pu.Type)})
	}
	return view
}

// GameStartedPayload is the §6 gameStarted event payload, sent
// individually to each connected participant with their own playerId.
type GameStartedPayload struct {
	GameState GameStateView `json:"gameState"`
	RoomCode  string        `json:"roomCode"`
	PlayerID  string        `json:"playerId"`
	GameMode  model.Mode    `json:"gameMode"`
	IsHost    bool          `json:"isHost"`
}

func (r *Room) broadcastGameStarted() {
	view := r.stateView()
	for _, id := range r.joinOrder {
		p := r.Participants[id]
		if p.ConnID == "" {
			continue
		}
		r.broadcaster.Send(p.ConnID, "gameStarted", GameStartedPayload{
			GameState: view, RoomCode: r.Code, PlayerID: id, GameMode: r.Mode, IsHost: p.IsHost,
		})
	}
}

// GameStateUpdatePayload is the §6 gameStateUpdate event payload.
type GameStateUpdatePayload struct {
	GameState GameStateView `json:"gameState"`
}

func (r *Room) broadcastGameStateUpdate() {
	view := r.stateView()
	for _, id := range r.joinOrder {
		p := r.Participants[id]
		if p.ConnID == "" {
			continue
		}
		r.broadcaster.Send(p.ConnID, "gameStateUpdate", GameStateUpdatePayload{GameState: view})
	}
}

// PublicRoomView is the wire shape of one entry in the §6
// publicRoomsUpdated rooms[] listing.
type PublicRoomView struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// PublicInfo returns the public-index listing entry for this room.
// Callers should only use this after confirming IsPublicEligible.
func (r *Room) PublicInfo() PublicRoomView {
	r.lock()
	defer r.unlock()
	return PublicRoomView{RoomCode: r.Code, PlayerCount: len(r.Participants), MaxPlayers: MaxMultiPlayers}
}
