package gateway

import (
	"encoding/json"
	"strings"

	"snake-arena-server/internal/model"
	"snake-arena-server/internal/room"
)

// dispatch is the gateway's single translation point from a wire
// envelope to a room-controller call (§4.8: "the gateway never
// performs game logic; it translates typed messages to component
// calls with basic validation"). Unknown events are dropped silently,
// as are malformed payloads of every event except joinRoom and
// startSinglePlayer, which answer with joinError; this follows the
// teacher's "bad message, log and continue" policy.
func (h *Hub) dispatch(conn *Conn, env Envelope) {
	switch env.Event {
	case EvJoinRoom:
		h.handleJoinRoom(conn, env.Payload)
	case EvStartGame:
		h.handleStartGame(conn, env.Payload)
	case EvStartSinglePlayer:
		h.handleStartSinglePlayer(conn, env.Payload)
	case EvPlayerReady:
		h.handlePlayerReady(conn, env.Payload)
	case EvRequestGameState:
		h.handleRequestGameState(conn, env.Payload)
	case EvPlayerInput:
		h.handlePlayerInput(conn, env.Payload)
	case EvPauseGame:
		h.handlePauseGame(conn, env.Payload)
	case EvResumeGame:
		h.handleResumeGame(conn, env.Payload)
	case EvQuitGame:
		h.handleQuitGame(conn, env.Payload)
	case EvChatMessage:
		h.handleChatMessage(conn, env.Payload)
	case EvTogglePublicRoom:
		h.handleTogglePublicRoom(conn, env.Payload)
	case EvRequestPublicRooms:
		h.publishPublicRoomsTo(conn)
	case EvRequestSessionHistory:
		h.handleRequestSessionHistory(conn)
	case EvUpdateGameOptions:
		h.handleUpdateGameOptions(conn, env.Payload)
	case EvRequestGameOptions:
		h.handleRequestGameOptions(conn, env.Payload)
	}
}

func (h *Hub) playerIDFor(r *room.Room, connID string) (string, bool) {
	return r.ParticipantByConn(connID)
}

func sendError(conn *Conn, message string) {
	_ = conn.Send("error", struct {
		Message string `json:"message"`
	}{message})
}

func sendJoinError(conn *Conn, message string) {
	_ = conn.Send("joinError", struct {
		Message string `json:"message"`
	}{message})
}

func (h *Hub) handleJoinRoom(conn *Conn, raw json.RawMessage) {
	var msg joinRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendJoinError(conn, "malformed joinRoom message")
		return
	}
	name := strings.TrimSpace(msg.PlayerName)
	if name == "" {
		sendJoinError(conn, "playerName is required")
		return
	}
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}

	code := strings.ToUpper(strings.TrimSpace(msg.RoomCode))
	r := h.getOrCreateMultiRoom(code)

	result, err := r.Join(name, msg.ControlScheme, msg.PlayerToken, conn.ID, h.nowMs())
	if err != nil {
		sendJoinError(conn, err.Error())
		return
	}
	h.bindConn(conn.ID, r.Code)

	opts := r.Options()
	_ = conn.Send("joinedRoom", struct {
		PlayerID    string         `json:"playerId"`
		IsHost      bool           `json:"isHost"`
		RoomCode    string         `json:"roomCode"`
		GameMode    model.Mode     `json:"gameMode"`
		GameOptions room.GameOptions `json:"gameOptions"`
		PlayerToken string         `json:"playerToken"`
		IsPublic    bool           `json:"isPublic"`
	}{result.PlayerID, result.IsHost, r.Code, model.ModeMulti, opts, result.Token, r.IsPublicEligible()})

	if result.IsReconnect {
		if view, ok := r.StateSnapshot(); ok {
			_ = conn.Send("gameStarted", room.GameStartedPayload{
				GameState: view, RoomCode: r.Code, PlayerID: result.PlayerID, GameMode: model.ModeMulti, IsHost: result.IsHost,
			})
		}
	}
	h.publishPublicRooms()
}

func (h *Hub) handleStartGame(conn *Conn, raw json.RawMessage) {
	var msg startGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		sendError(conn, "room not found")
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		sendError(conn, "not joined to this room")
		return
	}
	if err := r.StartGame(playerID, h.nowMs()); err != nil {
		sendError(conn, err.Error())
		return
	}
	h.publishPublicRooms()
}

func (h *Hub) handleStartSinglePlayer(conn *Conn, raw json.RawMessage) {
	var msg startSinglePlayerMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendJoinError(conn, "malformed startSinglePlayer message")
		return
	}
	name := strings.TrimSpace(msg.PlayerName)
	if name == "" {
		name = "Player"
	}
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}
	wallMode := false
	if msg.GameOptions.WallMode != nil {
		wallMode = *msg.GameOptions.WallMode
	}

	requestedMode := model.ModeSingle
	if msg.GameMode == "solo" {
		requestedMode = model.ModeSolo
	}

	r := h.createSinglePlayerRoom(wallMode)

	var configs []room.NPCConfig
	for _, c := range msg.NPCConfigs {
		configs = append(configs, room.NPCConfig{Name: c.Name, Difficulty: c.Difficulty, Profile: c.Profile})
	}

	result, err := r.StartSinglePlayer(name, msg.ControlScheme, msg.NPCCount, requestedMode, configs, conn.ID, h.nowMs())
	if err != nil {
		sendJoinError(conn, err.Error())
		h.dropRoom(r.Code)
		return
	}
	h.bindConn(conn.ID, r.Code)

	opts := r.Options()
	_, mode := r.Snapshot()
	_ = conn.Send("joinedRoom", struct {
		PlayerID    string           `json:"playerId"`
		IsHost      bool             `json:"isHost"`
		RoomCode    string           `json:"roomCode"`
		GameMode    model.Mode       `json:"gameMode"`
		GameOptions room.GameOptions `json:"gameOptions"`
		PlayerToken string           `json:"playerToken"`
		IsPublic    bool             `json:"isPublic"`
	}{result.PlayerID, result.IsHost, r.Code, mode, opts, result.Token, false})

	if view, ok := r.StateSnapshot(); ok {
		_ = conn.Send("gameStarted", room.GameStartedPayload{
			GameState: view, RoomCode: r.Code, PlayerID: result.PlayerID, GameMode: mode, IsHost: true,
		})
	}
}

func (h *Hub) handlePlayerReady(conn *Conn, raw json.RawMessage) {
	var msg playerReadyMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		sendError(conn, "room not found")
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	if err := r.PlayerReady(playerID, h.nowMs()); err != nil {
		sendError(conn, err.Error())
	}
}

func (h *Hub) handleRequestGameState(conn *Conn, raw json.RawMessage) {
	var msg requestGameStateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	code := strings.ToUpper(msg.RoomCode)
	r, ok := h.getRoom(code)
	if !ok {
		_ = conn.Send("gameStateError", struct {
			Message  string `json:"message"`
			RoomCode string `json:"roomCode"`
		}{"room not found", code})
		return
	}
	view, ok := r.StateSnapshot()
	if !ok {
		_ = conn.Send("gameStateError", struct {
			Message  string `json:"message"`
			RoomCode string `json:"roomCode"`
		}{"game has not started", code})
		return
	}
	_ = conn.Send("gameStateUpdate", room.GameStateUpdatePayload{GameState: view})
}

func (h *Hub) handlePlayerInput(conn *Conn, raw json.RawMessage) {
	var msg playerInputMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	dir := model.Direction(msg.Direction)
	switch dir {
	case model.DirUp, model.DirDown, model.DirLeft, model.DirRight:
	default:
		_ = conn.Send("inputRejected", struct {
			Reason string `json:"reason"`
		}{"unknown direction"})
		return
	}
	if err := r.Input(playerID, dir, h.nowMs()); err != nil {
		_ = conn.Send("inputRejected", struct {
			Reason string `json:"reason"`
		}{err.Error()})
	}
}

func (h *Hub) handlePauseGame(conn *Conn, raw json.RawMessage) {
	var msg roomCodeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	if err := r.Pause(playerID, h.nowMs()); err != nil {
		_ = conn.Send("pauseError", struct {
			Message string `json:"message"`
		}{err.Error()})
	}
}

func (h *Hub) handleResumeGame(conn *Conn, raw json.RawMessage) {
	var msg roomCodeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	if err := r.Resume(playerID, h.nowMs()); err != nil {
		_ = conn.Send("resumeError", struct {
			Message string `json:"message"`
		}{err.Error()})
	}
}

func (h *Hub) handleQuitGame(conn *Conn, raw json.RawMessage) {
	var msg quitGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	if err := r.Quit(playerID, msg.LeaveType, h.nowMs()); err != nil {
		sendError(conn, err.Error())
		return
	}
	h.publishPublicRooms()
}

func (h *Hub) handleChatMessage(conn *Conn, raw json.RawMessage) {
	if !h.features.Chat {
		return
	}
	var msg chatMessageMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return
	}
	if len(text) > MaxChatMsgLen {
		text = text[:MaxChatMsgLen]
	}
	if err := r.Chat(playerID, text, h.nowMs()); err != nil {
		sendError(conn, err.Error())
	}
}

func (h *Hub) handleTogglePublicRoom(conn *Conn, raw json.RawMessage) {
	var msg togglePublicRoomMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	code := strings.ToUpper(msg.RoomCode)
	r, ok := h.getRoom(code)
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}
	isPublic, err := r.TogglePublicRoom(playerID, msg.IsPublic)
	if err != nil {
		_ = conn.Send("publicRoomStatus", struct {
			RoomCode string `json:"roomCode"`
			IsPublic bool   `json:"isPublic"`
			Error    string `json:"error,omitempty"`
		}{code, isPublic, err.Error()})
		return
	}
	_ = conn.Send("publicRoomStatus", struct {
		RoomCode string `json:"roomCode"`
		IsPublic bool   `json:"isPublic"`
	}{code, isPublic})
	h.publishPublicRooms()
}

func (h *Hub) publishPublicRoomsTo(conn *Conn) {
	listing := h.publicRoomsSnapshot()
	_ = conn.Send("publicRoomsUpdated", struct {
		Rooms []room.PublicRoomView `json:"rooms"`
	}{listing})
}

type sessionHistoryEntry struct {
	SessionID       string     `json:"sessionId"`
	RoomCode        string     `json:"roomCode"`
	GameMode        model.Mode `json:"gameMode"`
	WinnerName      string     `json:"winnerName,omitempty"`
	WinnerScore     int        `json:"winnerScore,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	IsActive        bool       `json:"isActive"`
}

func (h *Hub) handleRequestSessionHistory(conn *Conn) {
	entries := h.registry.History(func(code string) bool {
		r, ok := h.getRoom(code)
		return ok && r.IsActive()
	})
	out := make([]sessionHistoryEntry, 0, len(entries))
	for _, e := range entries {
		entry := sessionHistoryEntry{
			SessionID: e.SessionID, RoomCode: e.RoomCode, GameMode: e.GameMode,
			DurationSeconds: e.DurationSeconds, IsActive: e.IsActive,
		}
		if e.HasWinner {
			entry.WinnerName = e.WinnerName
			entry.WinnerScore = e.WinnerScore
		}
		out = append(out, entry)
	}
	_ = conn.Send("sessionHistory", struct {
		Sessions []sessionHistoryEntry `json:"sessions"`
	}{out})
}

func (h *Hub) handleUpdateGameOptions(conn *Conn, raw json.RawMessage) {
	var msg updateGameOptionsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	playerID, ok := h.playerIDFor(r, conn.ID)
	if !ok {
		return
	}

	var patch room.GameOptionsPatch
	if raw, present := msg.GameOptions["wallMode"]; present {
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			patch.WallMode = &v
		}
	}
	if raw, present := msg.GameOptions["strictMode"]; present {
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			patch.StrictMode = &v
		}
	}
	if raw, present := msg.GameOptions["timeLimit"]; present {
		patch.TimeLimitSet = true
		var v *int64
		if json.Unmarshal(raw, &v) == nil && v != nil {
			// Wire value is minutes (§6: timeLimit ∈ {null,3,5,10,15});
			// GameState.TimeLimitMs is compared against now-start in ms.
			ms := *v * 60 * 1000
			patch.TimeLimitMs = &ms
		} else {
			patch.TimeLimitMs = nil // explicit null clears it
		}
	}

	opts, err := r.UpdateGameOptions(playerID, patch)
	if err != nil {
		sendError(conn, err.Error())
		return
	}
	_ = conn.Send("gameOptionsUpdated", struct {
		GameOptions room.GameOptions `json:"gameOptions"`
	}{opts})
}

func (h *Hub) handleRequestGameOptions(conn *Conn, raw json.RawMessage) {
	var msg roomCodeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	r, ok := h.getRoom(strings.ToUpper(msg.RoomCode))
	if !ok {
		return
	}
	_ = conn.Send("gameOptionsUpdated", struct {
		GameOptions room.GameOptions `json:"gameOptions"`
	}{r.Options()})
}
