package room

import (
	"time"

	"snake-arena-server/internal/model"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
)

// scheduleCleanup arms the post-game-end room deletion timer (§4.6):
// 10s for multi so clients can see the game-over screen, immediate for
// solo/single. Caller must hold r.mu.
func (r *Room) scheduleCleanup(delay time.Duration) {
	r.cancelCleanupTimer()
	if delay <= 0 {
		r.disposeLocked()
		return
	}
	r.cleanupTimer = time.AfterFunc(delay, func() {
		r.lock()
		defer r.unlock()
		r.disposeLocked()
	})
}

// cancelCleanupTimer stops and clears a pending cleanup timer; idempotent.
func (r *Room) cancelCleanupTimer() {
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
		r.cleanupTimer = nil
	}
}

// disposeLocked tears down every owned timer and ticker and marks the
// room Disposed, notifying the controller so it can drop the room from
// its directory. Caller must hold r.mu. Idempotent.
func (r *Room) disposeLocked() {
	if r.Phase == PhaseDisposed {
		return
	}
	r.stopTicker()
	r.cancelCleanupTimer()
	for id, t := range r.disconnectTimers {
		t.Stop()
		delete(r.disconnectTimers, id)
	}
	r.Phase = PhaseDisposed
	if r.onDispose != nil {
		r.onDispose(r.Code)
	}
}

// Dispose tears the room down immediately, e.g. when the controller is
// shutting down or force-evicting an unrecoverable room (§7 Internal
// errors -> forced gameEnded + disposal).
func (r *Room) Dispose() {
	r.lock()
	defer r.unlock()
	r.disposeLocked()
}

// scheduleDisconnectTimer arms the §4.6 reconnection-grace timer for one
// player. Caller must hold r.mu.
func (r *Room) scheduleDisconnectTimer(playerID string) {
	r.cancelDisconnectTimer(playerID)
	timer := time.AfterFunc(DisconnectGraceMs*time.Millisecond, func() {
		r.lock()
		defer r.unlock()
		r.onDisconnectGraceExpired(playerID)
	})
	r.disconnectTimers[playerID] = timer
}

// cancelDisconnectTimer stops and clears a pending grace timer;
// idempotent. Caller must hold r.mu.
func (r *Room) cancelDisconnectTimer(playerID string) {
	if t, ok := r.disconnectTimers[playerID]; ok {
		t.Stop()
		delete(r.disconnectTimers, playerID)
	}
}

// Disconnect implements §4.6's three disconnect regimes, dispatched on
// the room's current phase and mode. Called by the gateway when a
// connection's read loop exits.
func (r *Room) Disconnect(connID string, nowMs int64) {
	r.lock()
	defer r.unlock()

	playerID, ok := r.ConnToPlayer[connID]
	if !ok {
		return
	}
	part := r.Participants[playerID]
	if part == nil {
		return
	}
	delete(r.ConnToPlayer, connID)
	part.ConnID = ""
	part.Disconnected = true
	part.DisconnectedAtEpochMs = nowMs

	switch r.Phase {
	case PhaseLobby, PhaseReady:
		// Lobby/Ready keeps membership+token for the grace window
		// regardless of mode; solo/single never linger here since they
		// build their GameState and enter Ready in the same call, but a
		// disconnect immediately after that initial join is still
		// possible before countdown starts.
		r.scheduleDisconnectTimer(playerID)

	case PhaseRunning, PhasePaused:
		if r.Mode == model.ModeMulti {
			delete(r.Tokens, part.Token)
			if p := r.GameState.Players[playerID]; p != nil && p.Alive {
				p.Alive = false
				p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
				p.ActivePowerups = nil
			}
			if r.connectedCountLocked() <= 1 {
				winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
				r.GameState.Winner = winner
				r.endGame(winner, session.EndAllPlayersDisconnected, nowMs)
				return
			}
			r.broadcastGameStateUpdate()
			return
		}

		// solo/single: pause and stop the ticker; the player may
		// reconnect via their token within the grace window.
		if !r.GameState.Paused {
			r.GameState.Paused = true
			r.GameState.PauseStartEpochMs = nowMs
			r.Phase = PhasePaused
			r.stopTicker()
		}
		r.scheduleDisconnectTimer(playerID)
	}
}

// connectedCountLocked counts participants with a live connection.
// Caller must hold r.mu.
func (r *Room) connectedCountLocked() int {
	n := 0
	for _, p := range r.Participants {
		if p.ConnID != "" {
			n++
		}
	}
	return n
}

// onDisconnectGraceExpired fires when a disconnected player's
// reconnection window runs out. Caller must hold r.mu.
func (r *Room) onDisconnectGraceExpired(playerID string) {
	delete(r.disconnectTimers, playerID)
	part, ok := r.Participants[playerID]
	if !ok || !part.Disconnected {
		return
	}
	nowMs := r.nowMs()

	switch r.Phase {
	case PhaseLobby, PhaseReady:
		wasHost := part.IsHost
		r.removeParticipant(playerID)
		r.broadcastAll("playerLeft", struct {
			PlayerName string        `json:"playerName"`
			Reason     string        `json:"reason"`
			WasHost    bool          `json:"wasHost"`
			Players    []RosterEntry `json:"players"`
		}{part.DisplayName, "disconnected", wasHost, r.rosterSnapshot()})
		if wasHost {
			r.electNewHost()
		}
		if r.onMembershipChanged != nil {
			go r.onMembershipChanged()
		}

	case PhasePaused:
		if r.Mode != model.ModeMulti {
			if p := r.GameState.Players[playerID]; p != nil {
				p.Alive = false
				p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
			}
			winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
			r.GameState.Winner = winner
			r.endGame(winner, session.EndPlayerInactiveDisconnected, nowMs)
		}
	}
}

// Quit implements §4.6's quitGame flow for solo/single and multi modes.
func (r *Room) Quit(playerID, leaveType string, nowMs int64) error {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok {
		return ErrUnknownPlayer
	}

	if r.Mode != model.ModeMulti {
		if p := r.GameState.Players[playerID]; p != nil {
			p.Alive = false
			p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
			p.ActivePowerups = nil
		}
		winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
		r.GameState.Winner = winner
		r.endGame(winner, session.EndGameEnded, nowMs)
		return nil
	}

	if p := r.GameState.Players[playerID]; p != nil {
		p.Alive = false
		p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
		p.ActivePowerups = nil
	}
	wasHost := part.IsHost
	name := part.DisplayName

	if wasHost && leaveType == "withParty" {
		winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
		r.GameState.Winner = winner
		r.broadcastAll("gameQuit", struct {
			QuitBy string `json:"quitBy"`
			Reason string `json:"reason"`
		}{name, "host_quit"})
		r.endGame(winner, session.EndHostQuitNoPlayers, nowMs)
		return nil
	}

	r.removeParticipant(playerID)
	r.broadcastAll("playerQuit", struct {
		PlayerName string        `json:"playerName"`
		Reason     string        `json:"reason"`
		WasHost    bool          `json:"wasHost"`
		Players    []RosterEntry `json:"players"`
	}{name, "quit", wasHost, r.rosterSnapshot()})

	if r.connectedCountLocked() <= 1 && (r.Phase == PhaseRunning || r.Phase == PhasePaused) {
		winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
		r.GameState.Winner = winner
		r.endGame(winner, session.EndAllPlayersQuit, nowMs)
		return nil
	}

	if wasHost && len(r.Participants) > 0 {
		r.electNewHost()
	}
	if r.GameState != nil {
		r.broadcastGameStateUpdate()
	}
	return nil
}

// Chat implements §4.8's per-room chat relay rate limit and fan-out.
// Trimming and length-capping the message is the gateway's job (§4.8).
func (r *Room) Chat(playerID, message string, nowMs int64) error {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if r.lastChatMs == nil {
		r.lastChatMs = make(map[string]int64)
	}
	if last, seen := r.lastChatMs[playerID]; seen && nowMs-last < ChatRateLimitMs {
		return ErrChatRateLimited
	}
	r.lastChatMs[playerID] = nowMs
	r.broadcastAll("chatMessage", struct {
		PlayerName string `json:"playerName"`
		Message    string `json:"message"`
		EpochMs    int64  `json:"epochMs"`
	}{part.DisplayName, message, nowMs})
	return nil
}

// TogglePublicRoom implements §6's togglePublicRoom: host-only, flips
// the flag when isPublic is omitted, else sets it explicitly.
func (r *Room) TogglePublicRoom(playerID string, isPublic *bool) (bool, error) {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok {
		return false, ErrUnknownPlayer
	}
	if !part.IsHost {
		return false, ErrNotHost
	}
	if isPublic != nil {
		r.PublicVisible = *isPublic
	} else {
		r.PublicVisible = !r.PublicVisible
	}
	return r.PublicVisible, nil
}

// UpdateGameOptions implements §6's updateGameOptions: host-only, and
// only while the room is still in the Lobby (options are fixed once a
// GameState has been built for the match).
func (r *Room) UpdateGameOptions(playerID string, patch GameOptionsPatch) (GameOptions, error) {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok {
		return GameOptions{}, ErrUnknownPlayer
	}
	if !part.IsHost {
		return GameOptions{}, ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return GameOptions{}, ErrGameInProgress
	}
	if patch.WallMode != nil {
		r.GameOptions.WallMode = *patch.WallMode
	}
	if patch.StrictMode != nil {
		r.GameOptions.StrictMode = *patch.StrictMode
	}
	if patch.TimeLimitSet {
		r.GameOptions.TimeLimitMs = patch.TimeLimitMs
	}
	return r.GameOptions, nil
}

// Options returns a snapshot of the room's current game options
// (requestGameOptions, §6).
func (r *Room) Options() GameOptions {
	r.lock()
	defer r.unlock()
	return r.GameOptions
}

// StateSnapshot returns the current gameState view for
// requestGameState (§6); ok is false if the match hasn't been built
// yet.
func (r *Room) StateSnapshot() (GameStateView, bool) {
	r.lock()
	defer r.unlock()
	if r.GameState == nil {
		return GameStateView{}, false
	}
	return r.stateView(), true
}

// Snapshot returns the room's current phase and mode for the
// controller's public-room-index recomputation.
func (r *Room) Snapshot() (Phase, model.Mode) {
	r.lock()
	defer r.unlock()
	return r.Phase, r.Mode
}

// ParticipantByConn resolves a connection to its currently bound
// player id, the gateway's per-message lookup for every event after
// joinRoom/startSinglePlayer.
func (r *Room) ParticipantByConn(connID string) (string, bool) {
	r.lock()
	defer r.unlock()
	id, ok := r.ConnToPlayer[connID]
	return id, ok
}
