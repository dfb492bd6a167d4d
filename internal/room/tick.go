package room

import (
	"math/rand"
	"time"

	"snake-arena-server/internal/model"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
	"snake-arena-server/internal/watchdog"
)

// PlayerReady implements §4.6's Ready phase: once every human has sent
// playerReady, wait 300ms then hand off to the tick-driven countdown.
func (r *Room) PlayerReady(playerID string, nowMs int64) error {
	r.lock()
	if _, ok := r.Participants[playerID]; !ok {
		r.unlock()
		return ErrUnknownPlayer
	}
	if r.Phase != PhaseReady {
		r.unlock()
		return ErrGameInProgress
	}
	r.ReadyPlayers[playerID] = true

	allReady := true
	for _, p := range r.Participants {
		if p.Kind == model.KindHuman && !r.ReadyPlayers[p.ID] {
			allReady = false
			break
		}
	}
	r.broadcastReadyStatus()
	if !allReady {
		r.unlock()
		return nil
	}
	r.broadcastAll("allPlayersReady", struct{}{})
	r.unlock()

	time.AfterFunc(ReadyDelayMs*time.Millisecond, func() {
		r.lock()
		defer r.unlock()
		if r.Phase != PhaseReady {
			return
		}
		r.beginCountdown()
	})
	return nil
}

func (r *Room) broadcastReadyStatus() {
	var ready []string
	for id := range r.ReadyPlayers {
		ready = append(ready, id)
	}
	r.broadcastAll("playerReadyStatus", struct {
		ReadyPlayers []string `json:"readyPlayers"`
	}{ready})
}

func (r *Room) broadcastAll(event string, payload any) {
	for _, p := range r.Participants {
		if p.ConnID == "" {
			continue
		}
		r.broadcaster.Send(p.ConnID, event, payload)
	}
}

// beginCountdown starts the 5-second start-countdown. Caller must hold r.mu.
func (r *Room) beginCountdown() {
	r.Phase = PhaseCountdown
	r.countdownValue = StartCountdownFrom
	r.broadcastAll("gameCountdown", struct {
		Countdown int `json:"countdown"`
	}{r.countdownValue})
	r.startTicker(time.Second)
}

// startTicker stops any previous tick goroutine and starts a fresh one
// at the given period, driving onTick. This single ticker also drives
// both the start- and resume-countdowns (§9 redesign note), instead of
// nested per-second timer chains.
func (r *Room) startTicker(period time.Duration) {
	if r.tickerStop != nil {
		close(r.tickerStop)
	}
	stop := make(chan struct{})
	r.tickerStop = stop
	r.tickPeriod = period
	r.tickerActive = true

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				r.onTick(r.nowMs())
			}
		}
	}()
}

func (r *Room) stopTicker() {
	if r.tickerStop != nil {
		close(r.tickerStop)
		r.tickerStop = nil
	}
	r.tickerActive = false
}

// onTick is the single entry point the ticker goroutine calls on every
// fire; it fans out to the countdown, resume-countdown, or simulation
// tick body depending on phase.
func (r *Room) onTick(nowMs int64) {
	r.lock()
	defer r.unlock()

	switch r.Phase {
	case PhaseCountdown:
		r.tickStartCountdown(nowMs)
	case PhasePaused:
		if r.resumeCountdownValue > 0 || r.isResuming {
			r.tickResumeCountdown(nowMs)
		} else {
			r.broadcastGameStateUpdate()
		}
	case PhaseRunning:
		r.runSimTick(nowMs)
	}
}

func (r *Room) tickStartCountdown(nowMs int64) {
	r.countdownValue--
	r.broadcastAll("gameCountdown", struct {
		Countdown int `json:"countdown"`
	}{r.countdownValue})
	if r.countdownValue > 0 {
		return
	}

	r.GameState.StartEpochMs = nowMs
	r.GameState.TimerSeconds = 0
	r.Phase = PhaseRunning
	sid := session.NewSessionID(nowMs)
	r.SessionID = sid
	r.sessionRegistry.Start(sid, r.Code, r.Mode, nowMs)

	period := time.Duration(simulation.PeriodMs(simulation.TickRateHz(r.GameState.Level, r.Mode))) * time.Millisecond
	r.startTicker(period)
	r.broadcastGameStateUpdate()
}

func (r *Room) tickResumeCountdown(nowMs int64) {
	r.resumeCountdownValue--
	r.broadcastAll("resumeCountdown", struct {
		Countdown  int    `json:"countdown"`
		ResumedBy  string `json:"resumedBy"`
	}{r.resumeCountdownValue, r.resumedBy})
	if r.resumeCountdownValue > 0 {
		return
	}
	r.isResuming = false
	r.finalizeResume(nowMs)
}

// runSimTick executes one full §4.4 tick body: watchdog, NPC decisions,
// simulation advance, and broadcast.
func (r *Room) runSimTick(nowMs int64) {
	state := r.GameState

	// §4.4 Gating: paused, mid-countdown, or not yet started (StartEpochMs
	// == 0) — broadcast the frozen state but never advance the watchdog,
	// NPC decisions, or the simulation itself (§3: "collision checks and
	// inputs are suppressed").
	if simulation.Gated(state, false) {
		r.broadcastGameStateUpdate()
		return
	}

	for _, ev := range watchdog.Check(state, r.Mode, nowMs) {
		r.applyWatchdogEvent(ev, nowMs)
		if r.Phase != PhaseRunning {
			return
		}
	}

	r.npcEngine.Decide(state, r.NPCs)

	beforeLevel := state.Level
	result := r.sim.Advance(state, r.Mode, r.NPCs, nowMs)

	for _, c := range result.Collected {
		p := state.Players[c.PlayerID]
		if p == nil {
			continue
		}
		r.broadcastAll("powerUpCollected", struct {
			PlayerID   string `json:"playerId"`
			PlayerName string `json:"playerName"`
			Type       string `json:"type"`
		}{c.PlayerID, p.DisplayName, string(c.Type)})
	}
	for _, d := range result.Deaths {
		p := state.Players[d.PlayerID]
		if p == nil {
			continue
		}
		r.broadcastAll("playerCollided", struct {
			PlayerName    string `json:"playerName"`
			CollisionType string `json:"collisionType"`
		}{p.DisplayName, string(d.Reason)})
	}

	if state.Level != beforeLevel {
		period := time.Duration(simulation.PeriodMs(simulation.TickRateHz(state.Level, r.Mode))) * time.Millisecond
		r.startTicker(period)
	}

	r.broadcastGameStateUpdate()

	if result.Winner != nil {
		r.endGame(result.Winner, session.EndWinnerDeclared, nowMs)
	}
}

// applyWatchdogEvent carries out the side effects a watchdog.Event
// demands; the watchdog package itself never touches membership or
// connections.
func (r *Room) applyWatchdogEvent(ev watchdog.Event, nowMs int64) {
	switch ev.Kind {
	case watchdog.EventWarn:
		part := r.Participants[ev.PlayerID]
		if part == nil || part.ConnID == "" {
			return
		}
		r.broadcaster.Send(part.ConnID, "inactivityWarning", struct {
			Message          string `json:"message"`
			RemainingSeconds int    `json:"remainingSeconds"`
		}{"you will be removed for inactivity", ev.RemainingSeconds})
	case watchdog.EventKick:
		r.kickForInactivity(ev.PlayerID, nowMs)
	case watchdog.EventEndGame:
		p := r.GameState.Players[ev.PlayerID]
		if p != nil {
			p.Alive = false
			p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
		}
		winner := simulation.CheckWinCondition(r.GameState, r.Mode, false, nowMs)
		r.GameState.Winner = winner
		r.broadcastGameStateUpdate()
		reason := session.EndPlayerInactive
		part := r.Participants[ev.PlayerID]
		if part != nil && part.ConnID == "" {
			reason = session.EndPlayerInactiveDisconnected
		}
		r.endGame(winner, reason, nowMs)
	}
}

func (r *Room) kickForInactivity(playerID string, nowMs int64) {
	p := r.GameState.Players[playerID]
	if p != nil {
		p.Alive = false
		p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
		p.ActivePowerups = nil
	}
	part := r.Participants[playerID]
	wasHost := part != nil && part.IsHost
	if part != nil && part.ConnID != "" {
		r.broadcaster.Send(part.ConnID, "playerKicked", struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}{"inactive", "removed for inactivity"})
	}
	r.removeParticipant(playerID)
	r.broadcastAll("playerLeft", struct {
		PlayerName string       `json:"playerName"`
		Reason     string       `json:"reason"`
		WasHost    bool         `json:"wasHost"`
		Players    []RosterEntry `json:"players"`
	}{nameOr(part), "inactive", wasHost, r.rosterSnapshot()})

	if wasHost {
		r.electNewHost()
	}
	r.broadcastGameStateUpdate()
}

func nameOr(p *model.Participant) string {
	if p == nil {
		return ""
	}
	return p.DisplayName
}

// removeParticipant drops membership, token, and connection mapping
// for playerID without touching GameState.Players (the simulation
// player record is retained for scoring/history purposes).
func (r *Room) removeParticipant(playerID string) {
	part, ok := r.Participants[playerID]
	if !ok {
		return
	}
	delete(r.Participants, playerID)
	delete(r.Tokens, part.Token)
	if part.ConnID != "" {
		delete(r.ConnToPlayer, part.ConnID)
	}
	r.cancelDisconnectTimer(playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
}

// electNewHost implements §4.6's host election rule: uniformly random
// once the game has started, first-joined while still in Lobby.
func (r *Room) electNewHost() {
	var candidates []string
	for _, id := range r.joinOrder {
		if p := r.Participants[id]; p != nil && p.Kind == model.KindHuman {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return
	}
	var newHostID string
	if r.Phase == PhaseLobby {
		newHostID = candidates[0]
	} else {
		newHostID = candidates[rand.Intn(len(candidates))]
	}
	for _, p := range r.Participants {
		p.IsHost = p.ID == newHostID
	}
	if r.GameState != nil {
		for id, p := range r.GameState.Players {
			p.IsHost = id == newHostID
		}
	}
	host := r.Participants[newHostID]
	r.broadcastAll("hostChanged", struct {
		NewHostID   string `json:"newHostId"`
		NewHostName string `json:"newHostName"`
	}{newHostID, host.DisplayName})
}

// endGame implements §4.4 step 7 / §4.7: stop the ticker, mark the
// session ended exactly once, broadcast gameEnded, and schedule cleanup.
func (r *Room) endGame(winner *model.Winner, reason session.EndReason, nowMs int64) {
	if r.gameEndedEmitted {
		return
	}
	r.gameEndedEmitted = true
	r.stopTicker()
	r.Phase = PhaseEnded

	var alive, dead []string
	var snapshots []session.PlayerSnapshot
	for _, id := range r.joinOrder {
		p := r.GameState.Players[id]
		if p == nil {
			continue
		}
		if p.Alive {
			alive = append(alive, p.DisplayName)
		} else {
			dead = append(dead, p.DisplayName)
		}
		snapshots = append(snapshots, session.PlayerSnapshot{ID: id, Name: p.DisplayName, Score: p.Score, Alive: p.Alive})
	}

	r.sessionRegistry.End(r.SessionID, reason, winner, snapshots, nowMs)

	r.broadcastAll("gameEnded", struct {
		Winner       *model.Winner `json:"winner,omitempty"`
		GameState    GameStateView `json:"gameState"`
		GameMode     model.Mode    `json:"gameMode"`
		AlivePlayers []string      `json:"alivePlayers"`
		DeadPlayers  []string      `json:"deadPlayers"`
		RoomCode     string        `json:"roomCode"`
	}{winner, r.stateView(), r.Mode, alive, dead, r.Code})

	delay := MultiCleanupDelay
	if r.Mode != model.ModeMulti {
		delay = SoloCleanupDelay
	}
	r.scheduleCleanup(delay)
}

// Input delegates to the simulation engine's input handler.
func (r *Room) Input(playerID string, dir model.Direction, nowMs int64) error {
	r.lock()
	defer r.unlock()
	if r.GameState == nil || r.Phase != PhaseRunning {
		return ErrNotRunning
	}
	return simulation.OnInput(r.GameState, playerID, dir, nowMs)
}
