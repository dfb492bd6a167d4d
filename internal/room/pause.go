package room

import (
	"snake-arena-server/internal/model"
	"snake-arena-server/internal/session"
	"snake-arena-server/internal/simulation"
	"snake-arena-server/internal/watchdog"
)

// Pause implements §4.6's pause rule: any human may pause while
// Running or during a start-countdown once a GameState exists. The
// open question in §9 ("should non-host players be allowed to pause")
// is preserved as permissive, matching the source.
func (r *Room) Pause(playerID string, nowMs int64) error {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok || part.Kind != model.KindHuman {
		return ErrUnknownPlayer
	}
	if r.GameState == nil || (r.Phase != PhaseRunning && r.Phase != PhaseCountdown) {
		return ErrNotRunning
	}
	if r.GameState.Paused {
		return ErrAlreadyPaused
	}
	if r.Mode == model.ModeMulti && r.GameState.PauseBudgetMs > 0 && r.GameState.TotalPauseMs >= r.GameState.PauseBudgetMs {
		return ErrPauseBudget
	}

	r.GameState.Paused = true
	r.GameState.PauseStartEpochMs = nowMs
	r.pausedBy = part.DisplayName
	r.pausedFromCountdown = r.Phase == PhaseCountdown
	r.Phase = PhasePaused
	r.broadcastAll("gamePaused", struct {
		PausedBy string `json:"pausedBy"`
	}{part.DisplayName})
	return nil
}

// Resume implements §4.6's resume-countdown flow: a tick-driven 5..0
// counter (same ticker, §9 redesign note), finalized by finalizeResume.
func (r *Room) Resume(playerID string, nowMs int64) error {
	r.lock()
	defer r.unlock()

	part, ok := r.Participants[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if r.GameState == nil || !r.GameState.Paused {
		return ErrNotPaused
	}
	if r.isResuming {
		return nil
	}
	r.isResuming = true
	r.resumeCountdownValue = ResumeCountdownFrom
	r.resumedBy = part.DisplayName
	r.broadcastAll("resumeCountdown", struct {
		Countdown int    `json:"countdown"`
		ResumedBy string `json:"resumedBy"`
	}{r.resumeCountdownValue, part.DisplayName})
	return nil
}

// finalizeResume applies the pause-duration bookkeeping once the
// resume-countdown reaches 0. If the room was paused mid start-countdown
// (§4.6: pause is allowed "during a start-countdown"), resume must return
// to PhaseCountdown to continue the 5..0 sequence rather than jumping
// straight to Running with no StartEpochMs/SessionID yet assigned.
// Caller must hold r.mu.
func (r *Room) finalizeResume(nowMs int64) {
	gs := r.GameState
	pauseDuration := nowMs - gs.PauseStartEpochMs
	gs.TotalPauseMs += pauseDuration

	if r.Mode == model.ModeMulti && gs.PauseBudgetMs > 0 && gs.TotalPauseMs >= gs.PauseBudgetMs {
		gs.Paused = false
		r.Phase = PhaseRunning
		winner := simulation.CheckWinCondition(gs, r.Mode, false, nowMs)
		gs.Winner = winner
		r.endGame(winner, session.EndGameEnded, nowMs)
		return
	}

	watchdog.ShiftForPause(gs, pauseDuration)
	gs.Paused = false
	r.pausedBy = ""
	if r.pausedFromCountdown {
		r.pausedFromCountdown = false
		r.Phase = PhaseCountdown
		r.broadcastAll("gameResumed", struct{}{})
		return
	}
	r.Phase = PhaseRunning
	r.broadcastAll("gameResumed", struct{}{})
}
