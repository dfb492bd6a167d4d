// Package session implements the session registry (§4.7): one record
// per game instance from countdown start through termination, a
// periodic sweep that closes out stale sessions, and a recent-history
// query. Grounded on the teacher's World cleanup sweep pattern
// (sonpython-slether main.go's periodic stale-connection prune),
// generalized from "prune dead connections" to "close out dead
// sessions" on the same ticker-driven cadence.
package session

import (
	"sort"
	"sync"
	"time"

	"snake-arena-server/internal/model"
)

// EndReason is the closed set of terminal reasons a session can record.
type EndReason string

const (
	EndWinnerDeclared            EndReason = "winner_declared"
	EndTimeout                   EndReason = "timeout"
	EndPlayerInactive            EndReason = "player_inactive"
	EndPlayerInactiveDisconnected EndReason = "player_inactive_disconnected"
	EndAllPlayersDisconnected     EndReason = "all_players_disconnected"
	EndHostQuitNoPlayers          EndReason = "host_quit_no_players"
	EndAllPlayersQuit             EndReason = "all_players_quit"
	EndRoomDeleted                EndReason = "room_deleted"
	EndRoomNotFound               EndReason = "room_not_found"
	EndGameEnded                  EndReason = "game_ended"
	EndCrashed                    EndReason = "crashed"
)

// staleAfter is how long an unended session is considered abandoned by
// the periodic sweep (§4.7).
const staleAfter = 24 * time.Hour

// SweepInterval is how often Registry.Sweep should be invoked by the
// owning process; exported so the gateway's Hub.StartSessionSweep can
// drive its ticker with it.
const SweepInterval = 30 * time.Second

// PlayerSnapshot captures one player's terminal stats for history.
type PlayerSnapshot struct {
	ID    string
	Name  string
	Score int
	Alive bool
}

// Session is one tracked game instance.
type Session struct {
	SessionID       string
	RoomCode        string
	Mode            model.Mode
	StartEpochMs    int64
	EndEpochMs      int64 // 0 while active
	EndReason       EndReason
	WinnerSnapshot  *model.Winner
	PlayerSnapshots []PlayerSnapshot
}

func (s *Session) ended() bool { return s.EndEpochMs != 0 }

// HistoryEntry is the §4.7 requestSessionHistory response shape.
type HistoryEntry struct {
	SessionID       string
	RoomCode        string
	GameMode        model.Mode
	WinnerName      string
	WinnerScore     int
	HasWinner       bool
	DurationSeconds int
	IsActive        bool
}

// Registry owns every tracked session, keyed by sessionId.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // sessionId insertion order, newest last
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// NewSessionID formats the §4.7 "DDMMYY/HH:MM" session id from an epoch
// ms timestamp. Sessions started within the same minute get the same id;
// no caller adds a suffix to tell them apart, so the format stays exactly
// "DDMMYY/HH:MM".
func NewSessionID(nowMs int64) string {
	return time.UnixMilli(nowMs).Format("020106/15:04")
}

// Start registers a new session for a room whose countdown just
// completed.
func (r *Registry) Start(sessionID, roomCode string, mode model.Mode, nowMs int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Session{SessionID: sessionID, RoomCode: roomCode, Mode: mode, StartEpochMs: nowMs}
	r.sessions[sessionID] = s
	r.order = append(r.order, sessionID)
	return s
}

// End closes out a session with a terminal reason, winner, and final
// per-player snapshots. No-op if already ended or unknown.
func (r *Registry) End(sessionID string, reason EndReason, winner *model.Winner, snapshots []PlayerSnapshot, nowMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.ended() {
		return
	}
	s.EndEpochMs = nowMs
	s.EndReason = reason
	s.WinnerSnapshot = winner
	s.PlayerSnapshots = snapshots
}

// Sweep closes every session whose room no longer exists
// (room_deleted) or that has run unended longer than 24h (timeout).
// roomExists is supplied by the caller to avoid a session<->room import
// cycle.
func (r *Registry) Sweep(nowMs int64, roomExists func(roomCode string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ended() {
			continue
		}
		if !roomExists(s.RoomCode) {
			s.EndEpochMs = nowMs
			s.EndReason = EndRoomDeleted
			continue
		}
		if nowMs-s.StartEpochMs >= staleAfter.Milliseconds() {
			s.EndEpochMs = nowMs
			s.EndReason = EndTimeout
		}
	}
}

// History returns the five most recently started sessions, newest first.
func (r *Registry) History(isActive func(roomCode string) bool) []HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]string(nil), r.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		return r.sessions[ids[i]].StartEpochMs > r.sessions[ids[j]].StartEpochMs
	})
	if len(ids) > 5 {
		ids = ids[:5]
	}

	out := make([]HistoryEntry, 0, len(ids))
	for _, id := range ids {
		s := r.sessions[id]
		entry := HistoryEntry{
			SessionID: s.SessionID,
			RoomCode:  s.RoomCode,
			GameMode:  s.Mode,
			IsActive:  !s.ended() && isActive(s.RoomCode),
		}
		if s.WinnerSnapshot != nil {
			entry.HasWinner = true
			entry.WinnerName = s.WinnerSnapshot.Name
			entry.WinnerScore = s.WinnerSnapshot.Score
		}
		end := s.EndEpochMs
		if end == 0 {
			end = nowMsFallback(s.StartEpochMs)
		}
		entry.DurationSeconds = int((end - s.StartEpochMs) / 1000)
		out = append(out, entry)
	}
	return out
}

// nowMsFallback avoids importing a live clock into the registry for an
// active session's in-progress duration; callers needing a precise
// live duration should treat DurationSeconds as "as of start" until end.
func nowMsFallback(startEpochMs int64) int64 {
	return startEpochMs
}
