// Package watchdog implements the per-player input inactivity watchdog
// (§4.5): mode-aware warn/kick/end semantics driven off last-input age.
// Grounded on the teacher's connection lifecycle bookkeeping
// (sonpython-slether main.go's onDisconnect / world cleanup): age-based
// state pruning on a per-tick cadence, generalized from "disconnect only"
// to "idle-but-still-connected" detection since this spec's inactivity
// rule fires independent of the transport connection being open.
package watchdog

import "snake-arena-server/internal/model"

const (
	WarnMs = 45000
	KickMs = 60000
)

// Event is one action the watchdog wants the room actor to carry out;
// the watchdog package itself never touches connections or broadcasts.
type Event struct {
	PlayerID         string
	Kind             EventKind
	RemainingSeconds int // only set for Warn
}

type EventKind string

const (
	EventWarn EventKind = "warn"
	EventKick EventKind = "kick"
	EventEndGame EventKind = "end_game"
)

// Check runs one watchdog pass over every human, alive player and
// returns the events the room actor must act on. It only mutates
// state.Warned (the "already warned this idle episode" flag); the
// caller is responsible for applying kick/end-game side effects
// (removing membership, stopping the ticker, etc) per §4.5 and §4.6.
func Check(state *model.GameState, mode model.Mode, nowMs int64) []Event {
	var events []Event
	for id, p := range state.Players {
		if p.Kind != model.KindHuman || !p.Alive {
			continue
		}
		last, ok := state.LastInputEpochMs[id]
		if !ok {
			last = state.StartEpochMs
		}
		idle := nowMs - last

		switch mode {
		case model.ModeMulti:
			if idle >= WarnMs && idle < KickMs && !state.Warned[id] {
				state.Warned[id] = true
				events = append(events, Event{PlayerID: id, Kind: EventWarn, RemainingSeconds: int((KickMs - idle) / 1000)})
			}
			if idle >= KickMs {
				events = append(events, Event{PlayerID: id, Kind: EventKick})
			}
		default: // solo, single
			if idle >= KickMs && state.Winner == nil {
				events = append(events, Event{PlayerID: id, Kind: EventEndGame})
			}
		}
	}
	return events
}

// ShiftForPause adds the elapsed pause duration to every recorded
// last-input timestamp so paused time never counts toward inactivity
// (§4.5's pause-shift rule).
func ShiftForPause(state *model.GameState, pauseDurationMs int64) {
	for id, last := range state.LastInputEpochMs {
		state.LastInputEpochMs[id] = last + pauseDurationMs
	}
}
