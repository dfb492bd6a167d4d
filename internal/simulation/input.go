package simulation

import (
	"errors"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
)

var (
	// ErrUnknownPlayer is returned when onInput targets a player not in
	// the room's GameState.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrPlayerDead is returned when onInput targets a dead player.
	ErrPlayerDead = errors.New("player is dead")
	// ErrDuplicateInput is returned when the player already sent input
	// this tick.
	ErrDuplicateInput = errors.New("input already recorded this tick")
	// ErrReversal is returned when the requested direction opposes the
	// currently queued/committed direction.
	ErrReversal = errors.New("cannot reverse direction")
)

// OnInput implements §4.4's onInput(roomId, playerId, dir) contract.
func OnInput(state *model.GameState, playerID string, dir model.Direction, nowMs int64) error {
	p, ok := state.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.Alive {
		return ErrPlayerDead
	}
	if last, seen := state.LastInputTick[playerID]; seen && last == state.Tick {
		return ErrDuplicateInput
	}

	current := p.QueuedDirection
	if current == "" {
		current = p.Direction
	}
	if grid.IsReversal(current, dir) {
		return ErrReversal
	}

	p.QueuedDirection = dir
	state.LastInputEpochMs[playerID] = nowMs
	delete(state.Warned, playerID)
	state.LastInputTick[playerID] = state.Tick
	return nil
}
