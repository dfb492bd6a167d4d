package watchdog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/model"
)

func newState() *model.GameState {
	return model.NewGameState(false, false, nil, 0)
}

func TestCheckMultiWarnsOnceThenKicks(t *testing.T) {
	state := newState()
	state.Players["p1"] = &model.Player{ID: "p1", Kind: model.KindHuman, Alive: true}
	state.LastInputEpochMs["p1"] = 0

	events := Check(state, model.ModeMulti, WarnMs)
	require.Len(t, events, 1)
	assert.Equal(t, EventWarn, events[0].Kind)
	assert.True(t, state.Warned["p1"])

	// A second pass still inside the warn window must not warn again.
	events = Check(state, model.ModeMulti, WarnMs+1000)
	assert.Empty(t, events)

	events = Check(state, model.ModeMulti, KickMs)
	require.Len(t, events, 1)
	assert.Equal(t, EventKick, events[0].Kind)
}

func TestCheckIgnoresNPCsAndDeadPlayers(t *testing.T) {
	state := newState()
	state.Players["n1"] = &model.Player{ID: "n1", Kind: model.KindNPC, Alive: true}
	state.Players["p1"] = &model.Player{ID: "p1", Kind: model.KindHuman, Alive: false}

	events := Check(state, model.ModeMulti, KickMs*2)
	assert.Empty(t, events)
}

func TestCheckSoloEndsGameWithoutWarning(t *testing.T) {
	state := newState()
	state.Players["p1"] = &model.Player{ID: "p1", Kind: model.KindHuman, Alive: true}

	events := Check(state, model.ModeSolo, KickMs)
	require.Len(t, events, 1)
	assert.Equal(t, EventEndGame, events[0].Kind)

	// No winner yet is a precondition; once set, no further end events fire.
	state.Winner = &model.Winner{PlayerID: "p1"}
	events = Check(state, model.ModeSolo, KickMs*2)
	assert.Empty(t, events)
}

func TestShiftForPauseAddsDurationToEveryTimestamp(t *testing.T) {
	state := newState()
	state.LastInputEpochMs["p1"] = 1000
	state.LastInputEpochMs["p2"] = 2000

	ShiftForPause(state, 500)

	assert.Equal(t, int64(1500), state.LastInputEpochMs["p1"])
	assert.Equal(t, int64(2500), state.LastInputEpochMs["p2"])
}
