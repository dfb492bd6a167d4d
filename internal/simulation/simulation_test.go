package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/model"
	"snake-arena-server/internal/npcai"
	"snake-arena-server/internal/powerup"
)

func newPlayer(id string, kind model.PlayerKind, head model.Position, dir model.Direction) *model.Player {
	return &model.Player{
		ID:        id,
		Kind:      kind,
		Alive:     true,
		Snake:     []model.Position{head},
		Direction: dir,
		QueuedDirection: dir,
	}
}

func TestLevelForFood(t *testing.T) {
	assert.Equal(t, 1, LevelForFood(0))
	assert.Equal(t, 1, LevelForFood(4))
	assert.Equal(t, 2, LevelForFood(5))
	assert.Equal(t, 3, LevelForFood(10))
}

func TestTickRateHzClampsAndSoloBoost(t *testing.T) {
	assert.Equal(t, 5.0, TickRateHz(1, model.ModeMulti))
	assert.Equal(t, 16.0, TickRateHz(10, model.ModeMulti)) // would be 23 uncapped
	solo := TickRateHz(10, model.ModeSolo)
	assert.InDelta(t, 16*1.015, solo, 0.0001)
}

func TestOnInputRejectsReversalAndDuplicate(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	p := newPlayer("p1", model.KindHuman, model.Position{X: 5, Y: 5}, model.DirRight)
	state.Players["p1"] = p

	require.NoError(t, OnInput(state, "p1", model.DirUp, 100))
	assert.Equal(t, model.DirUp, p.QueuedDirection)

	err := OnInput(state, "p1", model.DirDown, 100)
	assert.ErrorIs(t, err, ErrDuplicateInput)

	state.Tick++
	err = OnInput(state, "p1", model.DirDown, 200)
	assert.ErrorIs(t, err, ErrReversal)
}

func TestOnInputUnknownAndDeadPlayer(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	err := OnInput(state, "ghost", model.DirUp, 0)
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	p := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	p.Alive = false
	state.Players["p1"] = p
	err = OnInput(state, "p1", model.DirUp, 0)
	assert.ErrorIs(t, err, ErrPlayerDead)
}

func TestCheckWinConditionSoloEndsOnDeath(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	p := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	state.Players["p1"] = p

	assert.Nil(t, CheckWinCondition(state, model.ModeSolo, false, 0))

	p.Alive = false
	w := CheckWinCondition(state, model.ModeSolo, false, 0)
	require.NotNil(t, w)
	assert.True(t, w.IsLoser)
	assert.Equal(t, "p1", w.PlayerID)
}

func TestCheckWinConditionSingleModeEndsWhenHumanDies(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	human := newPlayer("h1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	npc := newPlayer("n1", model.KindNPC, model.Position{X: 1, Y: 1}, model.DirRight)
	state.Players["h1"] = human
	state.Players["n1"] = npc

	assert.Nil(t, CheckWinCondition(state, model.ModeSingle, false, 0))

	human.Alive = false
	w := CheckWinCondition(state, model.ModeSingle, false, 0)
	require.NotNil(t, w)
	assert.Equal(t, "h1", w.PlayerID)
	assert.True(t, w.IsLoser)
}

func TestCheckWinConditionMultiLastSurvivorWithScore(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	p1 := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	p1.Score = 20
	p2 := newPlayer("p2", model.KindHuman, model.Position{X: 5, Y: 5}, model.DirRight)
	p2.Alive = false
	state.Players["p1"] = p1
	state.Players["p2"] = p2

	w := CheckWinCondition(state, model.ModeMulti, false, 0)
	require.NotNil(t, w)
	assert.Equal(t, "p1", w.PlayerID)
	assert.False(t, w.IsLoser)
}

func TestCheckWinConditionMultiGracePeriodWhenScoreless(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	p1 := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	p2 := newPlayer("p2", model.KindHuman, model.Position{X: 5, Y: 5}, model.DirRight)
	p2.Alive = false
	state.Players["p1"] = p1
	state.Players["p2"] = p2

	// Zero total score: grace period applies before declaring a winner.
	start := int64(1000)
	assert.Nil(t, CheckWinCondition(state, model.ModeMulti, false, start))
	assert.NotZero(t, state.LastSurvivorSinceEpochMs)

	w := CheckWinCondition(state, model.ModeMulti, false, start+survivorGraceMs+1)
	require.NotNil(t, w)
	assert.Equal(t, "p1", w.PlayerID)
}

func TestCheckWinConditionTimeoutAwardsBonus(t *testing.T) {
	state := model.NewGameState(false, false, nil, 0)
	p1 := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirRight)
	state.Players["p1"] = p1

	w := CheckWinCondition(state, model.ModeSolo, true, 0)
	assert.Equal(t, 50, p1.Score)
	assert.Nil(t, w) // solo alive survives a timeout with no loser declared
}

func TestRunMovementSubstepWallDeath(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(true, false, nil, 0)
	p := newPlayer("p1", model.KindHuman, model.Position{X: 0, Y: 0}, model.DirUp)
	state.Players["p1"] = p

	deaths := e.runMovementSubstep(state, model.ModeSolo, []string{"p1"}, 0)
	require.Len(t, deaths, 1)
	assert.Equal(t, DeathWall, deaths[0].Reason)
	assert.False(t, p.Alive)
}

func TestRunMovementSubstepSelfCollision(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(false, false, nil, 0)
	p := newPlayer("p1", model.KindHuman, model.Position{X: 2, Y: 2}, model.DirUp)
	p.Snake = []model.Position{{X: 2, Y: 2}, {X: 2, Y: 1}, {X: 2, Y: 0}}
	state.Players["p1"] = p

	deaths := e.runMovementSubstep(state, model.ModeSolo, []string{"p1"}, 0)
	require.Len(t, deaths, 1)
	assert.Equal(t, DeathSelf, deaths[0].Reason)
}

func TestRunMovementSubstepHeadToHeadMulti(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(false, true, nil, 0) // strict mode so bodies aren't the exception here
	p1 := newPlayer("p1", model.KindHuman, model.Position{X: 4, Y: 5}, model.DirRight)
	p2 := newPlayer("p2", model.KindHuman, model.Position{X: 6, Y: 5}, model.DirLeft)
	state.Players["p1"] = p1
	state.Players["p2"] = p2

	deaths := e.runMovementSubstep(state, model.ModeMulti, []string{"p1", "p2"}, 0)
	require.Len(t, deaths, 2)
	assert.False(t, p1.Alive)
	assert.False(t, p2.Alive)
}

func TestRunMovementSubstepNonStrictFriendlyPassThrough(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(false, false, nil, 0) // wallMode=false, strictMode=false
	p1 := newPlayer("p1", model.KindHuman, model.Position{X: 4, Y: 5}, model.DirRight)
	p2 := newPlayer("p2", model.KindHuman, model.Position{X: 5, Y: 5}, model.DirRight)
	p2.Snake = []model.Position{{X: 5, Y: 5}, {X: 5, Y: 4}}
	state.Players["p1"] = p1
	state.Players["p2"] = p2

	deaths := e.runMovementSubstep(state, model.ModeMulti, []string{"p1", "p2"}, 0)
	assert.Empty(t, deaths)
	assert.True(t, p1.Alive)
	assert.True(t, p2.Alive)
}

func TestRunMovementSubstepSingleModeHumanNPCImmunity(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(false, true, nil, 0)
	human := newPlayer("h1", model.KindHuman, model.Position{X: 4, Y: 5}, model.DirRight)
	npc := newPlayer("n1", model.KindNPC, model.Position{X: 6, Y: 5}, model.DirLeft)
	state.Players["h1"] = human
	state.Players["n1"] = npc

	deaths := e.runMovementSubstep(state, model.ModeSingle, []string{"h1", "n1"}, 0)
	assert.Empty(t, deaths)
	assert.True(t, human.Alive)
	assert.True(t, npc.Alive)
}

func TestRunMovementSubstepFoodGrowsSnake(t *testing.T) {
	e := New(powerup.NoopService{}, npcai.New())
	state := model.NewGameState(false, false, nil, 0)
	p := newPlayer("p1", model.KindHuman, model.Position{X: 4, Y: 5}, model.DirRight)
	state.Players["p1"] = p
	state.Food[model.Position{X: 5, Y: 5}] = struct{}{}

	e.runMovementSubstep(state, model.ModeSolo, []string{"p1"}, 0)

	assert.Len(t, p.Snake, 2)
	assert.Equal(t, 10, p.Score)
	assert.Equal(t, 1, state.TotalFoodEaten)
}
