package npcai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
)

func TestDeriveSettingsClampsAndScalesWithTuning(t *testing.T) {
	base := deriveSettings("easy", Tuning{Speed: 3, Skill: 3, Boldness: 3})
	assert.Equal(t, 600, base.ReactionMs)
	assert.InDelta(t, 0.5, base.SuccessRate, 0.001)

	faster := deriveSettings("easy", Tuning{Speed: 5, Skill: 3, Boldness: 3})
	assert.Less(t, faster.ReactionMs, base.ReactionMs)

	skilled := deriveSettings("hard", Tuning{Speed: 3, Skill: 5, Boldness: 3})
	assert.LessOrEqual(t, skilled.SuccessRate, 0.99)

	lookAhead := deriveSettings("medium", Tuning{Speed: 3, Skill: 1, Boldness: 3}).LookAhead
	assert.GreaterOrEqual(t, lookAhead, 2)
}

func TestDecideSkipsWhileDecisionDelayed(t *testing.T) {
	e := New()
	state := model.NewGameState(true, false, nil, 0)
	p := &model.Player{ID: "n1", Kind: model.KindNPC, Alive: true, Snake: []model.Position{{X: 10, Y: 10}}, Direction: model.DirRight}
	state.Players["n1"] = p
	npc := &model.NPCState{ID: "n1", Difficulty: "medium", Profile: "balanced", Speed: 3, Skill: 3, Boldness: 3, DecisionDelayTicks: 3}
	npcs := map[string]*model.NPCState{"n1": npc}

	e.Decide(state, npcs)

	assert.Equal(t, 2, npc.DecisionDelayTicks)
	assert.Equal(t, model.Direction(""), p.QueuedDirection)
}

func TestDecideSkipsDeadNPCs(t *testing.T) {
	e := New()
	state := model.NewGameState(true, false, nil, 0)
	p := &model.Player{ID: "n1", Kind: model.KindNPC, Alive: false, Snake: []model.Position{{X: 10, Y: 10}}}
	state.Players["n1"] = p
	npcs := map[string]*model.NPCState{"n1": {ID: "n1", Difficulty: "medium"}}

	assert.NotPanics(t, func() { e.Decide(state, npcs) })
}

func TestDecideWritesQueuedDirectionWhenDelayExpired(t *testing.T) {
	e := New()
	state := model.NewGameState(true, false, nil, 0)
	p := &model.Player{ID: "n1", Kind: model.KindNPC, Alive: true, Snake: []model.Position{{X: 10, Y: 10}}, Direction: model.DirRight}
	state.Players["n1"] = p
	npc := &model.NPCState{ID: "n1", Difficulty: "medium", Profile: "balanced", Speed: 3, Skill: 3, Boldness: 3}
	npcs := map[string]*model.NPCState{"n1": npc}

	e.Decide(state, npcs)

	require.NotEmpty(t, p.QueuedDirection)
	assert.Contains(t, grid.AllDirections, p.QueuedDirection)
	assert.Greater(t, npc.DecisionDelayTicks, -1)
}

func TestPreferredDirectionPicksLargerAxis(t *testing.T) {
	dir := preferredDirection(model.Position{X: 0, Y: 0}, model.Position{X: 10, Y: 1}, model.DirUp, true)
	assert.Equal(t, model.DirRight, dir)

	dir = preferredDirection(model.Position{X: 0, Y: 0}, model.Position{X: 1, Y: 10}, model.DirUp, true)
	assert.Equal(t, model.DirDown, dir)
}

func TestPreferredDirectionTieBreaksAwayFromReversal(t *testing.T) {
	// Equal |dx|,|dy|; moving right would reverse "left", so it picks down.
	dir := preferredDirection(model.Position{X: 5, Y: 5}, model.Position{X: 10, Y: 10}, model.DirLeft, true)
	assert.Equal(t, model.DirDown, dir)
}

func TestLegalMovesExcludesReversalAndWalls(t *testing.T) {
	e := &engine{}
	state := model.NewGameState(true, false, nil, 0) // wall mode
	self := &model.Player{ID: "p1", Snake: []model.Position{{X: 0, Y: 5}}}

	moves := e.legalMoves(state, self, model.DirRight, 3)
	for _, m := range moves {
		assert.NotEqual(t, model.DirLeft, m)
	}
	// Moving up/down from x=0,y=5 stays in bounds; left would reverse (excluded)
	// and is also out of bounds here, so both rules agree it's excluded.
	assert.NotContains(t, moves, model.DirLeft)
}

func TestScoreMovePenalizesOccupiedCell(t *testing.T) {
	e := &engine{}
	state := model.NewGameState(false, false, nil, 0)
	self := &model.Player{ID: "p1", Snake: []model.Position{{X: 5, Y: 5}}}
	other := &model.Player{ID: "p2", Alive: true, Snake: []model.Position{{X: 5, Y: 6}}}
	state.Players["p1"] = self
	state.Players["p2"] = other

	d := Derived{Caution: 0.5}
	score := e.scoreMove(state, self, model.DirDown, model.DirDown, d)
	assert.Equal(t, -500.0, score)
}

func TestWouldLeadToDeadEndDetectsBoxedInPath(t *testing.T) {
	e := &engine{}
	state := model.NewGameState(true, false, nil, 0)
	self := &model.Player{ID: "p1", Snake: []model.Position{{X: 1, Y: 0}}}
	state.Players["p1"] = self
	// Wall off every cell around (0,0) except the approach, forcing a dead end.
	blocker := &model.Player{ID: "block", Alive: true, Snake: []model.Position{
		{X: 1, Y: 1}, {X: 0, Y: 1},
	}}
	state.Players["block"] = blocker

	deadEnd := e.wouldLeadToDeadEnd(state, self, model.Position{X: 0, Y: 0}, model.DirLeft, 3)
	assert.True(t, deadEnd)
}
