// Package simulation implements the per-room simulation engine (§4.4):
// variable-speed movement, collision arbitration, food, and win
// detection. Grounded on the teacher's GameLoop.tick (sonpython-slether
// game_loop.go): a single ordered per-tick pipeline (move food → apply
// input/move snakes → rebuild spatial structures → detect collisions →
// process deaths → collect food → maintain counts → broadcast),
// generalized here from the teacher's continuous slither-style world to
// the spec's discrete bounded/toroidal grid with variable per-player
// speed (speed accumulator, §4.4 step 5) instead of a single fixed tick
// rate for every entity.
package simulation

import (
	"math/rand"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
	"snake-arena-server/internal/npcai"
	"snake-arena-server/internal/powerup"
)

// Engine ties the power-up module and NPC decision engine into the
// per-room tick pipeline. Both dependencies are held unconditionally
// (spec §9's explicit-interface-seam re-architecture) — a disabled
// feature is wired in as a no-op implementation by the room controller,
// not special-cased here.
type Engine struct {
	Powerups powerup.Service
	NPCs     npcai.Engine
}

// New builds a simulation engine with the given power-up and NPC
// implementations.
func New(powerups powerup.Service, npcs npcai.Engine) *Engine {
	return &Engine{Powerups: powerups, NPCs: npcs}
}

// TickResult summarizes what happened during one Advance call, for the
// room actor to translate into broadcast events.
type TickResult struct {
	Winner       *model.Winner
	TimedOut     bool
	Collected    []powerup.Collection
	Deaths       []Death
	FoodEaten    bool
}

// Gated reports whether the tick should be a no-op advance: the room is
// paused, a countdown is active, or the simulation hasn't started yet.
// Callers still broadcast state when gated (frozen-timer semantics).
func Gated(state *model.GameState, countdownActive bool) bool {
	return state.Paused || countdownActive || state.StartEpochMs == 0
}

// Advance runs one full tick body (§4.4 steps 1-7, excluding the
// watchdog and NPC decision steps, which the room actor runs just
// before Advance so their outputs — kicks, queued directions — are
// visible to this tick's movement).
func (e *Engine) Advance(state *model.GameState, mode model.Mode, npcs map[string]*model.NPCState, nowMs int64) TickResult {
	if Gated(state, false) {
		return TickResult{}
	}

	state.Tick++
	state.TimerSeconds = int((nowMs - state.StartEpochMs - state.TotalPauseMs) / 1000)

	if state.TimeLimitMs != nil && nowMs-state.StartEpochMs-state.TotalPauseMs >= *state.TimeLimitMs {
		winner := CheckWinCondition(state, mode, true, nowMs)
		state.Winner = winner
		return TickResult{Winner: winner, TimedOut: true}
	}

	e.Powerups.MaybeSpawn(state, nowMs)
	collected := e.Powerups.CheckCollect(state, nowMs)
	e.Powerups.Tick(state, nowMs)

	foodBefore := state.TotalFoodEaten
	var allDeaths []Death

	maxSteps := 0
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		p.SpeedAccumulator += powerup.SpeedFactor(p, nowMs)
		if steps := int(p.SpeedAccumulator); steps > maxSteps {
			maxSteps = steps
		}
	}

	var winner *model.Winner
	for step := 0; step < maxSteps; step++ {
		var moverIDs []string
		for id, p := range state.Players {
			if p.Alive && p.SpeedAccumulator >= 1 {
				p.SpeedAccumulator--
				moverIDs = append(moverIDs, id)
			}
		}
		if len(moverIDs) == 0 {
			break
		}
		deaths := e.runMovementSubstep(state, mode, moverIDs, nowMs)
		allDeaths = append(allDeaths, deaths...)

		if mode == model.ModeSingle {
			e.respawnNPCIfNeeded(state, npcs, nowMs)
		}

		if !state.Paused {
			winner = CheckWinCondition(state, mode, false, nowMs)
			if winner != nil {
				break
			}
		}
	}

	if winner == nil && !state.Paused {
		winner = CheckWinCondition(state, mode, false, nowMs)
	}
	state.Winner = winner

	return TickResult{
		Winner:    winner,
		Collected: collected,
		Deaths:    allDeaths,
		FoodEaten: state.TotalFoodEaten > foodBefore,
	}
}

// respawnNPCIfNeeded implements §4.4's single-mode NPC respawn rule:
// if every NPC is dead and the human is alive, revive exactly one NPC
// in an unoccupied corner (or a random free cell) with a fresh
// one-segment snake and score 0.
func (e *Engine) respawnNPCIfNeeded(state *model.GameState, npcs map[string]*model.NPCState, nowMs int64) {
	if len(npcs) == 0 {
		return
	}
	humanAlive := false
	anyNPCAlive := false
	var firstNPCID string
	for id, p := range state.Players {
		if p.Kind == model.KindHuman && p.Alive {
			humanAlive = true
		}
		if p.Kind == model.KindNPC {
			if firstNPCID == "" {
				firstNPCID = id
			}
			if p.Alive {
				anyNPCAlive = true
			}
		}
	}
	if !humanAlive || anyNPCAlive || firstNPCID == "" {
		return
	}

	p := state.Players[firstNPCID]
	pos, dir := freeCorner(state)
	p.Snake = []model.Position{pos}
	p.Direction = dir
	p.QueuedDirection = dir
	p.Score = 0
	p.Alive = true
	p.SurvivalStartMs = nowMs
	p.ActivePowerups = nil
}

func freeCorner(state *model.GameState) (model.Position, model.Direction) {
	occupied := make(map[model.Position]bool)
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		for _, seg := range p.Snake {
			occupied[seg] = true
		}
	}
	for _, c := range grid.Corners {
		if !occupied[c.Pos] {
			return c.Pos, c.Dir
		}
	}
	for i := 0; i < 200; i++ {
		cand := model.Position{X: rand.Intn(grid.W), Y: rand.Intn(grid.H)}
		if !occupied[cand] {
			return cand, model.DirRight
		}
	}
	return grid.Corners[0].Pos, grid.Corners[0].Dir
}
