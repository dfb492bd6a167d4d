package simulation

import (
	"math/rand"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
)

// DeathReason classifies why a player died this tick, mirroring the
// teacher's DeathMsg.Killer concept (game_loop.go) generalized from a
// killer-name string to the spec's closed reason set.
type DeathReason string

const (
	DeathWall        DeathReason = "wall"
	DeathSelf        DeathReason = "self"
	DeathHeadToBody  DeathReason = "head-to-body"
	DeathHeadToHead  DeathReason = "head-to-head"
)

// Death records one player's death this tick.
type Death struct {
	PlayerID string
	Reason   DeathReason
}

type mover struct {
	player  *model.Player
	newHead model.Position
	outOfBounds bool
}

// runMovementSubstep advances every player in `moverIDs` one grid cell,
// applying head-to-head arbitration then per-mover wall/self/other
// collision checks, then committing survivors' new heads (growing on
// food, popping the tail otherwise). Returns the deaths recorded this
// substep.
func (e *Engine) runMovementSubstep(state *model.GameState, mode model.Mode, moverIDs []string, nowMs int64) []Death {
	movers := make(map[string]*mover, len(moverIDs))
	for _, id := range moverIDs {
		p := state.Players[id]
		p.Direction = p.QueuedDirection
		if p.Direction == "" {
			p.Direction = model.DirRight
		}
		head, oob := grid.Next(p.Head(), p.Direction, state.WallMode)
		movers[id] = &mover{player: p, newHead: head, outOfBounds: oob}
	}

	dead := make(map[string]DeathReason)

	// Head-to-head arbitration: group movers by destination cell.
	groups := make(map[model.Position][]*mover)
	for _, m := range movers {
		groups[m.newHead] = append(groups[m.newHead], m)
	}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if mode == model.ModeSingle && groupHasHumanAndNPC(group) {
			continue
		}
		if mode == model.ModeMulti && !state.WallMode && !state.StrictMode {
			continue
		}
		if allShielded(group, nowMs) {
			continue
		}
		for _, m := range group {
			dead[m.player.ID] = DeathHeadToHead
		}
	}

	// Per-mover wall/self/other collision checks for survivors of the
	// head-to-head phase.
	for id, m := range movers {
		if _, already := dead[id]; already {
			continue
		}
		if reason, hit := e.checkOtherCollisions(state, mode, m); hit {
			if m.player.HasEffect(model.PowerupShield, nowMs) {
				continue // shield is consumed as a flag, not removed
			}
			dead[id] = reason
		}
	}

	var deaths []Death
	for id, reason := range dead {
		p := movers[id].player
		p.Alive = false
		p.SurvivalDurationMs = nowMs - p.SurvivalStartMs
		p.ActivePowerups = nil
		deaths = append(deaths, Death{PlayerID: id, Reason: reason})
	}

	for id, m := range movers {
		if _, died := dead[id]; died {
			continue
		}
		p := m.player
		p.Snake = append([]model.Position{m.newHead}, p.Snake...)
		if _, hasFood := state.Food[m.newHead]; hasFood {
			delete(state.Food, m.newHead)
			p.Score += 10
			state.TotalFoodEaten++
			state.Level = LevelForFood(state.TotalFoodEaten)
			e.spawnFood(state)
		} else {
			p.Snake = p.Snake[:len(p.Snake)-1]
		}
	}

	return deaths
}

func groupHasHumanAndNPC(group []*mover) bool {
	hasHuman, hasNPC := false, false
	for _, m := range group {
		if m.player.Kind == model.KindHuman {
			hasHuman = true
		} else {
			hasNPC = true
		}
	}
	return hasHuman && hasNPC
}

func allShielded(group []*mover, nowMs int64) bool {
	for _, m := range group {
		if !m.player.HasEffect(model.PowerupShield, nowMs) {
			return false
		}
	}
	return true
}

// checkOtherCollisions implements §4.4's per-mover wall/self/other checks
// (shield suppression is handled by the caller so it can keep the flag
// rather than clearing it).
func (e *Engine) checkOtherCollisions(state *model.GameState, mode model.Mode, m *mover) (DeathReason, bool) {
	if state.WallMode && m.outOfBounds {
		return DeathWall, true
	}
	for i := 1; i < len(m.player.Snake); i++ {
		if m.player.Snake[i] == m.newHead {
			return DeathSelf, true
		}
	}
	for _, other := range state.Players {
		if other.ID == m.player.ID || !other.Alive {
			continue
		}
		if mode == model.ModeSingle && isHumanNPCPair(m.player, other) {
			continue
		}
		if mode == model.ModeMulti && !state.WallMode && !state.StrictMode {
			continue
		}
		if state.StrictMode {
			for _, seg := range other.Snake {
				if seg == m.newHead {
					return DeathHeadToBody, true
				}
			}
		} else if len(other.Snake) > 0 && other.Snake[0] == m.newHead {
			return DeathHeadToBody, true
		}
	}
	return "", false
}

func isHumanNPCPair(a, b *model.Player) bool {
	return (a.Kind == model.KindHuman) != (b.Kind == model.KindHuman)
}

// spawnFood places one new food item on a uniformly random free cell,
// disjoint from all snake segments and existing food (spec §3 invariant).
func (e *Engine) spawnFood(state *model.GameState) {
	occupied := make(map[model.Position]bool, len(state.Food))
	for f := range state.Food {
		occupied[f] = true
	}
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		for _, seg := range p.Snake {
			occupied[seg] = true
		}
	}
	const maxAttempts = 400
	for i := 0; i < maxAttempts; i++ {
		cand := model.Position{X: rand.Intn(grid.W), Y: rand.Intn(grid.H)}
		if !occupied[cand] {
			state.Food[cand] = struct{}{}
			return
		}
	}
	for x := 0; x < grid.W; x++ {
		for y := 0; y < grid.H; y++ {
			cand := model.Position{X: x, Y: y}
			if !occupied[cand] {
				state.Food[cand] = struct{}{}
				return
			}
		}
	}
}
