// Package npcai implements the NPC decision engine (§4.3): per-NPC
// target selection, collision-avoidance move scoring, and dead-end
// lookahead. Grounded on the teacher's BotManager (sonpython-slether
// bot.go): a priority list of steering rules (boundary avoidance, danger
// avoidance, flee/chase, food-seek, wander) evaluated every tick while
// the world mutex is held, generalized here from continuous-angle
// steering to discrete grid-direction scoring because the simulation
// this server drives is a bounded/toroidal grid, not a free-roam plane.
package npcai

import (
	"math/rand"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
)

// Tuning holds the three player-facing sliders, each in [1,5].
type Tuning struct {
	Speed    int
	Skill    int
	Boldness int
}

// Derived is the set of settings computed once per decision from
// Tuning + difficulty, per §4.3.
type Derived struct {
	ReactionMs  int
	SuccessRate float64
	LookAhead   int
	Aggression  float64
	Caution     float64
	Randomness  float64
}

var difficultyBaseReactionMs = map[string]int{
	"easy": 600, "medium": 400, "hard": 220,
}

var difficultyBaseSuccess = map[string]float64{
	"easy": 0.5, "medium": 0.72, "hard": 0.9,
}

// biasWeights is the profile-specific target-category bias (§4.3 step 2).
type biasWeights struct{ food, hunt, survival float64 }

var profileBias = map[string]biasWeights{
	"balanced": {food: 1.0, hunt: 1.0, survival: 1.0},
	"hunter":   {food: 0.6, hunt: 1.6, survival: 0.6},
	"survivor": {food: 0.8, hunt: 0.4, survival: 1.6},
	"forager":  {food: 1.6, hunt: 0.5, survival: 0.7},
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// deriveSettings computes the derived tuning for one decision cycle.
func deriveSettings(difficulty string, t Tuning) Derived {
	baseReact := difficultyBaseReactionMs[difficulty]
	baseSuccess := difficultyBaseSuccess[difficulty]

	reactionMs := baseReact - (t.Speed-3)*40
	if reactionMs < 50 {
		reactionMs = 50
	}
	successRate := clampF(baseSuccess+float64(t.Skill-3)*0.07, 0.4, 0.99)
	lookAhead := clampI(2+t.Skill, 2, 8)
	aggression := clampF(float64(t.Boldness)/5.0, 0, 1)
	caution := clampF(float64(6-t.Boldness)/5.0, 0, 1)
	randomness := clampF(1-successRate, 0.05, 0.4)

	return Derived{
		ReactionMs:  reactionMs,
		SuccessRate: successRate,
		LookAhead:   lookAhead,
		Aggression:  aggression,
		Caution:     caution,
		Randomness:  randomness,
	}
}

// Engine is the NPC decision engine contract. The room actor calls Decide
// once per running tick, before the simulation advances, and the
// simulation engine holds a reference as well (spec §9 interface-seam
// re-architecture). Every room is wired with the engine returned by New;
// in a room without NPCs the npcs map is empty and Decide does nothing.
type Engine interface {
	Decide(state *model.GameState, npcs map[string]*model.NPCState)
}

type engine struct{}

// New returns the NPC decision engine.
func New() Engine { return &engine{} }

// Decide runs one decision cycle for every alive NPC player in state,
// writing the chosen direction into each NPC's QueuedDirection.
func (e *engine) Decide(state *model.GameState, npcs map[string]*model.NPCState) {
	for id, npc := range npcs {
		player, ok := state.Players[id]
		if !ok || !player.Alive {
			continue
		}
		if npc.DecisionDelayTicks > 0 {
			npc.DecisionDelayTicks--
			continue
		}

		derived := deriveSettings(npc.Difficulty, Tuning{Speed: npc.Speed, Skill: npc.Skill, Boldness: npc.Boldness})
		npc.DecisionDelayTicks = derived.ReactionMs / 50

		current := player.Direction
		if current == "" {
			current = model.DirRight
		}

		if rand.Float64() < 1-derived.SuccessRate {
			dir := e.safeMove(state, player, current, current, derived)
			applyDecision(player, npc, dir)
			continue
		}

		target := e.chooseTarget(state, player, npc, derived)
		preferred := preferredDirection(player.Head(), target, current, state.WallMode)
		dir := e.safeMove(state, player, preferred, current, derived)
		applyDecision(player, npc, dir)
	}
}

func applyDecision(player *model.Player, npc *model.NPCState, dir model.Direction) {
	player.QueuedDirection = dir
	npc.LastDirection = dir
}

// chooseTarget implements §4.3 step 2: weighted sampling across
// food/hunt/survive categories, falling back to board center.
func (e *engine) chooseTarget(state *model.GameState, self *model.Player, npc *model.NPCState, d Derived) model.Position {
	bias := profileBias[npc.Profile]
	if bias == (biasWeights{}) {
		bias = profileBias["balanced"]
	}

	bestFood, hasFood := closestFood(state, self.Head())
	bestHead, hasOpp := closestOpponentHead(state, self)

	wFood := bias.food * (1 + 0.3*(1-d.Aggression))
	wHunt := bias.hunt * (0.6 + 0.8*d.Aggression)
	wSurvive := bias.survival * (0.6 + 0.8*d.Caution)

	if !hasFood {
		wFood = 0
	}
	if !hasOpp {
		wHunt = 0
	}

	total := wFood + wHunt + wSurvive
	if total <= 0 {
		return boardCenter()
	}
	r := rand.Float64() * total
	switch {
	case r < wFood:
		return bestFood
	case r < wFood+wHunt:
		return bestHead
	default:
		return boardCenter()
	}
}

func boardCenter() model.Position {
	return model.Position{X: grid.W / 2, Y: grid.H / 2}
}

func manhattan(from, to model.Position, wallMode bool) int {
	dx, dy := grid.ManhattanDelta(from, to, wallMode)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

func closestFood(state *model.GameState, from model.Position) (model.Position, bool) {
	best := model.Position{}
	bestDist := -1
	found := false
	for f := range state.Food {
		d := manhattan(from, f, state.WallMode)
		if !found || d < bestDist {
			best, bestDist, found = f, d, true
		}
	}
	return best, found
}

func closestOpponentHead(state *model.GameState, self *model.Player) (model.Position, bool) {
	best := model.Position{}
	bestDist := -1
	found := false
	for _, p := range state.Players {
		if p.ID == self.ID || !p.Alive {
			continue
		}
		h := p.Head()
		d := manhattan(self.Head(), h, state.WallMode)
		if !found || d < bestDist {
			best, bestDist, found = h, d, true
		}
	}
	return best, found
}

// preferredDirection picks the axis with the larger |delta|; ties are
// resolved to the non-reversing axis (§4.3 step 3).
func preferredDirection(from, to model.Position, current model.Direction, wallMode bool) model.Direction {
	dx, dy := grid.ManhattanDelta(from, to, wallMode)
	absX, absY := dx, dy
	if absX < 0 {
		absX = -absX
	}
	if absY < 0 {
		absY = -absY
	}

	xDir := model.DirRight
	if dx < 0 {
		xDir = model.DirLeft
	}
	yDir := model.DirDown
	if dy < 0 {
		yDir = model.DirUp
	}

	if absX == absY {
		// Tie: prefer whichever axis doesn't reverse the current direction.
		if grid.IsReversal(current, xDir) {
			return yDir
		}
		return xDir
	}
	if absX > absY {
		return xDir
	}
	return yDir
}

type candidate struct {
	dir   model.Direction
	score float64
}

// safeMove implements §4.3 steps 4-5: score every legal direction and
// pick one, with a randomness-weighted chance of picking a near-top
// alternative instead of the strict best.
func (e *engine) safeMove(state *model.GameState, self *model.Player, preferred, current model.Direction, d Derived) model.Direction {
	legal := e.legalMoves(state, self, current, d.LookAhead)
	if len(legal) == 0 {
		return current
	}

	var scored []candidate
	for _, dir := range legal {
		scored = append(scored, candidate{dir: dir, score: e.scoreMove(state, self, dir, preferred, d)})
	}

	best := scored[0]
	for _, c := range scored[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if best.score <= 0 {
		for _, dir := range legal {
			if dir == preferred {
				return preferred
			}
		}
		return legal[0]
	}

	if rand.Float64() < d.Randomness {
		var near []candidate
		for _, c := range scored {
			if best.score-c.score <= 25 {
				near = append(near, c)
			}
		}
		if len(near) > 1 {
			return near[rand.Intn(len(near))].dir
		}
	}
	return best.dir
}

// legalMoves returns directions that don't reverse the current heading
// and, in wall mode, don't immediately leave the board.
func (e *engine) legalMoves(state *model.GameState, self *model.Player, current model.Direction, lookAhead int) []model.Direction {
	var out []model.Direction
	for _, dir := range grid.AllDirections {
		if grid.IsReversal(current, dir) {
			continue
		}
		if state.WallMode {
			_, oob := grid.Next(self.Head(), dir, true)
			if oob {
				continue
			}
		}
		out = append(out, dir)
	}
	return out
}

// occupiedBySnakes returns the set of cells occupied by any alive
// snake's segments right now.
func occupiedBySnakes(state *model.GameState) map[model.Position]bool {
	occ := make(map[model.Position]bool)
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		for _, seg := range p.Snake {
			occ[seg] = true
		}
	}
	return occ
}

// predictedOpponentHeads returns, for every other alive snake, the
// one-step predicted head using that snake's queued direction.
func predictedOpponentHeads(state *model.GameState, self *model.Player) map[model.Position]bool {
	preds := make(map[model.Position]bool)
	for _, p := range state.Players {
		if p.ID == self.ID || !p.Alive {
			continue
		}
		qd := p.QueuedDirection
		if qd == "" {
			qd = p.Direction
		}
		pos, oob := grid.Next(p.Head(), qd, state.WallMode)
		if state.WallMode && oob {
			continue
		}
		preds[pos] = true
	}
	return preds
}

// scoreMove implements §4.3 step 4's scoring formula.
func (e *engine) scoreMove(state *model.GameState, self *model.Player, dir, preferred model.Direction, d Derived) float64 {
	head, oob := grid.Next(self.Head(), dir, state.WallMode)
	if state.WallMode && oob {
		return -1000 // unreachable: legalMoves already excludes this
	}

	occ := occupiedBySnakes(state)
	if occ[head] {
		return -500
	}
	preds := predictedOpponentHeads(state, self)
	if preds[head] {
		return -500
	}

	score := 100.0
	if dir == preferred {
		score += 50
	}

	if state.WallMode {
		wd := grid.WallDistance(head)
		score += float64(wd) * (2 + 3*d.Caution)
		if wd < 2 {
			score -= 30 * d.Caution
		}
		if e.wouldLeadToDeadEnd(state, self, head, dir, d.LookAhead) {
			score -= 120 * d.Caution
		}
	}

	score += float64(e.futureBranchCount(state, self, head, dir)) * (8 + 8*d.Caution)
	return score
}

// futureBranchCount counts legal non-reversing directions from `head`
// (i.e. the branching factor one step after committing to `dir`).
func (e *engine) futureBranchCount(state *model.GameState, self *model.Player, head model.Position, dir model.Direction) int {
	occ := occupiedBySnakes(state)
	count := 0
	for _, next := range grid.AllDirections {
		if grid.IsReversal(dir, next) {
			continue
		}
		cand, oob := grid.Next(head, next, state.WallMode)
		if state.WallMode && oob {
			continue
		}
		if occ[cand] {
			continue
		}
		count++
	}
	return count
}

// wouldLeadToDeadEnd simulates up to lookAhead forward steps from head
// (continuing in dir, turning only when forced) in wall mode, declaring
// a dead end if a wall/snake is hit or the path narrows to a single
// option before the last simulated step (§4.3 dead-end lookahead).
func (e *engine) wouldLeadToDeadEnd(state *model.GameState, self *model.Player, head model.Position, dir model.Direction, lookAhead int) bool {
	occ := occupiedBySnakes(state)
	pos := head
	heading := dir
	for step := 0; step < lookAhead; step++ {
		var options []model.Direction
		for _, next := range grid.AllDirections {
			if grid.IsReversal(heading, next) {
				continue
			}
			cand, oob := grid.Next(pos, next, true)
			if oob || occ[cand] {
				continue
			}
			options = append(options, next)
		}
		if len(options) == 0 {
			return true
		}
		if len(options) == 1 && step < lookAhead-1 {
			return true
		}
		// Multiple options: follow the one matching current heading if
		// still legal, otherwise the first alternative, and keep walking.
		next := options[0]
		for _, o := range options {
			if o == heading {
				next = o
				break
			}
		}
		heading = next
		pos, _ = grid.Next(pos, heading, true)
	}
	return false
}
