// Package grid implements the fixed-size board geometry: position
// arithmetic and the wrap-vs-wall movement rule. This is the teacher's
// World boundary check (slether's circular WorldRadius test in
// Snake.Move), generalized from a continuous circle to a discrete
// bounded/toroidal square grid.
package grid

import "snake-arena-server/internal/model"

// W and H are the fixed board dimensions. Cell size is purely
// presentational and has no bearing on server logic.
const (
	W = 30
	H = 30
)

var unit = map[model.Direction]model.Position{
	model.DirUp:    {X: 0, Y: -1},
	model.DirDown:  {X: 0, Y: 1},
	model.DirLeft:  {X: -1, Y: 0},
	model.DirRight: {X: 1, Y: 0},
}

var oppositeOf = map[model.Direction]model.Direction{
	model.DirUp:    model.DirDown,
	model.DirDown:  model.DirUp,
	model.DirLeft:  model.DirRight,
	model.DirRight: model.DirLeft,
}

// Opposite returns the reverse of a direction.
func Opposite(d model.Direction) model.Direction {
	return oppositeOf[d]
}

// IsReversal reports whether moving in `next` while currently committed
// (or queued) to `current` would be a disallowed 180-degree reversal.
func IsReversal(current, next model.Direction) bool {
	return next == Opposite(current)
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// Next computes the new head position for a move from `from` in direction
// `dir`. In wrap mode the result is always in-bounds. In wall mode
// `outOfBounds` is true when the raw (unwrapped) position falls outside
// [0,W)x[0,H), and `pos` is returned unwrapped (callers in wall mode must
// treat outOfBounds as a wall collision and ignore `pos`).
func Next(from Position, dir model.Direction, wallMode bool) (pos Position, outOfBounds bool) {
	d := unit[dir]
	raw := Position{X: from.X + d.X, Y: from.Y + d.Y}
	if !wallMode {
		return Position{X: mod(raw.X, W), Y: mod(raw.Y, H)}, false
	}
	if raw.X < 0 || raw.X >= W || raw.Y < 0 || raw.Y >= H {
		return raw, true
	}
	return raw, false
}

// Position is a re-export alias kept local to this package for ergonomic
// use without qualifying every call site with model.Position.
type Position = model.Position

// WrapDelta returns the minimal signed delta from `a` to `b` along a single
// axis of size `size`, accounting for wrap-around (used by the NPC engine
// for Manhattan-distance targeting when wall mode is off).
func WrapDelta(a, b, size int) int {
	d := b - a
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// ManhattanDelta returns the (dx, dy) the NPC engine should steer along
// to reach `to` from `from`, using wrap-aware minimal deltas when wall
// mode is disabled and raw deltas otherwise.
func ManhattanDelta(from, to Position, wallMode bool) (dx, dy int) {
	if wallMode {
		return to.X - from.X, to.Y - from.Y
	}
	return WrapDelta(from.X, to.X, W), WrapDelta(from.Y, to.Y, H)
}

// InBounds reports whether p is within [0,W)x[0,H).
func InBounds(p Position) bool {
	return p.X >= 0 && p.X < W && p.Y >= 0 && p.Y < H
}

// WallDistance returns the Chebyshev distance from p to the nearest
// board edge, used by the NPC engine's wall-avoidance scoring term.
func WallDistance(p Position) int {
	left, right := p.X, W-1-p.X
	top, bottom := p.Y, H-1-p.Y
	min := left
	if right < min {
		min = right
	}
	if top < min {
		min = top
	}
	if bottom < min {
		min = bottom
	}
	return min
}

// Corners are the four fixed spawn anchors and their initial facing
// direction, assigned to joining players by join order mod 4.
var Corners = []struct {
	Pos Position
	Dir model.Direction
}{
	{Pos: Position{X: 5, Y: 5}, Dir: model.DirRight},
	{Pos: Position{X: W - 6, Y: H - 6}, Dir: model.DirLeft},
	{Pos: Position{X: 5, Y: H - 6}, Dir: model.DirRight},
	{Pos: Position{X: W - 6, Y: 5}, Dir: model.DirLeft},
}

// Palette is the fixed 4-entry color palette assigned by join order.
var Palette = []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12"}

// AllDirections lists the four cardinal directions, used when the NPC
// engine or simulation needs to enumerate legal moves.
var AllDirections = []model.Direction{model.DirUp, model.DirDown, model.DirLeft, model.DirRight}
