package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/model"
)

func TestOppositeAndReversal(t *testing.T) {
	assert.Equal(t, model.DirDown, Opposite(model.DirUp))
	assert.Equal(t, model.DirRight, Opposite(model.DirLeft))
	assert.True(t, IsReversal(model.DirUp, model.DirDown))
	assert.False(t, IsReversal(model.DirUp, model.DirLeft))
}

func TestNextWrapMode(t *testing.T) {
	pos, oob := Next(Position{X: 0, Y: 0}, model.DirLeft, false)
	require.False(t, oob)
	assert.Equal(t, Position{X: W - 1, Y: 0}, pos)

	pos, oob = Next(Position{X: W - 1, Y: H - 1}, model.DirDown, false)
	require.False(t, oob)
	assert.Equal(t, Position{X: W - 1, Y: 0}, pos)
}

func TestNextWallMode(t *testing.T) {
	_, oob := Next(Position{X: 0, Y: 0}, model.DirUp, true)
	assert.True(t, oob)

	pos, oob := Next(Position{X: 5, Y: 5}, model.DirRight, true)
	require.False(t, oob)
	assert.Equal(t, Position{X: 6, Y: 5}, pos)
}

func TestWrapDeltaPicksShorterPath(t *testing.T) {
	// size 30: going from 1 to 28 directly is +27, wrapped is -3.
	assert.Equal(t, -3, WrapDelta(1, 28, 30))
	assert.Equal(t, 3, WrapDelta(28, 1, 30))
}

func TestManhattanDeltaModes(t *testing.T) {
	dx, dy := ManhattanDelta(Position{X: 1, Y: 1}, Position{X: 28, Y: 1}, true)
	assert.Equal(t, 27, dx)
	assert.Equal(t, 0, dy)

	dx, dy = ManhattanDelta(Position{X: 1, Y: 1}, Position{X: 28, Y: 1}, false)
	assert.Equal(t, -3, dx)
	assert.Equal(t, 0, dy)
}

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds(Position{X: 0, Y: 0}))
	assert.True(t, InBounds(Position{X: W - 1, Y: H - 1}))
	assert.False(t, InBounds(Position{X: -1, Y: 0}))
	assert.False(t, InBounds(Position{X: W, Y: 0}))
}

func TestWallDistance(t *testing.T) {
	assert.Equal(t, 0, WallDistance(Position{X: 0, Y: 10}))
	assert.Equal(t, 0, WallDistance(Position{X: W - 1, Y: 10}))
	center := WallDistance(Position{X: W / 2, Y: H / 2})
	assert.Greater(t, center, 0)
}

func TestCornersAndPaletteFixedSize(t *testing.T) {
	require.Len(t, Corners, 4)
	require.Len(t, Palette, 4)
	require.Len(t, AllDirections, 4)
	for _, c := range Corners {
		assert.True(t, InBounds(c.Pos))
	}
}
