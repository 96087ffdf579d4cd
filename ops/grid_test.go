package ops

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/tilesmith/core"
)

func TestSpatialHashQuery(t *testing.T) {
	g := newSpatialHash(2)
	g.Insert(1, mgl32.Vec3{0.5, 0.5, 0.5})
	g.Insert(2, mgl32.Vec3{3.5, 3.5, 3.5})
	g.Insert(3, mgl32.Vec3{-0.5, 0, 0})

	assert.ElementsMatch(t, []core.VertexID{1, 3}, g.QueryRadius(mgl32.Vec3{0, 0, 0}, 1))
	assert.Equal(t, []core.VertexID{2}, g.QueryRadius(mgl32.Vec3{3.5, 3.5, 3.5}, 0.1))
	assert.Empty(t, g.QueryRadius(mgl32.Vec3{20, 20, 20}, 1))

	// Non-positive cell sizes fall back to a tiny cell.
	assert.Equal(t, float32(1e-4), newSpatialHash(0).cellSize)
}
