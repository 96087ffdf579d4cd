package ops

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

// spatialHash buckets vertices into cubic cells for neighbour queries.
type spatialHash struct {
	cellSize float32
	cells    map[[3]int][]core.VertexID
}

func newSpatialHash(cellSize float32) *spatialHash {
	if cellSize <= 0 {
		cellSize = 1e-4
	}
	return &spatialHash{
		cellSize: cellSize,
		cells:    make(map[[3]int][]core.VertexID),
	}
}

func (g *spatialHash) cell(p mgl32.Vec3) [3]int {
	return [3]int{g.index(p.X()), g.index(p.Y()), g.index(p.Z())}
}

func (g *spatialHash) index(v float32) int {
	return int(math32.Floor(v / g.cellSize))
}

func (g *spatialHash) Insert(id core.VertexID, p mgl32.Vec3) {
	key := g.cell(p)
	g.cells[key] = append(g.cells[key], id)
}

// QueryRadius returns the broad-phase candidates within radius of center, in
// insertion order per cell. Callers filter by exact distance.
func (g *spatialHash) QueryRadius(center mgl32.Vec3, radius float32) []core.VertexID {
	r := mgl32.Vec3{radius, radius, radius}
	lo, hi := g.cell(center.Sub(r)), g.cell(center.Add(r))

	var results []core.VertexID
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				results = append(results, g.cells[[3]int{x, y, z}]...)
			}
		}
	}
	return results
}
