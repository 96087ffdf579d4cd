package ops

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// PlaceTiles inserts resolved placements. Placements without a target
// object go to the first matching object of their layer, created on demand.
// A placement landing exactly on an existing quad of the target is skipped,
// so a drag over the same cell places once.
type PlaceTiles struct {
	recorder
	Placements []editor.Placement

	// Filled by the first Apply.
	Faces   []core.FaceID
	Objects []core.ObjectID
}

func (p *PlaceTiles) Name() string {
	if len(p.Placements) == 1 {
		return "place tile"
	}
	return fmt.Sprintf("place %d tiles", len(p.Placements))
}

func (p *PlaceTiles) Apply(s *core.Scene) error {
	return p.record(s, func() error { return p.place(s) })
}

func (p *PlaceTiles) place(s *core.Scene) error {
	if len(p.Placements) == 0 {
		return fmt.Errorf("ops: place: no placements: %w", core.ErrInvalidSelection)
	}
	var faces []core.FaceID
	var created []core.ObjectID
	for _, pl := range p.Placements {
		if n := core.QuadNormal(pl.Corners); n.LenSqr() == 0 {
			return fmt.Errorf("ops: place: zero-area quad at %v: %w", pl.Center, core.ErrDegenerateGeometry)
		}
		layer, ok := s.Layer(pl.Layer)
		if !ok {
			return fmt.Errorf("ops: place: layer %d: %w", pl.Layer, core.ErrNotFound)
		}
		if !layer.Editable() {
			return fmt.Errorf("ops: place: layer %q is hidden or locked: %w", layer.Name, core.ErrInvalidSelection)
		}

		target := pl.Object
		if _, ok := s.Object(target); !ok {
			target = editor.FindTargetObject(s, pl.Layer, pl.Tile.Tileset)
		}
		if target == 0 {
			var err error
			target, err = s.AddObject(pl.Layer, fmt.Sprintf("Object %d", s.ObjectCount()+1), pl.Tile.Tileset)
			if err != nil {
				return fmt.Errorf("ops: place: %w", err)
			}
			created = append(created, target)
		}
		if err := checkSource(s, target); err != nil {
			return fmt.Errorf("ops: place: %w", err)
		}

		o, _ := s.Object(target)
		var verts [4]core.Vertex
		var local [4]mgl32.Vec3
		for i, c := range pl.Corners {
			local[i] = o.Transform.ToLocal(c)
			verts[i] = core.Vertex{Position: local[i], UV: pl.UVs[i], Color: core.White}
		}
		if hasQuadAt(s, target, local) {
			continue
		}
		fid, err := s.AddFace(target, verts, pl.Tile, pl.Orientation)
		if err != nil {
			return fmt.Errorf("ops: place: %w", err)
		}
		faces = append(faces, fid)
	}
	p.Faces, p.Objects = faces, created
	return nil
}

// hasQuadAt reports whether obj already holds a visible quad with the same
// center and facing as corners.
func hasQuadAt(s *core.Scene, obj core.ObjectID, corners [4]mgl32.Vec3) bool {
	center := core.QuadCenter(corners)
	n := core.QuadNormal(corners)
	for _, fid := range s.ObjectFaces(obj) {
		f, _ := s.Face(fid)
		if f.Hidden {
			continue
		}
		p, err := s.FacePositions(fid)
		if err != nil {
			continue
		}
		if core.QuadCenter(p).Sub(center).Len() > 1e-5 {
			continue
		}
		if core.QuadNormal(p).Dot(n) > 0.999 && math32.Abs(quadArea(p)-quadArea(corners)) < 1e-5 {
			return true
		}
	}
	return false
}

// quadArea approximates the area of a planar quad from its diagonals.
func quadArea(p [4]mgl32.Vec3) float32 {
	return p[2].Sub(p[0]).Cross(p[3].Sub(p[1])).Len() * 0.5
}
