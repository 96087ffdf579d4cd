package ops

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// Subdivide splits each selected quad into four around a new center vertex
// and four edge midpoints.
//
// With InterpolateUVs the new vertices take bilinear UVs and edge midpoints
// are shared between selected neighbours. Without it every child quad gets
// its own corners carrying the parent's four corner UVs, so the tile repeats
// on each child.
type Subdivide struct {
	recorder
	Faces          []editor.Ref
	InterpolateUVs bool
}

func (d *Subdivide) Name() string { return "subdivide" }

func (d *Subdivide) Apply(s *core.Scene) error {
	return d.record(s, func() error {
		if err := d.subdivide(s); err != nil {
			return fmt.Errorf("ops: subdivide: %w", err)
		}
		return nil
	})
}

type edgeKey [2]core.VertexID

func makeEdgeKey(a, b core.VertexID) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

func (d *Subdivide) subdivide(s *core.Scene) error {
	faces, err := faceTargets(s, d.Faces)
	if err != nil {
		return err
	}
	for _, fid := range faces {
		p, err := s.FacePositions(fid)
		if err != nil {
			return err
		}
		if core.QuadNormal(p).LenSqr() == 0 {
			return fmt.Errorf("face %d: %w", fid, core.ErrDegenerateGeometry)
		}
	}

	mids := make(map[edgeKey]core.VertexID)
	for _, fid := range faces {
		f, _ := s.Face(fid)
		var corner [4]core.Vertex
		for i, vid := range f.Vertices {
			corner[i], _ = s.Vertex(vid)
		}
		center := averageVertex(corner[:]...)
		var edge [4]core.Vertex
		for i := range edge {
			edge[i] = lerpVertex(corner[i], corner[(i+1)%4], 0.5)
		}

		if !d.InterpolateUVs {
			// Parent corner k stays in slot k of its child.
			children := [4][4]core.Vertex{
				{corner[0], edge[0], center, edge[3]},
				{edge[0], corner[1], edge[1], center},
				{center, edge[1], corner[2], edge[2]},
				{edge[3], center, edge[2], corner[3]},
			}
			for i := range children {
				for k := range children[i] {
					children[i][k].UV = corner[k].UV
				}
			}
			if err := s.RemoveFace(fid); err != nil {
				return err
			}
			for i := range children {
				if _, err := s.AddFace(f.Object, children[i], f.Tile, f.Orientation); err != nil {
					return err
				}
			}
			continue
		}

		cid, err := s.AddVertex(f.Object, center)
		if err != nil {
			return err
		}
		var eid [4]core.VertexID
		for i := range eid {
			key := makeEdgeKey(f.Vertices[i], f.Vertices[(i+1)%4])
			if id, ok := mids[key]; ok {
				eid[i] = id
				continue
			}
			if eid[i], err = s.AddVertex(f.Object, edge[i]); err != nil {
				return err
			}
			mids[key] = eid[i]
		}
		v := f.Vertices
		quads := [4][4]core.VertexID{
			{v[0], eid[0], cid, eid[3]},
			{eid[0], v[1], eid[1], cid},
			{cid, eid[1], v[2], eid[2]},
			{eid[3], cid, eid[2], v[3]},
		}
		if err := s.SetFaceVertices(fid, quads[0]); err != nil {
			return err
		}
		for _, q := range quads[1:] {
			if _, err := s.AddFaceFromVertices(f.Object, q, f.Tile, f.Orientation); err != nil {
				return err
			}
		}
	}
	return nil
}
