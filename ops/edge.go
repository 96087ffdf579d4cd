package ops

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// SplitEdge inserts a vertex at the middle of an edge and cuts every quad on
// the edge in two across its opposite edge. Boundary edges (one face) and
// shared edges (two faces) are both valid.
type SplitEdge struct {
	recorder
	Edge editor.Ref

	midpoint core.VertexID
}

func (e *SplitEdge) Name() string { return "split edge" }

// Midpoint is the inserted vertex, zero before the first Apply.
func (e *SplitEdge) Midpoint() core.VertexID { return e.midpoint }

func (e *SplitEdge) Apply(s *core.Scene) error {
	return e.record(s, func() error {
		if err := e.split(s); err != nil {
			return fmt.Errorf("ops: split edge: %w", err)
		}
		return nil
	})
}

func (e *SplitEdge) split(s *core.Scene) error {
	if err := edgeTarget(s, e.Edge); err != nil {
		return err
	}
	a, b := e.Edge.A, e.Edge.B
	faces := s.FacesAdjacentToEdge(a, b)
	if len(faces) > 2 {
		return fmt.Errorf("edge %d-%d joins %d faces: %w", a, b, len(faces), core.ErrDegenerateGeometry)
	}
	va, _ := s.Vertex(a)
	vb, _ := s.Vertex(b)
	if va.Position == vb.Position {
		return fmt.Errorf("edge %d-%d has zero length: %w", a, b, core.ErrDegenerateGeometry)
	}

	mid, err := s.AddVertex(e.Edge.Object, lerpVertex(va, vb, 0.5))
	if err != nil {
		return err
	}
	for _, fid := range faces {
		f, _ := s.Face(fid)
		slot, _ := f.EdgeSlot(a, b)
		// Rotate so the split edge is slots 0-1.
		var q [4]core.VertexID
		for i := range q {
			q[i] = f.Vertices[(slot+i)%4]
		}
		v2, _ := s.Vertex(q[2])
		v3, _ := s.Vertex(q[3])
		opp, err := s.AddVertex(f.Object, lerpVertex(v3, v2, 0.5))
		if err != nil {
			return err
		}
		if err := s.SetFaceVertices(fid, [4]core.VertexID{q[0], mid, opp, q[3]}); err != nil {
			return err
		}
		if _, err := s.AddFaceFromVertices(f.Object, [4]core.VertexID{mid, q[1], q[2], opp}, f.Tile, f.Orientation); err != nil {
			return err
		}
	}
	e.midpoint = mid
	return nil
}

// CollapseEdge merges the two endpoints of an edge at their midpoint. Faces
// on the edge are removed, and so is any face the merge leaves degenerate.
type CollapseEdge struct {
	recorder
	Edge editor.Ref
}

func (e *CollapseEdge) Name() string { return "collapse edge" }

func (e *CollapseEdge) Apply(s *core.Scene) error {
	return e.record(s, func() error {
		if err := e.collapse(s); err != nil {
			return fmt.Errorf("ops: collapse edge: %w", err)
		}
		return nil
	})
}

func (e *CollapseEdge) collapse(s *core.Scene) error {
	if err := edgeTarget(s, e.Edge); err != nil {
		return err
	}
	a, b := e.Edge.A, e.Edge.B
	va, _ := s.Vertex(a)
	vb, _ := s.Vertex(b)
	merged := lerpVertex(va, vb, 0.5)

	for _, fid := range s.FacesAdjacentToEdge(a, b) {
		if err := s.RemoveFace(fid); err != nil {
			return err
		}
	}
	_, aLive := s.Vertex(a)
	_, bLive := s.Vertex(b)
	switch {
	case aLive && bLive:
		if err := s.ReplaceVertex(b, a); err != nil {
			return err
		}
	case !aLive && bLive:
		a = b
	case !aLive && !bLive:
		return nil
	}
	if err := s.SetVertexPosition(a, merged.Position); err != nil {
		return err
	}
	if err := s.SetVertexUV(a, merged.UV); err != nil {
		return err
	}
	if err := s.SetVertexColor(a, merged.Color); err != nil {
		return err
	}
	_, err := removeDegenerate(s, e.Edge.Object)
	return err
}
