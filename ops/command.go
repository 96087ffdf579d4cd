// Package ops implements the edit operations of the modeler as history
// commands. Every op validates its targets, runs once inside a scene
// transaction and keeps the resulting delta, so redo and undo replay exact
// element states.
package ops

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// ErrNoChange is returned by ops whose targets already are in the requested
// state. Nothing is pushed onto the history.
var ErrNoChange = fmt.Errorf("operation changes nothing: %w", core.ErrInvalidSelection)

// recorder is embedded by every op. The first Apply runs the op inside a
// transaction; later Applies replay the recorded delta.
type recorder struct {
	delta *core.Delta
}

func (r *recorder) record(s *core.Scene, run func() error) error {
	if r.delta != nil {
		return s.Redo(r.delta)
	}
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := run(); err != nil {
		return err
	}
	d := tx.Commit()
	if d.Empty() {
		return ErrNoChange
	}
	r.delta = d
	return nil
}

func (r *recorder) Reverse(s *core.Scene) error {
	if r.delta == nil {
		return fmt.Errorf("reverse before apply: %w", core.ErrDanglingReference)
	}
	return s.Undo(r.delta)
}

// Delta returns the recorded change set, nil before the first Apply.
func (r *recorder) Delta() *core.Delta { return r.delta }

// checkSource fails unless oid is an editable source object.
func checkSource(s *core.Scene, oid core.ObjectID) error {
	owner, err := s.GeometryOwner(oid)
	if err != nil {
		return err
	}
	if owner != oid {
		return fmt.Errorf("object %d: %w", oid, core.ErrInstanceGeometry)
	}
	if !s.ObjectEditable(oid) {
		return fmt.Errorf("object %d is on a hidden or locked layer: %w", oid, core.ErrInvalidSelection)
	}
	return nil
}

// faceTargets validates face refs and returns their ids without duplicates.
func faceTargets(s *core.Scene, refs []editor.Ref) ([]core.FaceID, error) {
	var out []core.FaceID
	seen := make(map[core.FaceID]struct{})
	for _, r := range refs {
		if r.Face == 0 {
			return nil, fmt.Errorf("ref %+v is not a face: %w", r, core.ErrInvalidSelection)
		}
		if err := checkSource(s, r.Object); err != nil {
			return nil, err
		}
		f, ok := s.Face(r.Face)
		if !ok || f.Object != r.Object {
			return nil, fmt.Errorf("face %d of object %d: %w", r.Face, r.Object, core.ErrDanglingReference)
		}
		if _, dup := seen[r.Face]; dup {
			continue
		}
		seen[r.Face] = struct{}{}
		out = append(out, r.Face)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no faces selected: %w", core.ErrInvalidSelection)
	}
	return out, nil
}

// vertexTargets validates vertex refs and returns their ids without
// duplicates.
func vertexTargets(s *core.Scene, refs []editor.Ref) ([]core.VertexID, error) {
	var out []core.VertexID
	seen := make(map[core.VertexID]struct{})
	for _, r := range refs {
		if r.A == 0 || r.Face != 0 || r.B != 0 {
			return nil, fmt.Errorf("ref %+v is not a vertex: %w", r, core.ErrInvalidSelection)
		}
		if err := checkSource(s, r.Object); err != nil {
			return nil, err
		}
		v, ok := s.Vertex(r.A)
		if !ok || v.Object != r.Object {
			return nil, fmt.Errorf("vertex %d of object %d: %w", r.A, r.Object, core.ErrDanglingReference)
		}
		if _, dup := seen[r.A]; dup {
			continue
		}
		seen[r.A] = struct{}{}
		out = append(out, r.A)
	}
	return out, nil
}

// edgeTarget validates a single edge ref.
func edgeTarget(s *core.Scene, r editor.Ref) error {
	if r.Face != 0 || r.A == 0 || r.B == 0 {
		return fmt.Errorf("ref %+v is not an edge: %w", r, core.ErrInvalidSelection)
	}
	if err := checkSource(s, r.Object); err != nil {
		return err
	}
	for _, v := range [2]core.VertexID{r.A, r.B} {
		vert, ok := s.Vertex(v)
		if !ok || vert.Object != r.Object {
			return fmt.Errorf("vertex %d of object %d: %w", v, r.Object, core.ErrDanglingReference)
		}
	}
	if !s.EdgeExists(r.A, r.B) {
		return fmt.Errorf("%d-%d is not an edge: %w", r.A, r.B, core.ErrInvalidSelection)
	}
	return nil
}

// refVertices collects the vertices a selection of the given level moves,
// grouped per owning object in first-seen order.
func refVertices(s *core.Scene, level editor.Level, refs []editor.Ref) (map[core.ObjectID][]core.VertexID, []core.ObjectID, error) {
	byObj := make(map[core.ObjectID][]core.VertexID)
	var order []core.ObjectID
	seen := make(map[core.VertexID]struct{})
	add := func(oid core.ObjectID, v core.VertexID) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		if _, ok := byObj[oid]; !ok {
			order = append(order, oid)
		}
		byObj[oid] = append(byObj[oid], v)
	}
	switch level {
	case editor.LevelFace:
		faces, err := faceTargets(s, refs)
		if err != nil {
			return nil, nil, err
		}
		for _, fid := range faces {
			f, _ := s.Face(fid)
			for _, v := range f.Vertices {
				add(f.Object, v)
			}
		}
	case editor.LevelEdge:
		for _, r := range refs {
			if err := edgeTarget(s, r); err != nil {
				return nil, nil, err
			}
			add(r.Object, r.A)
			add(r.Object, r.B)
		}
	case editor.LevelVertex:
		verts, err := vertexTargets(s, refs)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range verts {
			vert, _ := s.Vertex(v)
			add(vert.Object, v)
		}
	default:
		return nil, nil, fmt.Errorf("level %s has no vertices: %w", level, core.ErrInvalidSelection)
	}
	if len(order) == 0 {
		return nil, nil, fmt.Errorf("nothing selected: %w", core.ErrInvalidSelection)
	}
	return byObj, order, nil
}

// detachFace gives fid private copies of any vertex another face also uses.
func detachFace(s *core.Scene, fid core.FaceID) error {
	f, ok := s.Face(fid)
	if !ok {
		return fmt.Errorf("face %d: %w", fid, core.ErrNotFound)
	}
	ids := f.Vertices
	changed := false
	for i, vid := range ids {
		if len(s.VertexFaces(vid)) < 2 {
			continue
		}
		v, _ := s.Vertex(vid)
		nv, err := s.AddVertex(f.Object, v)
		if err != nil {
			return err
		}
		ids[i] = nv
		changed = true
	}
	if !changed {
		return nil
	}
	return s.SetFaceVertices(fid, ids)
}

// detachFaces gives faces private copies of the vertices they share with
// faces outside the set. Welds inside the set are kept.
func detachFaces(s *core.Scene, faces []core.FaceID) error {
	in := make(map[core.FaceID]struct{}, len(faces))
	for _, fid := range faces {
		in[fid] = struct{}{}
	}
	copies := make(map[core.VertexID]core.VertexID)
	for _, fid := range faces {
		f, ok := s.Face(fid)
		if !ok {
			return fmt.Errorf("face %d: %w", fid, core.ErrNotFound)
		}
		ids := f.Vertices
		changed := false
		for i, vid := range ids {
			nv, ok := copies[vid]
			if !ok {
				if !sharedOutside(s, vid, in) {
					continue
				}
				v, _ := s.Vertex(vid)
				var err error
				if nv, err = s.AddVertex(f.Object, v); err != nil {
					return err
				}
				copies[vid] = nv
			}
			ids[i] = nv
			changed = true
		}
		if changed {
			if err := s.SetFaceVertices(fid, ids); err != nil {
				return err
			}
		}
	}
	return nil
}

func sharedOutside(s *core.Scene, v core.VertexID, in map[core.FaceID]struct{}) bool {
	for _, fid := range s.VertexFaces(v) {
		if _, ok := in[fid]; !ok {
			return true
		}
	}
	return false
}

// lerpVertex blends position, UV and color.
func lerpVertex(a, b core.Vertex, t float32) core.Vertex {
	return core.Vertex{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		UV:       a.UV.Add(b.UV.Sub(a.UV).Mul(t)),
		Color:    a.Color.Add(b.Color.Sub(a.Color).Mul(t)),
	}
}

// averageVertex blends all vertices with equal weight.
func averageVertex(vs ...core.Vertex) core.Vertex {
	var out core.Vertex
	if len(vs) == 0 {
		return out
	}
	w := 1 / float32(len(vs))
	for _, v := range vs {
		out.Position = out.Position.Add(v.Position.Mul(w))
		out.UV = out.UV.Add(v.UV.Mul(w))
		out.Color = out.Color.Add(v.Color.Mul(w))
	}
	return out
}

// distinctPositions counts the distinct corner positions of a face.
func distinctPositions(p [4]mgl32.Vec3) int {
	n := 0
	for i := range p {
		dup := false
		for j := 0; j < i; j++ {
			if p[i] == p[j] {
				dup = true
				break
			}
		}
		if !dup {
			n++
		}
	}
	return n
}

// degenerate reports a quad with fewer than three distinct corners or with
// zero area, such as a,x,a,y.
func degenerate(p [4]mgl32.Vec3) bool {
	return distinctPositions(p) < 3 || core.QuadNormal(p) == (mgl32.Vec3{})
}

// removeDegenerate drops every degenerate face of obj and reports how many
// were removed.
func removeDegenerate(s *core.Scene, obj core.ObjectID) (int, error) {
	removed := 0
	for _, fid := range s.ObjectFaces(obj) {
		p, err := s.FacePositions(fid)
		if err != nil {
			return removed, err
		}
		if !degenerate(p) {
			continue
		}
		if err := s.RemoveFace(fid); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
