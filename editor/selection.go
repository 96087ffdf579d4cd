package editor

import (
	"maps"
	"slices"

	"github.com/gekko3d/tilesmith/core"
)

// Level is the selection granularity.
type Level int

const (
	LevelObject Level = iota
	LevelFace
	LevelEdge
	LevelVertex
)

func (l Level) String() string {
	switch l {
	case LevelObject:
		return "object"
	case LevelFace:
		return "face"
	case LevelEdge:
		return "edge"
	case LevelVertex:
		return "vertex"
	}
	return "unknown"
}

// Ref names one selectable element. Object is the object the element was
// picked through, which for instances differs from the owner of the face
// and vertex ids. Which fields are meaningful depends on the level:
//
//	object: Object
//	face:   Object, Face
//	edge:   Object, A < B
//	vertex: Object, A
type Ref struct {
	Object core.ObjectID
	Face   core.FaceID
	A, B   core.VertexID
}

func ObjectRef(o core.ObjectID) Ref { return Ref{Object: o} }

func FaceRef(o core.ObjectID, f core.FaceID) Ref { return Ref{Object: o, Face: f} }

func EdgeRef(o core.ObjectID, a, b core.VertexID) Ref {
	if b < a {
		a, b = b, a
	}
	return Ref{Object: o, A: a, B: b}
}

func VertexRef(o core.ObjectID, v core.VertexID) Ref { return Ref{Object: o, A: v} }

// Canonical strips the fields the level does not use, so the same element
// always compares equal.
func (r Ref) Canonical(l Level) Ref {
	switch l {
	case LevelObject:
		return ObjectRef(r.Object)
	case LevelFace:
		return FaceRef(r.Object, r.Face)
	case LevelEdge:
		return EdgeRef(r.Object, r.A, r.B)
	default:
		return VertexRef(r.Object, r.A)
	}
}

// Valid reports whether r still names a live, selectable element: the
// object exists on a visible unlocked layer and the element belongs to the
// object's geometry. Hidden faces are not selectable.
func (r Ref) Valid(s *core.Scene, l Level) bool {
	if !s.ObjectEditable(r.Object) {
		return false
	}
	owner, err := s.GeometryOwner(r.Object)
	if err != nil {
		return false
	}
	switch l {
	case LevelObject:
		return true
	case LevelFace:
		f, ok := s.Face(r.Face)
		return ok && f.Object == owner && !f.Hidden
	case LevelEdge:
		v, ok := s.Vertex(r.A)
		return ok && v.Object == owner && s.EdgeExists(r.A, r.B)
	case LevelVertex:
		v, ok := s.Vertex(r.A)
		return ok && v.Object == owner && len(s.VertexFaces(r.A)) > 0
	}
	return false
}

// Selection is an ordered, duplicate-free set of elements at one level.
type Selection struct {
	level Level
	refs  []Ref
	set   map[Ref]struct{}
}

func NewSelection() *Selection {
	return &Selection{level: LevelFace, set: make(map[Ref]struct{})}
}

func (s *Selection) Level() Level { return s.level }

// SetLevel switches granularity. Elements of the old level are dropped.
func (s *Selection) SetLevel(l Level) {
	if l == s.level {
		return
	}
	s.level = l
	s.Clear()
}

func (s *Selection) Refs() []Ref { return slices.Clone(s.refs) }
func (s *Selection) Len() int    { return len(s.refs) }
func (s *Selection) Empty() bool { return len(s.refs) == 0 }

func (s *Selection) Contains(r Ref) bool {
	_, ok := s.set[r.Canonical(s.level)]
	return ok
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.refs = s.refs[:0]
	clear(s.set)
}

// Add appends r unless already selected.
func (s *Selection) Add(r Ref) bool {
	r = r.Canonical(s.level)
	if _, ok := s.set[r]; ok {
		return false
	}
	s.set[r] = struct{}{}
	s.refs = append(s.refs, r)
	return true
}

func (s *Selection) Remove(r Ref) bool {
	r = r.Canonical(s.level)
	if _, ok := s.set[r]; !ok {
		return false
	}
	delete(s.set, r)
	s.refs = slices.DeleteFunc(s.refs, func(x Ref) bool { return x == r })
	return true
}

func (s *Selection) Toggle(r Ref) {
	if !s.Remove(r) {
		s.Add(r)
	}
}

// Click applies a pick: replace the selection, or toggle r when additive.
func (s *Selection) Click(r Ref, additive bool) {
	if additive {
		s.Toggle(r)
		return
	}
	s.Clear()
	s.Add(r)
}

// Set replaces the selection with refs in order.
func (s *Selection) Set(refs []Ref) {
	s.Clear()
	for _, r := range refs {
		s.Add(r)
	}
}

// Prune drops every element that is no longer valid and reports how many
// were removed.
func (s *Selection) Prune(scene *core.Scene) int {
	n := len(s.refs)
	s.refs = slices.DeleteFunc(s.refs, func(r Ref) bool {
		if r.Valid(scene, s.level) {
			return false
		}
		delete(s.set, r)
		return true
	})
	return n - len(s.refs)
}

// SelectAll selects every valid element of the current level in scene order.
func (s *Selection) SelectAll(scene *core.Scene) {
	s.Clear()
	for _, oid := range scene.Objects() {
		if !scene.ObjectEditable(oid) {
			continue
		}
		if s.level == LevelObject {
			s.Add(ObjectRef(oid))
			continue
		}
		for _, r := range elementsOf(scene, oid, s.level) {
			s.Add(r)
		}
	}
}

// Invert selects every valid element of the current level that is not
// selected now, in scene order.
func (s *Selection) Invert(scene *core.Scene) {
	was := maps.Clone(s.set)
	s.SelectAll(scene)
	s.refs = slices.DeleteFunc(s.refs, func(r Ref) bool {
		if _, ok := was[r]; !ok {
			return false
		}
		delete(s.set, r)
		return true
	})
}

func elementsOf(scene *core.Scene, oid core.ObjectID, l Level) []Ref {
	var out []Ref
	for _, fid := range scene.ObjectFaces(oid) {
		f, _ := scene.Face(fid)
		if f.Hidden {
			continue
		}
		switch l {
		case LevelFace:
			out = append(out, FaceRef(oid, fid))
		case LevelEdge:
			for _, e := range f.Edges() {
				out = append(out, EdgeRef(oid, e[0], e[1]))
			}
		case LevelVertex:
			for _, v := range f.Vertices {
				out = append(out, VertexRef(oid, v))
			}
		}
	}
	return out
}

// SelectConnected grows a face selection through shared edges until every
// reachable visible face of the same object is selected.
func (s *Selection) SelectConnected(scene *core.Scene) {
	if s.level != LevelFace {
		return
	}
	queue := slices.Clone(s.refs)
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		f, ok := scene.Face(r.Face)
		if !ok {
			continue
		}
		for _, e := range f.Edges() {
			for _, nid := range scene.FacesAdjacentToEdge(e[0], e[1]) {
				nr := FaceRef(r.Object, nid)
				if nr.Valid(scene, LevelFace) && s.Add(nr) {
					queue = append(queue, nr)
				}
			}
		}
	}
}

// Faces returns the selected face ids, or nil below or above face level.
func (s *Selection) Faces() []core.FaceID {
	if s.level != LevelFace {
		return nil
	}
	out := make([]core.FaceID, len(s.refs))
	for i, r := range s.refs {
		out[i] = r.Face
	}
	return out
}

// Edges returns the selected edges as ordered vertex pairs.
func (s *Selection) Edges() [][2]core.VertexID {
	if s.level != LevelEdge {
		return nil
	}
	out := make([][2]core.VertexID, len(s.refs))
	for i, r := range s.refs {
		out[i] = [2]core.VertexID{r.A, r.B}
	}
	return out
}

func (s *Selection) Vertices() []core.VertexID {
	if s.level != LevelVertex {
		return nil
	}
	out := make([]core.VertexID, len(s.refs))
	for i, r := range s.refs {
		out[i] = r.A
	}
	return out
}

// Objects lists the distinct objects the selection touches, in selection
// order.
func (s *Selection) Objects() []core.ObjectID {
	var out []core.ObjectID
	for _, r := range s.refs {
		if !slices.Contains(out, r.Object) {
			out = append(out, r.Object)
		}
	}
	return out
}

// ImpliedFaces derives a face set: every face of selected objects, the
// selected faces, or faces whose four corners are all covered by the
// selected edges or vertices.
func (s *Selection) ImpliedFaces(scene *core.Scene) []Ref {
	var out []Ref
	seen := make(map[Ref]struct{})
	add := func(r Ref) {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	switch s.level {
	case LevelObject:
		for _, r := range s.refs {
			for _, e := range elementsOf(scene, r.Object, LevelFace) {
				add(e)
			}
		}
	case LevelFace:
		for _, r := range s.refs {
			add(r)
		}
	default:
		covered := make(map[core.VertexID]struct{})
		for _, v := range s.ImpliedVertices(scene) {
			covered[v.A] = struct{}{}
		}
		for _, oid := range s.Objects() {
			for _, fr := range elementsOf(scene, oid, LevelFace) {
				f, _ := scene.Face(fr.Face)
				all := true
				for _, v := range f.Vertices {
					if _, ok := covered[v]; !ok {
						all = false
						break
					}
				}
				if all {
					add(fr)
				}
			}
		}
	}
	return out
}

// ImpliedVertices derives the vertices the selection covers, in first-seen
// order.
func (s *Selection) ImpliedVertices(scene *core.Scene) []Ref {
	var out []Ref
	seen := make(map[Ref]struct{})
	add := func(o core.ObjectID, v core.VertexID) {
		r := VertexRef(o, v)
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	for _, r := range s.refs {
		switch s.level {
		case LevelObject:
			for _, v := range scene.ObjectVertices(r.Object) {
				add(r.Object, v)
			}
		case LevelFace:
			if f, ok := scene.Face(r.Face); ok {
				for _, v := range f.Vertices {
					add(r.Object, v)
				}
			}
		case LevelEdge:
			add(r.Object, r.A)
			add(r.Object, r.B)
		case LevelVertex:
			add(r.Object, r.A)
		}
	}
	return out
}
