package core

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Vertex is one storage entry. Faces reference vertices by id; two faces
// only share a vertex after an explicit merge, never because their corners
// happen to coincide.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
	Object   ObjectID
}

// Face is a quad: exactly four vertex slots, wound counter-clockwise when
// seen from the side its normal points to.
type Face struct {
	Vertices    [4]VertexID
	Tile        TileRef
	Orientation Orientation
	Hidden      bool
	Object      ObjectID
}

// Slot returns the index of v in the face, or -1.
func (f Face) Slot(v VertexID) int {
	for i, id := range f.Vertices {
		if id == v {
			return i
		}
	}
	return -1
}

// EdgeSlot returns the slot e such that the face edge (e, e+1) joins a and b
// in either direction.
func (f Face) EdgeSlot(a, b VertexID) (int, bool) {
	if a == b {
		return 0, false
	}
	for e := 0; e < 4; e++ {
		u, w := f.Vertices[e], f.Vertices[(e+1)%4]
		if (u == a && w == b) || (u == b && w == a) {
			return e, true
		}
	}
	return 0, false
}

// Edges lists the four boundary edges in slot order.
func (f Face) Edges() [4][2]VertexID {
	var out [4][2]VertexID
	for e := 0; e < 4; e++ {
		out[e] = [2]VertexID{f.Vertices[e], f.Vertices[(e+1)%4]}
	}
	return out
}

// Object owns an ordered list of faces, or, when Source is set, renders the
// faces of another object through its own transform.
type Object struct {
	ID        ObjectID
	UUID      uuid.UUID
	Name      string
	Layer     LayerID
	Transform Transform
	Source    ObjectID
	TilesetID uint32
	Faces     []FaceID
}

func (o Object) IsInstance() bool { return o.Source != 0 }

type Layer struct {
	ID      LayerID
	Name    string
	Visible bool
	Locked  bool
	Objects []ObjectID
}

// Editable reports whether the layer takes part in picking and selection.
func (l Layer) Editable() bool { return l.Visible && !l.Locked }

func cloneVertex(v *Vertex) *Vertex {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFace(f *Face) *Face {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func cloneObject(o *Object) *Object {
	if o == nil {
		return nil
	}
	c := *o
	c.Faces = slices.Clone(o.Faces)
	return &c
}

func cloneLayer(l *Layer) *Layer {
	if l == nil {
		return nil
	}
	c := *l
	c.Objects = slices.Clone(l.Objects)
	return &c
}

func vertexEqual(a, b *Vertex) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func faceEqual(a, b *Face) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func objectEqual(a, b *Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID &&
		a.UUID == b.UUID &&
		a.Name == b.Name &&
		a.Layer == b.Layer &&
		a.Transform == b.Transform &&
		a.Source == b.Source &&
		a.TilesetID == b.TilesetID &&
		slices.Equal(a.Faces, b.Faces)
}

func layerEqual(a, b *Layer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Visible == b.Visible &&
		a.Locked == b.Locked &&
		slices.Equal(a.Objects, b.Objects)
}
