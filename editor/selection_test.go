package editor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/tilesmith/core"
)

// strip builds two faces welded along one edge plus a loose third face.
func strip(t *testing.T) (*core.Scene, core.ObjectID, [3]core.FaceID) {
	t.Helper()
	s := core.NewScene()
	obj := newObject(t, s, "strip")
	f1 := addTile(t, s, obj, mgl32.Vec3{0.5, 0, 0.5})
	a, _ := s.Face(f1)

	// Corners of f1: (1,0,0) (0,0,0) (0,0,1) (1,0,1). Weld a neighbour on x = 1.
	v4, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{2, 0, 0}, Color: core.White})
	require.NoError(t, err)
	v5, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{2, 0, 1}, Color: core.White})
	require.NoError(t, err)
	f2, err := s.AddFaceFromVertices(obj, [4]core.VertexID{v4, a.Vertices[0], a.Vertices[3], v5}, core.TileRef{}, core.Orientation{})
	require.NoError(t, err)

	f3 := addTile(t, s, obj, mgl32.Vec3{5.5, 0, 0.5})
	return s, obj, [3]core.FaceID{f1, f2, f3}
}

func TestSelectionClickAndToggle(t *testing.T) {
	sel := NewSelection()
	assert.Equal(t, LevelFace, sel.Level())

	sel.Click(FaceRef(1, 1), false)
	sel.Click(FaceRef(1, 2), true)
	sel.Click(FaceRef(1, 2), true)
	sel.Click(FaceRef(1, 3), true)
	assert.Equal(t, []Ref{FaceRef(1, 1), FaceRef(1, 3)}, sel.Refs())

	sel.Click(FaceRef(1, 2), false)
	assert.Equal(t, []Ref{FaceRef(1, 2)}, sel.Refs())

	// Duplicates are ignored and extra fields do not create new entries.
	assert.False(t, sel.Add(Ref{Object: 1, Face: 2, A: 9}))
	assert.Equal(t, 1, sel.Len())

	sel.SetLevel(LevelEdge)
	assert.True(t, sel.Empty())
	sel.Add(EdgeRef(1, 5, 3))
	assert.True(t, sel.Contains(EdgeRef(1, 3, 5)))
	assert.Equal(t, core.VertexID(3), sel.Refs()[0].A)
}

func TestSelectionPrune(t *testing.T) {
	s, obj, faces := strip(t)
	sel := NewSelection()
	sel.Set([]Ref{FaceRef(obj, faces[0]), FaceRef(obj, faces[1]), FaceRef(obj, faces[2])})

	require.NoError(t, s.RemoveFace(faces[1]))
	require.NoError(t, s.SetFaceHidden(faces[2], true))
	assert.Equal(t, 2, sel.Prune(s))
	assert.Equal(t, []Ref{FaceRef(obj, faces[0])}, sel.Refs())

	require.NoError(t, s.SetLayerLocked(s.ActiveLayer, true))
	sel.Prune(s)
	assert.True(t, sel.Empty())
}

func TestSelectionPruneEdgesAndVertices(t *testing.T) {
	s, obj, faces := strip(t)
	f, _ := s.Face(faces[2])

	sel := NewSelection()
	sel.SetLevel(LevelVertex)
	sel.Add(VertexRef(obj, f.Vertices[0]))
	sel.Add(VertexRef(obj, 999))
	sel.Prune(s)
	assert.Equal(t, 1, sel.Len())

	sel.SetLevel(LevelEdge)
	sel.Add(EdgeRef(obj, f.Vertices[0], f.Vertices[1]))
	sel.Add(EdgeRef(obj, f.Vertices[0], f.Vertices[2])) // diagonal, not an edge
	sel.Prune(s)
	assert.Equal(t, []Ref{EdgeRef(obj, f.Vertices[0], f.Vertices[1])}, sel.Refs())

	require.NoError(t, s.RemoveFace(faces[2]))
	sel.Prune(s)
	assert.True(t, sel.Empty())
}

func TestSelectAllAndConnected(t *testing.T) {
	s, obj, faces := strip(t)
	sel := NewSelection()
	sel.SelectAll(s)
	assert.Equal(t, 3, sel.Len())

	sel.Click(FaceRef(obj, faces[0]), false)
	sel.SelectConnected(s)
	assert.Equal(t, []Ref{FaceRef(obj, faces[0]), FaceRef(obj, faces[1])}, sel.Refs())

	sel.SetLevel(LevelVertex)
	sel.SelectAll(s)
	assert.Equal(t, 10, sel.Len())

	sel.SetLevel(LevelObject)
	sel.SelectAll(s)
	assert.Equal(t, []Ref{ObjectRef(obj)}, sel.Refs())
}

func TestInvert(t *testing.T) {
	s, obj, faces := strip(t)
	sel := NewSelection()
	sel.Click(FaceRef(obj, faces[1]), false)
	sel.Invert(s)
	assert.Equal(t, []Ref{FaceRef(obj, faces[0]), FaceRef(obj, faces[2])}, sel.Refs())
	sel.Invert(s)
	assert.Equal(t, []Ref{FaceRef(obj, faces[1])}, sel.Refs())

	sel.Clear()
	sel.Invert(s)
	assert.Equal(t, 3, sel.Len())

	// Hidden faces never come back.
	require.NoError(t, s.SetFaceHidden(faces[2], true))
	sel.Click(FaceRef(obj, faces[0]), false)
	sel.Invert(s)
	assert.Equal(t, []Ref{FaceRef(obj, faces[1])}, sel.Refs())

	sel.SetLevel(LevelVertex)
	f, _ := s.Face(faces[0])
	sel.Add(VertexRef(obj, f.Vertices[1]))
	sel.Invert(s)
	assert.Equal(t, 5, sel.Len())
	assert.False(t, sel.Contains(VertexRef(obj, f.Vertices[1])))
}

func TestImpliedSets(t *testing.T) {
	s, obj, faces := strip(t)
	sel := NewSelection()
	sel.Set([]Ref{FaceRef(obj, faces[0]), FaceRef(obj, faces[1])})
	assert.Len(t, sel.ImpliedVertices(s), 6)
	assert.Len(t, sel.ImpliedFaces(s), 2)

	sel.SetLevel(LevelObject)
	sel.Add(ObjectRef(obj))
	assert.Len(t, sel.ImpliedFaces(s), 3)
	assert.Len(t, sel.ImpliedVertices(s), 10)
	assert.Equal(t, []core.ObjectID{obj}, sel.Objects())

	// Vertices covering exactly one face imply that face.
	f, _ := s.Face(faces[2])
	sel.SetLevel(LevelVertex)
	for _, v := range f.Vertices {
		sel.Add(VertexRef(obj, v))
	}
	assert.Equal(t, []Ref{FaceRef(obj, faces[2])}, sel.ImpliedFaces(s))
}

func TestLevelAccessors(t *testing.T) {
	s, obj, faces := strip(t)
	f, _ := s.Face(faces[0])
	sel := NewSelection()
	sel.Set([]Ref{FaceRef(obj, faces[1]), FaceRef(obj, faces[0])})
	assert.Equal(t, []core.FaceID{faces[1], faces[0]}, sel.Faces())
	assert.Nil(t, sel.Edges())
	assert.Nil(t, sel.Vertices())

	sel.SetLevel(LevelEdge)
	sel.Add(EdgeRef(obj, f.Vertices[1], f.Vertices[0]))
	lo, hi := min(f.Vertices[0], f.Vertices[1]), max(f.Vertices[0], f.Vertices[1])
	assert.Equal(t, [][2]core.VertexID{{lo, hi}}, sel.Edges())
	assert.Nil(t, sel.Faces())

	sel.SetLevel(LevelVertex)
	sel.Add(VertexRef(obj, f.Vertices[2]))
	assert.Equal(t, []core.VertexID{f.Vertices[2]}, sel.Vertices())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "object", LevelObject.String())
	assert.Equal(t, "vertex", LevelVertex.String())
	assert.Equal(t, "unknown", Level(42).String())
}
