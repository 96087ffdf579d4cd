package ops

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

func TestExtrudeSingleFace(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	before := positions(t, s, fid)

	ext := &Extrude{Faces: faceRefs(obj, fid), Distance: 1}
	require.NoError(t, ext.Apply(s))

	assert.Equal(t, 6, s.FaceCount())
	require.Len(t, ext.Created, 5)
	after := positions(t, s, fid)
	for i := range after {
		assert.Equal(t, before[i].Add(up), after[i])
	}
	assert.Equal(t, up, normal(t, s, fid))

	// Side 0 runs along z = 0 and faces -Z; the cap faces down.
	assert.True(t, normal(t, s, ext.Created[0]).ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-6))
	assert.True(t, normal(t, s, ext.Created[4]).ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-6))
	assert.Equal(t, [4]mgl32.Vec3{before[0], before[3], before[2], before[1]}, positions(t, s, ext.Created[4]))

	for _, side := range ext.Created[:4] {
		n := normal(t, s, side)
		assert.InDelta(t, 0, n.Y(), 1e-6)
		c := core.QuadCenter(positions(t, s, side))
		assert.InDelta(t, 0.5, c.Y(), 1e-6)
		// Outward: from the box center toward the side.
		assert.Greater(t, n.Dot(c.Sub(mgl32.Vec3{0.5, 0.5, 0.5})), float32(0))
	}
}

func TestExtrudeDetachesSharedVertices(t *testing.T) {
	s, obj, f := weldedPair(t)
	other := positions(t, s, f[1])

	require.NoError(t, (&Extrude{Faces: faceRefs(obj, f[0]), Distance: 2}).Apply(s))
	assert.Equal(t, other, positions(t, s, f[1]))
	for _, p := range positions(t, s, f[0]) {
		assert.Equal(t, float32(2), p.Y())
	}
	assert.Equal(t, 7, s.FaceCount())
}

func TestExtrudeRejects(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)

	assert.ErrorIs(t, (&Extrude{Distance: 1}).Apply(s), core.ErrInvalidSelection)
	assert.ErrorIs(t, (&Extrude{Faces: faceRefs(obj, fid)}).Apply(s), core.ErrDegenerateGeometry)
	assert.Equal(t, 1, s.FaceCount())
}

func TestSplitThenCollapseBoundaryEdge(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	f := face(t, s, fid)

	split := &SplitEdge{Edge: editor.EdgeRef(obj, f.Vertices[0], f.Vertices[1])}
	require.NoError(t, split.Apply(s))
	assert.Equal(t, 2, s.FaceCount())
	assert.Equal(t, 6, s.VertexCount())

	mid, ok := s.Vertex(split.Midpoint())
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0.5, 0, 0}, mid.Position)
	assert.Equal(t, mgl32.Vec2{0.5, 1}, mid.UV)
	for _, id := range s.ObjectFaces(obj) {
		assert.Equal(t, up, normal(t, s, id))
	}

	collapse := &CollapseEdge{Edge: editor.EdgeRef(obj, split.Midpoint(), f.Vertices[0])}
	require.NoError(t, collapse.Apply(s))
	assert.Equal(t, 1, s.FaceCount())
}

func TestSplitThenCollapseSharedEdge(t *testing.T) {
	s, obj, f := weldedPair(t)
	a := face(t, s, f[0])

	split := &SplitEdge{Edge: editor.EdgeRef(obj, a.Vertices[0], a.Vertices[3])}
	require.NoError(t, split.Apply(s))
	assert.Equal(t, 4, s.FaceCount())
	// The midpoint is shared by all four halves.
	assert.Len(t, s.VertexFaces(split.Midpoint()), 4)

	collapse := &CollapseEdge{Edge: editor.EdgeRef(obj, split.Midpoint(), a.Vertices[0])}
	require.NoError(t, collapse.Apply(s))
	assert.Equal(t, 2, s.FaceCount())
}

func TestSplitEdgeRejects(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	f := face(t, s, fid)

	diagonal := &SplitEdge{Edge: editor.EdgeRef(obj, f.Vertices[0], f.Vertices[2])}
	assert.ErrorIs(t, diagonal.Apply(s), core.ErrInvalidSelection)
	notEdge := &SplitEdge{Edge: editor.FaceRef(obj, fid)}
	assert.ErrorIs(t, notEdge.Apply(s), core.ErrInvalidSelection)

	require.NoError(t, s.SetVertexPosition(f.Vertices[1], mgl32.Vec3{1, 0, 0}))
	zero := &SplitEdge{Edge: editor.EdgeRef(obj, f.Vertices[0], f.Vertices[1])}
	assert.ErrorIs(t, zero.Apply(s), core.ErrDegenerateGeometry)
	assert.Equal(t, 1, s.FaceCount())
}

func TestCollapseKeepsNeighbour(t *testing.T) {
	s, obj, f := weldedPair(t)
	a := face(t, s, f[0])

	require.NoError(t, (&CollapseEdge{Edge: editor.EdgeRef(obj, a.Vertices[0], a.Vertices[1])}).Apply(s))
	assert.Equal(t, 1, s.FaceCount())
	assert.Equal(t, [4]mgl32.Vec3{{2, 0, 0}, {0.5, 0, 0}, {1, 0, 1}, {2, 0, 1}}, positions(t, s, f[1]))
}

func TestCollapseRemovesDegenerateFaces(t *testing.T) {
	s, obj := newScene(t)
	f1 := addTile(t, s, obj, 0.5, 0.5)
	a := face(t, s, f1)
	x1, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{2, 0, 0.5}, Color: core.White})
	require.NoError(t, err)
	x2, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{2, 0, 0.5}, Color: core.White})
	require.NoError(t, err)
	// A triangle whose diagonal is f1's x = 1 edge.
	tri, err := s.AddFaceFromVertices(obj, [4]core.VertexID{a.Vertices[0], x1, a.Vertices[3], x2}, core.TileRef{}, core.Orientation{})
	require.NoError(t, err)

	require.NoError(t, (&CollapseEdge{Edge: editor.EdgeRef(obj, a.Vertices[0], a.Vertices[3])}).Apply(s))
	_, ok := s.Face(f1)
	assert.False(t, ok)
	// Down to two distinct corners.
	_, ok = s.Face(tri)
	assert.False(t, ok)
	assert.Equal(t, 0, s.VertexCount())
}

func TestCollapseRemovesZeroAreaFace(t *testing.T) {
	s, obj := newScene(t)
	q := addTile(t, s, obj, 0.5, 0.5)
	a := face(t, s, q)
	x, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{0.5, 0, -1}, Color: core.White})
	require.NoError(t, err)
	y, err := s.AddVertex(obj, core.Vertex{Position: mgl32.Vec3{0.5, 0, 0.5}, Color: core.White})
	require.NoError(t, err)
	// q's edge (1,0,0)-(0,0,0) is a diagonal of this face.
	diag, err := s.AddFaceFromVertices(obj, [4]core.VertexID{a.Vertices[0], x, a.Vertices[1], y}, core.TileRef{}, core.Orientation{})
	require.NoError(t, err)
	require.NotEqual(t, mgl32.Vec3{}, normal(t, s, diag))

	require.NoError(t, (&CollapseEdge{Edge: editor.EdgeRef(obj, a.Vertices[0], a.Vertices[1])}).Apply(s))
	_, ok := s.Face(diag)
	assert.False(t, ok)
	assert.Equal(t, 0, s.FaceCount())
	assert.Equal(t, 0, s.VertexCount())
}

func TestMergeWeldsTouchingTiles(t *testing.T) {
	s, obj := newScene(t)
	f1 := addTile(t, s, obj, 0.5, 0.5)
	f2 := addTile(t, s, obj, 1.5, 0.5)
	var refs []editor.Ref
	for _, id := range []core.FaceID{f1, f2} {
		for _, v := range face(t, s, id).Vertices {
			refs = append(refs, editor.VertexRef(obj, v))
		}
	}

	m := &MergeVertices{Vertices: refs, Tolerance: 0.01, MinTolerance: 0.0001, MaxTolerance: 1}
	require.NoError(t, m.Apply(s))
	assert.Equal(t, 2, m.Removed)
	assert.Equal(t, 6, s.VertexCount())
	a := face(t, s, f1)
	assert.Len(t, s.FacesAdjacentToEdge(a.Vertices[0], a.Vertices[3]), 2)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, positions(t, s, f2)[1])
}

func TestMergeAveragesCluster(t *testing.T) {
	s, obj := newScene(t)
	f1 := addTile(t, s, obj, 0.5, 0.5)
	f2 := addTile(t, s, obj, 1.5, 0.5)
	b := face(t, s, f2)
	require.NoError(t, s.SetVertexPosition(b.Vertices[1], mgl32.Vec3{1.1, 0, 0}))
	a := face(t, s, f1)

	m := &MergeVertices{Vertices: []editor.Ref{editor.VertexRef(obj, a.Vertices[0]), editor.VertexRef(obj, b.Vertices[1])}, Tolerance: 0.2}
	require.NoError(t, m.Apply(s))
	v, ok := s.Vertex(a.Vertices[0])
	require.True(t, ok)
	assert.InDelta(t, 1.05, v.Position.X(), 1e-6)
	_, ok = s.Vertex(b.Vertices[1])
	assert.False(t, ok)
	assert.Equal(t, a.Vertices[0], face(t, s, f2).Vertices[1])
}

func TestMergeRemovesCollapsedFace(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	var refs []editor.Ref
	for _, v := range face(t, s, fid).Vertices {
		refs = append(refs, editor.VertexRef(obj, v))
	}
	require.NoError(t, (&MergeVertices{Vertices: refs, Tolerance: 2}).Apply(s))
	assert.Equal(t, 0, s.FaceCount())
	assert.Equal(t, 0, s.VertexCount())
	_, ok := s.Object(obj)
	assert.True(t, ok)
}

func TestMergeRemovesZeroAreaFace(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	f := face(t, s, fid)

	// Welding opposite corners leaves a,x,a,y: three positions, no area.
	m := &MergeVertices{Vertices: []editor.Ref{editor.VertexRef(obj, f.Vertices[0]), editor.VertexRef(obj, f.Vertices[2])}, Tolerance: 2}
	require.NoError(t, m.Apply(s))
	assert.Equal(t, 1, m.Removed)
	_, ok := s.Face(fid)
	assert.False(t, ok)
	assert.Equal(t, 0, s.VertexCount())
}

func TestMergeRejects(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	f := face(t, s, fid)
	two := []editor.Ref{editor.VertexRef(obj, f.Vertices[0]), editor.VertexRef(obj, f.Vertices[1])}

	cases := []struct {
		name string
		m    *MergeVertices
		want error
	}{
		{"below bounds", &MergeVertices{Vertices: two, Tolerance: 0.00001, MinTolerance: 0.0001, MaxTolerance: 1}, core.ErrToleranceMismatch},
		{"above bounds", &MergeVertices{Vertices: two, Tolerance: 5, MaxTolerance: 1}, core.ErrToleranceMismatch},
		{"negative", &MergeVertices{Vertices: two, Tolerance: -1}, core.ErrToleranceMismatch},
		{"one vertex", &MergeVertices{Vertices: two[:1], Tolerance: 0.5}, core.ErrInvalidSelection},
		{"too far apart", &MergeVertices{Vertices: two, Tolerance: 0.5}, core.ErrInvalidSelection},
		{"face ref", &MergeVertices{Vertices: faceRefs(obj, fid), Tolerance: 0.5}, core.ErrInvalidSelection},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, c.m.Apply(s), c.want)
			assert.Equal(t, 4, s.VertexCount())
		})
	}
}

func TestSubdivideInterpolated(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)

	require.NoError(t, (&Subdivide{Faces: faceRefs(obj, fid), InterpolateUVs: true}).Apply(s))
	assert.Equal(t, 4, s.FaceCount())
	assert.Equal(t, 9, s.VertexCount())

	// The first child keeps the parent id and corner 0.
	p := positions(t, s, fid)
	assert.Equal(t, [4]mgl32.Vec3{{1, 0, 0}, {0.5, 0, 0}, {0.5, 0, 0.5}, {1, 0, 0.5}}, p)
	center, _ := s.Vertex(face(t, s, fid).Vertices[2])
	assert.Equal(t, mgl32.Vec2{0.5, 0.5}, center.UV)

	var area float32
	for _, id := range s.ObjectFaces(obj) {
		assert.Equal(t, up, normal(t, s, id))
		area += quadArea(positions(t, s, id))
	}
	assert.InDelta(t, 1, area, 1e-6)
}

func TestSubdivideSharesMidpointsBetweenSelectedFaces(t *testing.T) {
	s, obj, f := weldedPair(t)
	require.NoError(t, (&Subdivide{Faces: faceRefs(obj, f[0], f[1]), InterpolateUVs: true}).Apply(s))
	assert.Equal(t, 8, s.FaceCount())
	assert.Equal(t, 15, s.VertexCount())
}

func TestSubdivideRepeatsTile(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)

	require.NoError(t, (&Subdivide{Faces: faceRefs(obj, fid)}).Apply(s))
	assert.Equal(t, 4, s.FaceCount())
	assert.Equal(t, 16, s.VertexCount())
	for _, id := range s.ObjectFaces(obj) {
		f := face(t, s, id)
		for k, vid := range f.Vertices {
			v, _ := s.Vertex(vid)
			assert.Equal(t, core.DefaultUVs()[k], v.UV)
		}
		assert.Equal(t, up, normal(t, s, id))
	}
}

func TestMirrorFacesAcrossCrosshair(t *testing.T) {
	s, obj := newScene(t)
	fid := addTile(t, s, obj, 0.5, 0.5)
	s.Crosshair = mgl32.Vec3{2, 1, 0}

	require.NoError(t, (&Mirror{Axis: 0, Level: editor.LevelFace, Refs: faceRefs(obj, fid)}).Apply(s))
	assert.Equal(t, mgl32.Vec3{3.5, 0, 0.5}, core.QuadCenter(positions(t, s, fid)))
	assert.Equal(t, up, normal(t, s, fid))

	require.NoError(t, (&Mirror{Axis: 1, Level: editor.LevelFace, Refs: faceRefs(obj, fid)}).Apply(s))
	assert.Equal(t, mgl32.Vec3{3.5, 2, 0.5}, core.QuadCenter(positions(t, s, fid)))
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, normal(t, s, fid))
}

func TestMirrorFaceLeavesNeighbourInPlace(t *testing.T) {
	s, obj, f := weldedPair(t)
	before := positions(t, s, f[1])
	s.Crosshair = mgl32.Vec3{}

	require.NoError(t, (&Mirror{Axis: 0, Level: editor.LevelFace, Refs: faceRefs(obj, f[0])}).Apply(s))
	assert.Equal(t, before, positions(t, s, f[1]))
	assert.Equal(t, [4]mgl32.Vec3{{-1, 0, 0}, {-1, 0, 1}, {0, 0, 1}, {0, 0, 0}}, positions(t, s, f[0]))
	assert.Equal(t, up, normal(t, s, f[0]))
	assert.Equal(t, up, normal(t, s, f[1]))

	assert.Equal(t, 8, s.VertexCount())
	for _, v := range face(t, s, f[0]).Vertices {
		assert.NotContains(t, face(t, s, f[1]).Vertices, v)
	}
}

func TestMirrorSelectedFacesStayWelded(t *testing.T) {
	s, obj, f := weldedPair(t)
	require.NoError(t, (&Mirror{Axis: 0, Level: editor.LevelFace, Refs: faceRefs(obj, f[0], f[1])}).Apply(s))
	assert.Equal(t, 6, s.VertexCount())
	a := face(t, s, f[0])
	assert.Len(t, s.FacesAdjacentToEdge(a.Vertices[0], a.Vertices[1]), 2)
}

func TestMirrorObjectMovesSharedVerticesOnce(t *testing.T) {
	s, obj, f := weldedPair(t)
	require.NoError(t, (&Mirror{Axis: 2, Level: editor.LevelObject, Refs: []editor.Ref{editor.ObjectRef(obj)}}).Apply(s))
	for _, id := range f {
		for _, p := range positions(t, s, id) {
			assert.LessOrEqual(t, p.Z(), float32(0))
		}
		assert.Equal(t, up, normal(t, s, id))
	}
	assert.Equal(t, 6, s.VertexCount())
}

func TestMirrorRejectsEdgeLevel(t *testing.T) {
	s, obj, _ := weldedPair(t)
	m := &Mirror{Axis: 0, Level: editor.LevelEdge, Refs: []editor.Ref{editor.ObjectRef(obj)}}
	assert.ErrorIs(t, m.Apply(s), core.ErrInvalidSelection)
	assert.ErrorIs(t, (&Mirror{Axis: 3, Level: editor.LevelFace}).Apply(s), core.ErrInvalidSelection)
}
