package tilesmith

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
	"github.com/gekko3d/tilesmith/history"
	"github.com/gekko3d/tilesmith/render"
	"github.com/gekko3d/tilesmith/settings"
	"github.com/gekko3d/tilesmith/tileset"
)

var lookDown = mgl32.Vec3{0, -1, 0}

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(settings.Default(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func above(x, z float32) editor.Ray {
	return editor.NewRay(mgl32.Vec3{x, 10, z}, lookDown)
}

func TestPlaceStackAndExtrude(t *testing.T) {
	s := newSession(t)
	reg := tileset.NewRegistry()
	ts := reg.Add(tileset.Tileset{Name: "t", ImageWidth: 32, ImageHeight: 32, TileWidth: 16, TileHeight: 16})
	s.Tiles = reg
	s.Brush = editor.TileBrush{Tile: core.TileRef{Tileset: ts}}

	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	assert.Len(t, s.Scene.Layers(), 1)
	assert.Equal(t, 1, s.Scene.ObjectCount())
	assert.Equal(t, 1, s.Scene.FaceCount())
	assert.Equal(t, 4, s.Scene.VertexCount())

	obj := s.Scene.Objects()[0]
	first, ok := s.Scene.Face(s.Scene.ObjectFaces(obj)[0])
	require.True(t, ok)
	assert.Equal(t, core.TileRef{Tileset: ts}, first.Tile)
	want, err := reg.TileUVs(core.TileRef{Tileset: ts})
	require.NoError(t, err)
	for i, vid := range first.Vertices {
		v, _ := s.Scene.Vertex(vid)
		assert.Equal(t, want[i], v.UV)
	}

	// Clicking the existing tile stacks a new one a grid unit above it.
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	assert.Equal(t, 2, s.Scene.FaceCount())
	assert.Equal(t, 8, s.Scene.VertexCount())
	stacked, ok := s.Scene.Face(s.Scene.ObjectFaces(obj)[1])
	require.True(t, ok)
	for _, vid := range stacked.Vertices {
		assert.NotContains(t, first.Vertices, vid)
	}

	s.SetLevel(editor.LevelFace)
	hit, ok := s.Click(above(0.5, 0.5), false)
	require.True(t, ok)
	assert.Equal(t, float32(1), hit.Point.Y())
	top := hit.Ref.Face
	before := s.Scene.Snapshot(false)

	require.NoError(t, s.Do(Request{Op: OpExtrude, Distance: 1}))
	assert.Equal(t, 7, s.Scene.FaceCount())
	p, err := s.Scene.FacePositions(top)
	require.NoError(t, err)
	for _, c := range p {
		assert.Equal(t, float32(2), c.Y())
	}
	assert.True(t, s.Selection.Contains(editor.FaceRef(hit.Ref.Object, top)))

	require.NoError(t, s.Undo())
	assert.Equal(t, 2, s.Scene.FaceCount())
	assert.Equal(t, before, s.Scene.Snapshot(false))
}

func TestStrokeIsOneUndoStep(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.BeginStroke("draw"))
	for _, x := range []float32{0.5, 1.5, 2.5} {
		require.NoError(t, s.Place(above(x, 0.5), lookDown))
	}
	require.NoError(t, s.EndStroke())
	assert.Equal(t, 3, s.Scene.FaceCount())
	assert.Equal(t, 1, s.History.UndoLen())
	assert.Equal(t, "draw", s.History.UndoName())

	require.NoError(t, s.Undo())
	assert.Equal(t, 0, s.Scene.FaceCount())
	assert.Equal(t, 0, s.Scene.ObjectCount())

	require.NoError(t, s.BeginStroke("draw"))
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	require.NoError(t, s.CancelStroke())
	assert.Equal(t, 0, s.Scene.FaceCount())
	assert.Equal(t, 0, s.History.UndoLen())
}

func TestDoRejects(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.Do(Request{Op: OpExtrude}), core.ErrInvalidSelection)

	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	s.SetLevel(editor.LevelFace)
	_, ok := s.Click(above(0.5, 0.5), false)
	require.True(t, ok)
	assert.ErrorIs(t, s.Do(Request{Op: OpSplitEdge}), core.ErrInvalidSelection)
	assert.ErrorIs(t, s.Do(Request{Op: OpCreateInstance}), core.ErrInvalidSelection)
	assert.ErrorIs(t, s.Do(Request{Op: OpKind(99)}), core.ErrInvalidSelection)
	assert.Equal(t, 1, s.History.UndoLen())
}

func TestSplitAndUndoPrunesSelection(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))

	s.SetLevel(editor.LevelEdge)
	_, ok := s.Click(editor.NewRay(mgl32.Vec3{0.5, 10, 0.05}, lookDown), false)
	require.True(t, ok)
	require.NoError(t, s.Do(Request{Op: OpSplitEdge}))
	assert.Equal(t, 2, s.Scene.FaceCount())
	// The split edge no longer exists.
	assert.True(t, s.Selection.Empty())

	s.SetLevel(editor.LevelVertex)
	s.Selection.SelectAll(s.Scene)
	require.Equal(t, 6, s.Selection.Len())
	require.NoError(t, s.Undo())
	assert.Equal(t, 4, s.Selection.Len())
}

func TestInstanceThroughSession(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	src := s.Scene.Objects()[0]

	s.SetLevel(editor.LevelObject)
	_, ok := s.Click(above(0.5, 0.5), false)
	require.True(t, ok)
	require.NoError(t, s.Do(Request{Op: OpCreateInstance, Vector: mgl32.Vec3{0, 0, 5}}))

	require.Equal(t, 1, s.Selection.Len())
	inst := s.Selection.Refs()[0].Object
	o, ok := s.Scene.Object(inst)
	require.True(t, ok)
	assert.Equal(t, src, o.Source)
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, o.Transform.Position)

	// Picking the instance selects it, not the source.
	_, ok = s.Click(above(0.5, 5.5), false)
	require.True(t, ok)
	assert.Equal(t, []core.ObjectID{inst}, s.Selection.Objects())

	require.NoError(t, s.Do(Request{Op: OpDeconstructInstance}))
	o, _ = s.Scene.Object(inst)
	assert.False(t, o.IsInstance())
	assert.Equal(t, 2, s.Scene.FaceCount())
}

func TestPaintUsesDefaultColor(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	s.SetLevel(editor.LevelObject)
	s.Selection.SelectAll(s.Scene)

	require.NoError(t, s.Do(Request{Op: OpPaint}))
	for _, vid := range s.Scene.ObjectVertices(s.Scene.Objects()[0]) {
		v, _ := s.Scene.Vertex(vid)
		assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, v.Color)
	}
}

func TestApplySettings(t *testing.T) {
	s := newSession(t)
	cfg := settings.Default()
	cfg.Grid.Presets = []float32{0.5, 1}
	cfg.Grid.Default = 0
	cfg.Edit.UndoLimit = 2
	cfg.Log.Debug = true

	require.NoError(t, s.ApplySettings(cfg))
	assert.Equal(t, 2, s.History.Limit())
	assert.Equal(t, 0, s.Scene.GridIndex)
	assert.Equal(t, float32(0.5), s.Scene.GridSize())

	bad := cfg
	bad.Edit.UndoLimit = 0
	assert.ErrorIs(t, s.ApplySettings(bad), settings.ErrInvalid)
	assert.Equal(t, 2, s.History.Limit())
}

func TestPollSettings(t *testing.T) {
	s := newSession(t)
	assert.False(t, s.PollSettings())

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, settings.Default().Save(path))
	require.NoError(t, s.WatchSettings(path))
	require.NoError(t, os.WriteFile(path, []byte("edit:\n  undo_limit: 5\n"), 0o644))

	require.Eventually(t, s.PollSettings, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 5, s.History.Limit())
	assert.Equal(t, 5, s.Settings.Edit.UndoLimit)
}

func TestSnapshotAndLoad(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	assert.True(t, s.History.Dirty())

	snap := s.Snapshot()
	assert.False(t, s.History.Dirty())

	require.NoError(t, s.Place(above(1.5, 0.5), lookDown))
	require.NoError(t, s.Load(snap))
	assert.Equal(t, 1, s.Scene.FaceCount())
	assert.Same(t, s.Scene, s.History.Scene())
	assert.False(t, s.History.CanUndo())
	assert.ErrorIs(t, s.Undo(), history.ErrNothingToUndo)
}

func TestFillRect(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.FillRect(above(0.5, 0.5), above(2.5, 1.5), lookDown))
	assert.Equal(t, 6, s.Scene.FaceCount())
	assert.Equal(t, 1, s.History.UndoLen())
	assert.Equal(t, "place 6 tiles", s.History.UndoName())

	require.NoError(t, s.Undo())
	assert.Equal(t, 0, s.Scene.FaceCount())

	cfg := s.Settings
	cfg.Draw.MaxFill = 4
	require.NoError(t, s.ApplySettings(cfg))
	assert.ErrorIs(t, s.FillRect(above(0.5, 0.5), above(2.5, 1.5), lookDown), core.ErrInvalidSelection)
	assert.Equal(t, 0, s.Scene.FaceCount())
}

func TestPlaceShapeStacks(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.PlaceShape(above(0.5, 0.5), lookDown, editor.ShapeBox))
	assert.Equal(t, 6, s.Scene.FaceCount())
	assert.Equal(t, 24, s.Scene.VertexCount())

	// The second box lands on top of the first.
	require.NoError(t, s.PlaceShape(above(0.5, 0.5), lookDown, editor.ShapeBox))
	assert.Equal(t, 12, s.Scene.FaceCount())
	hit, ok := editor.Pick(s.Scene, above(0.5, 0.5), editor.PickOptions{Level: editor.LevelFace})
	require.True(t, ok)
	assert.InDelta(t, 2, hit.Point.Y(), 1e-5)

	require.NoError(t, s.PlaceShape(above(3.5, 0.5), lookDown, editor.ShapeWedge))
	assert.Equal(t, 17, s.Scene.FaceCount())
	assert.Equal(t, 3, s.History.UndoLen())
}

func TestSelectionCommands(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	require.NoError(t, s.Place(above(1.5, 0.5), lookDown))
	s.SetLevel(editor.LevelFace)

	s.SelectAll()
	assert.Equal(t, 2, s.Selection.Len())
	hit, ok := s.Click(above(0.5, 0.5), false)
	require.True(t, ok)
	s.InvertSelection()
	require.Equal(t, 1, s.Selection.Len())
	assert.False(t, s.Selection.Contains(hit.Ref))
	s.DeselectAll()
	assert.True(t, s.Selection.Empty())
}

func TestCreateObjectThroughSession(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))
	require.NoError(t, s.Place(above(1.5, 0.5), lookDown))
	src := s.Scene.Objects()[0]

	s.SetLevel(editor.LevelFace)
	_, ok := s.Click(above(1.5, 0.5), false)
	require.True(t, ok)
	require.NoError(t, s.Do(Request{Op: OpCreateObject}))
	assert.Equal(t, 2, s.Scene.ObjectCount())
	assert.Len(t, s.Scene.ObjectFaces(src), 1)
	require.Equal(t, 1, s.Selection.Len())
	moved := s.Selection.Refs()[0]
	assert.NotEqual(t, src, moved.Object)

	require.NoError(t, s.Undo())
	assert.Equal(t, 1, s.Scene.ObjectCount())
	assert.Len(t, s.Scene.ObjectFaces(src), 2)
	assert.True(t, s.Selection.Empty())
}

func TestSyncMeshes(t *testing.T) {
	s := newSession(t)
	cfg := s.Settings
	cfg.Draw.SmoothNormals = true
	require.NoError(t, s.ApplySettings(cfg))
	require.NoError(t, s.Place(above(0.5, 0.5), lookDown))

	meshes := map[core.ObjectID]*render.Mesh{}
	upload := func(id core.ObjectID, m *render.Mesh) error {
		meshes[id] = m
		return nil
	}
	require.NoError(t, s.SyncMeshes(upload))
	require.Len(t, meshes, 1)
	for _, m := range meshes {
		require.NotNil(t, m)
		assert.Equal(t, 1, m.QuadCount())
		for _, v := range m.Vertices {
			assert.Equal(t, [3]float32{0, 1, 0}, v.Normal)
		}
	}

	clear(meshes)
	require.NoError(t, s.SyncMeshes(upload))
	assert.Empty(t, meshes)
}
