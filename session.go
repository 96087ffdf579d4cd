// Package tilesmith is the scene-editing engine of a tile-based 3D modeler.
// A Session ties the mesh model, the selection, the undo history and the
// user settings together and turns input-layer requests into edit commands.
package tilesmith

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
	"github.com/gekko3d/tilesmith/history"
	"github.com/gekko3d/tilesmith/ops"
	"github.com/gekko3d/tilesmith/render"
	"github.com/gekko3d/tilesmith/settings"
	"github.com/gekko3d/tilesmith/tileset"
)

// OpKind names an edit the input layer can request on the current
// selection.
type OpKind int

const (
	OpExtrude OpKind = iota
	OpSplitEdge
	OpCollapseEdge
	OpMergeVertices
	OpSubdivide
	OpMirror
	OpRetile
	OpFlipNormals
	OpManipulateUVs
	OpPaint
	OpCreateInstance
	OpDeconstructInstance
	OpTranslate
	OpRotate
	OpScale
	OpErase
	OpDelete
	OpHide
	OpShowAll
	OpCreateObject
)

var opNames = [...]string{
	OpExtrude:             "extrude",
	OpSplitEdge:           "split edge",
	OpCollapseEdge:        "collapse edge",
	OpMergeVertices:       "merge vertices",
	OpSubdivide:           "subdivide",
	OpMirror:              "mirror",
	OpRetile:              "retile",
	OpFlipNormals:         "flip normals",
	OpManipulateUVs:       "manipulate UVs",
	OpPaint:               "paint",
	OpCreateInstance:      "create instance",
	OpDeconstructInstance: "deconstruct instance",
	OpTranslate:           "translate",
	OpRotate:              "rotate",
	OpScale:               "scale",
	OpErase:               "erase",
	OpDelete:              "delete",
	OpHide:                "hide",
	OpShowAll:             "show all",
	OpCreateObject:        "create object",
}

func (k OpKind) String() string {
	if k >= 0 && int(k) < len(opNames) {
		return opNames[k]
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Request carries the parameters of one edit. Fields an op does not use are
// ignored; zero Distance, Tolerance and Color fall back to the settings.
type Request struct {
	Op OpKind

	Distance  float32    // extrude
	Tolerance float32    // merge vertices
	Axis      int        // mirror: 0 = X, 1 = Y, 2 = Z
	Vector    mgl32.Vec3 // translate delta, rotate axis, scale factor, instance offset
	Angle     float32    // rotate, radians
	Change    core.Orientation
	Color     mgl32.Vec4
}

type Session struct {
	Scene     *core.Scene
	Selection *editor.Selection
	History   *history.Engine
	Settings  settings.Settings
	Logger    Logger
	Tiles     tileset.Provider
	Brush     editor.TileBrush

	watcher *settings.Watcher
}

// NewSession starts an empty scene. A nil logger discards output and a nil
// tile provider maps every tile to the whole texture.
func NewSession(cfg settings.Settings, logger Logger, tiles tileset.Provider) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	logger.SetDebug(cfg.Log.Debug)

	scene := core.NewScene()
	scene.GridPresets = slices.Clone(cfg.Grid.Presets)
	scene.GridIndex = cfg.Grid.Default
	return &Session{
		Scene:     scene,
		Selection: editor.NewSelection(),
		History:   history.NewEngine(scene, cfg.Edit.UndoLimit, logger),
		Settings:  cfg,
		Logger:    logger,
		Tiles:     tiles,
	}, nil
}

func (s *Session) pickOptions(level editor.Level) editor.PickOptions {
	return editor.PickOptions{
		Level:         level,
		Epsilon:       s.Settings.Pick.Epsilon,
		CullBackfaces: s.Settings.Pick.CullBackfaces,
	}
}

// Click picks at the selection level and updates the selection. A miss
// clears the selection unless additive.
func (s *Session) Click(ray editor.Ray, additive bool) (editor.Hit, bool) {
	hit, ok := editor.Pick(s.Scene, ray, s.pickOptions(s.Selection.Level()))
	if !ok {
		if !additive {
			s.Selection.Clear()
		}
		return hit, false
	}
	s.Selection.Click(hit.Ref, additive)
	return hit, true
}

// Place draws the brush tile under the ray: next to the face it hits, or on
// the placement plane facing the camera. Inside a stroke, a cell that
// already holds the tile is skipped silently.
func (s *Session) Place(ray editor.Ray, cameraForward mgl32.Vec3) error {
	var hit *editor.Hit
	if h, ok := editor.Pick(s.Scene, ray, s.pickOptions(editor.LevelFace)); ok {
		hit = &h
	}
	pl, err := editor.Resolve(s.Scene, ray, hit, editor.PlacementNormal(cameraForward), s.Brush, s.Tiles)
	if err != nil {
		return err
	}
	err = s.execute(&ops.PlaceTiles{Placements: []editor.Placement{pl}})
	if errors.Is(err, ops.ErrNoChange) && s.History.InGesture() {
		return nil
	}
	return err
}

// FillRect covers the grid rectangle between the cells under from and to
// with brush tiles, on the plane the from click resolves to.
func (s *Session) FillRect(from, to editor.Ray, cameraForward mgl32.Vec3) error {
	var hit *editor.Hit
	if h, ok := editor.Pick(s.Scene, from, s.pickOptions(editor.LevelFace)); ok {
		hit = &h
	}
	normal := editor.PlacementNormal(cameraForward)
	start, err := editor.Resolve(s.Scene, from, hit, normal, s.Brush, s.Tiles)
	if err != nil {
		return err
	}
	// The far corner lies on the start plane, not on whatever to hits.
	end := start
	if t, ok := to.IntersectPlane(start.Center, start.Normal); ok {
		axis, _ := editor.DominantAxis(start.Normal)
		end.Center = editor.CellCenter(to.At(t), axis, s.Scene.GridSize())
	}
	pls, err := editor.RectFill(s.Scene, start, end, s.Settings.Draw.MaxFill)
	if err != nil {
		return err
	}
	return s.execute(&ops.PlaceTiles{Placements: pls})
}

// PlaceShape draws a one-cell box or wedge under the ray, resting on the face
// it hits or on the placement plane.
func (s *Session) PlaceShape(ray editor.Ray, cameraForward mgl32.Vec3, shape editor.Shape) error {
	var hit *editor.Hit
	if h, ok := editor.Pick(s.Scene, ray, s.pickOptions(editor.LevelFace)); ok {
		hit = &h
	}
	pls, err := editor.ResolveShape(s.Scene, ray, hit, editor.PlacementNormal(cameraForward), shape, s.Brush, s.Tiles)
	if err != nil {
		return err
	}
	err = s.execute(&ops.PlaceTiles{Placements: pls})
	if errors.Is(err, ops.ErrNoChange) && s.History.InGesture() {
		return nil
	}
	return err
}

// BeginStroke groups the following edits, e.g. a draw drag, into one undo
// step.
func (s *Session) BeginStroke(name string) error { return s.History.BeginGesture(name) }

func (s *Session) EndStroke() error {
	_, err := s.History.EndGesture()
	return err
}

func (s *Session) CancelStroke() error {
	if err := s.History.CancelGesture(); err != nil {
		return err
	}
	s.Selection.Prune(s.Scene)
	return nil
}

// Do runs req against the current selection.
func (s *Session) Do(req Request) error {
	cmd, err := s.command(req)
	if err != nil {
		s.Logger.Warnf("%s: %v", req.Op, err)
		return err
	}
	if err := s.execute(cmd); err != nil {
		return err
	}
	switch c := cmd.(type) {
	case *ops.CreateObject:
		switch s.Selection.Level() {
		case editor.LevelObject:
			s.Selection.Set([]editor.Ref{editor.ObjectRef(c.Object)})
		case editor.LevelFace:
			refs := make([]editor.Ref, len(c.Created))
			for i, fid := range c.Created {
				refs[i] = editor.FaceRef(c.Object, fid)
			}
			s.Selection.Set(refs)
		}
	case *ops.CreateInstance:
		s.Selection.Set([]editor.Ref{editor.ObjectRef(c.Instance)})
	case *history.Group:
		if req.Op == OpCreateInstance {
			var refs []editor.Ref
			for _, child := range c.Commands {
				refs = append(refs, editor.ObjectRef(child.(*ops.CreateInstance).Instance))
			}
			s.Selection.Set(refs)
		}
	}
	return nil
}

func (s *Session) execute(cmd history.Command) error {
	err := s.History.Execute(cmd)
	s.Selection.Prune(s.Scene)
	return err
}

func (s *Session) command(req Request) (history.Command, error) {
	sel := s.Selection
	level, refs := sel.Level(), sel.Refs()
	if len(refs) == 0 && req.Op != OpShowAll {
		return nil, fmt.Errorf("tilesmith: %s: nothing selected: %w", req.Op, core.ErrInvalidSelection)
	}
	cfg := s.Settings.Edit

	switch req.Op {
	case OpExtrude:
		d := req.Distance
		if d == 0 {
			d = cfg.ExtrudeDistance
		}
		return &ops.Extrude{Faces: sel.ImpliedFaces(s.Scene), Distance: d}, nil
	case OpSplitEdge, OpCollapseEdge:
		if len(sel.Edges()) != 1 {
			return nil, fmt.Errorf("tilesmith: %s: select exactly one edge: %w", req.Op, core.ErrInvalidSelection)
		}
		if req.Op == OpSplitEdge {
			return &ops.SplitEdge{Edge: refs[0]}, nil
		}
		return &ops.CollapseEdge{Edge: refs[0]}, nil
	case OpMergeVertices:
		tol := req.Tolerance
		if tol == 0 {
			tol = cfg.MergeDistance
		}
		return &ops.MergeVertices{
			Vertices:     sel.ImpliedVertices(s.Scene),
			Tolerance:    tol,
			MinTolerance: cfg.MinMergeDistance,
			MaxTolerance: cfg.MaxMergeDistance,
		}, nil
	case OpSubdivide:
		return &ops.Subdivide{Faces: sel.ImpliedFaces(s.Scene), InterpolateUVs: cfg.AutoFlattenUVs}, nil
	case OpMirror:
		return &ops.Mirror{Axis: req.Axis, Level: level, Refs: refs}, nil
	case OpRetile:
		return &ops.Retile{Faces: sel.ImpliedFaces(s.Scene), Tile: s.Brush.Tile, Tiles: s.Tiles}, nil
	case OpFlipNormals:
		return &ops.FlipNormals{Faces: sel.ImpliedFaces(s.Scene)}, nil
	case OpManipulateUVs:
		return &ops.ManipulateUVs{Faces: sel.ImpliedFaces(s.Scene), Change: req.Change}, nil
	case OpPaint:
		c := req.Color
		if c == (mgl32.Vec4{}) {
			c = mgl32.Vec4(s.Settings.Draw.PaintColor)
		}
		return &ops.PaintColor{Level: level, Refs: refs, Color: c}, nil
	case OpCreateInstance, OpDeconstructInstance:
		return s.perObject(req)
	case OpTranslate:
		return &ops.Transform{Level: level, Refs: refs, Kind: ops.Translate, Delta: req.Vector, Snap: s.Settings.Grid.Snap}, nil
	case OpRotate:
		return &ops.Transform{Level: level, Refs: refs, Kind: ops.Rotate, Axis: req.Vector, Angle: req.Angle}, nil
	case OpScale:
		return &ops.Transform{Level: level, Refs: refs, Kind: ops.Scale, Factor: req.Vector}, nil
	case OpErase:
		return &ops.EraseFace{Faces: sel.ImpliedFaces(s.Scene)}, nil
	case OpDelete:
		return &ops.DeleteSelection{Level: level, Refs: refs}, nil
	case OpHide:
		return &ops.HideFaces{Faces: sel.ImpliedFaces(s.Scene)}, nil
	case OpShowAll:
		return &ops.ShowAllFaces{}, nil
	case OpCreateObject:
		return &ops.CreateObject{Faces: sel.ImpliedFaces(s.Scene), Layer: s.Scene.ActiveLayer}, nil
	}
	return nil, fmt.Errorf("tilesmith: %s: %w", req.Op, core.ErrInvalidSelection)
}

// perObject builds one instance command per selected object, grouped when
// there are several.
func (s *Session) perObject(req Request) (history.Command, error) {
	if s.Selection.Level() != editor.LevelObject {
		return nil, fmt.Errorf("tilesmith: %s: needs object selection: %w", req.Op, core.ErrInvalidSelection)
	}
	var cmds []history.Command
	for _, oid := range s.Selection.Objects() {
		if req.Op == OpCreateInstance {
			cmds = append(cmds, &ops.CreateInstance{Object: oid, Offset: req.Vector})
		} else {
			cmds = append(cmds, &ops.DeconstructInstance{Instance: oid})
		}
	}
	if len(cmds) == 1 {
		return cmds[0], nil
	}
	return &history.Group{Label: req.Op.String(), Commands: cmds}, nil
}

func (s *Session) Undo() error {
	err := s.History.Undo()
	s.Selection.Prune(s.Scene)
	return err
}

func (s *Session) Redo() error {
	err := s.History.Redo()
	s.Selection.Prune(s.Scene)
	return err
}

// SetLevel switches the selection granularity, clearing the selection.
func (s *Session) SetLevel(l editor.Level) { s.Selection.SetLevel(l) }

func (s *Session) SelectAll()       { s.Selection.SelectAll(s.Scene) }
func (s *Session) DeselectAll()     { s.Selection.Clear() }
func (s *Session) InvertSelection() { s.Selection.Invert(s.Scene) }

// SyncMeshes hands the render buffers of every changed object to upload,
// shaded as the draw settings ask.
func (s *Session) SyncMeshes(upload func(id core.ObjectID, m *render.Mesh) error) error {
	opts := render.Options{SmoothNormals: s.Settings.Draw.SmoothNormals}
	return opts.Sync(s.Scene, upload)
}

// ApplySettings takes new settings into use. The grid keeps its current
// preset when the new list still has it.
func (s *Session) ApplySettings(cfg settings.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.Settings = cfg
	s.History.SetLimit(cfg.Edit.UndoLimit)
	s.Scene.GridPresets = slices.Clone(cfg.Grid.Presets)
	if s.Scene.GridIndex < 0 || s.Scene.GridIndex >= len(cfg.Grid.Presets) {
		s.Scene.GridIndex = cfg.Grid.Default
	}
	s.Logger.SetDebug(cfg.Log.Debug)
	return nil
}

// WatchSettings reloads the settings file at path whenever it changes.
// Reloads are picked up by PollSettings.
func (s *Session) WatchSettings(path string) error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	w, err := settings.Watch(path)
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// PollSettings applies a pending reload without blocking and reports
// whether the settings changed.
func (s *Session) PollSettings() bool {
	if s.watcher == nil {
		return false
	}
	select {
	case cfg, ok := <-s.watcher.Updates:
		if !ok {
			return false
		}
		if err := s.ApplySettings(cfg); err != nil {
			s.Logger.Warnf("settings: %v", err)
			return false
		}
		s.Logger.Infof("settings reloaded")
		return true
	case err, ok := <-s.watcher.Errors:
		if ok {
			s.Logger.Warnf("settings: %v", err)
		}
	default:
	}
	return false
}

// Snapshot captures the scene for saving and marks the history saved.
func (s *Session) Snapshot() core.Snapshot {
	s.History.MarkSaved()
	return s.Scene.Snapshot(false)
}

// Export captures the scene with instances flattened.
func (s *Session) Export() core.Snapshot { return s.Scene.Snapshot(true) }

// Load replaces the scene. History and selection start over.
func (s *Session) Load(snap core.Snapshot) error {
	scene, err := core.FromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("tilesmith: load: %w", err)
	}
	s.Scene = scene
	s.History.Reset(scene)
	s.Selection.Clear()
	return nil
}

func (s *Session) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
