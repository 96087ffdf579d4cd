package ops

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// EraseFace removes faces. Objects left without faces stay in the scene.
type EraseFace struct {
	recorder
	Faces []editor.Ref
}

func (e *EraseFace) Name() string { return "erase" }

func (e *EraseFace) Apply(s *core.Scene) error {
	return e.record(s, func() error {
		faces, err := faceTargets(s, e.Faces)
		if err != nil {
			return fmt.Errorf("ops: erase: %w", err)
		}
		for _, fid := range faces {
			if err := s.RemoveFace(fid); err != nil {
				return fmt.Errorf("ops: erase: %w", err)
			}
		}
		return nil
	})
}

// DeleteSelection removes what a selection names: whole objects (with their
// instances) at object level, faces at face level, and every face touching a
// selected edge or vertex below that.
type DeleteSelection struct {
	recorder
	Level editor.Level
	Refs  []editor.Ref
}

func (d *DeleteSelection) Name() string { return "delete " + d.Level.String() + "s" }

func (d *DeleteSelection) Apply(s *core.Scene) error {
	return d.record(s, func() error {
		if err := d.delete(s); err != nil {
			return fmt.Errorf("ops: delete: %w", err)
		}
		return nil
	})
}

func (d *DeleteSelection) delete(s *core.Scene) error {
	if len(d.Refs) == 0 {
		return fmt.Errorf("nothing selected: %w", core.ErrInvalidSelection)
	}
	if d.Level == editor.LevelObject {
		for _, r := range d.Refs {
			if !s.ObjectEditable(r.Object) {
				return fmt.Errorf("object %d is not editable: %w", r.Object, core.ErrInvalidSelection)
			}
		}
		for _, r := range d.Refs {
			// Removing a source already removed its instances.
			if _, ok := s.Object(r.Object); !ok {
				continue
			}
			if err := s.RemoveObject(r.Object); err != nil {
				return err
			}
		}
		return nil
	}

	var faces []core.FaceID
	switch d.Level {
	case editor.LevelFace:
		var err error
		if faces, err = faceTargets(s, d.Refs); err != nil {
			return err
		}
	case editor.LevelEdge:
		for _, r := range d.Refs {
			if err := edgeTarget(s, r); err != nil {
				return err
			}
			faces = append(faces, s.FacesAdjacentToEdge(r.A, r.B)...)
		}
	case editor.LevelVertex:
		verts, err := vertexTargets(s, d.Refs)
		if err != nil {
			return err
		}
		for _, v := range verts {
			faces = append(faces, s.VertexFaces(v)...)
		}
	default:
		return fmt.Errorf("level %s: %w", d.Level, core.ErrInvalidSelection)
	}
	for _, fid := range faces {
		if _, ok := s.Face(fid); !ok {
			continue
		}
		if err := s.RemoveFace(fid); err != nil {
			return err
		}
	}
	return nil
}

// HideFaces hides faces from rendering and picking.
type HideFaces struct {
	recorder
	Faces []editor.Ref
}

func (h *HideFaces) Name() string { return "hide faces" }

func (h *HideFaces) Apply(s *core.Scene) error {
	return h.record(s, func() error {
		faces, err := faceTargets(s, h.Faces)
		if err != nil {
			return fmt.Errorf("ops: hide: %w", err)
		}
		for _, fid := range faces {
			if err := s.SetFaceHidden(fid, true); err != nil {
				return fmt.Errorf("ops: hide: %w", err)
			}
		}
		return nil
	})
}

// ShowAllFaces unhides every hidden face on editable layers.
type ShowAllFaces struct {
	recorder
}

func (h *ShowAllFaces) Name() string { return "show all faces" }

func (h *ShowAllFaces) Apply(s *core.Scene) error {
	return h.record(s, func() error {
		for _, oid := range s.Objects() {
			o, _ := s.Object(oid)
			if o.IsInstance() || !s.ObjectEditable(oid) {
				continue
			}
			for _, fid := range o.Faces {
				f, _ := s.Face(fid)
				if !f.Hidden {
					continue
				}
				if err := s.SetFaceHidden(fid, false); err != nil {
					return fmt.Errorf("ops: show all: %w", err)
				}
			}
		}
		return nil
	})
}
