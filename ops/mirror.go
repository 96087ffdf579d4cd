package ops

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// Mirror reflects selected faces, or whole objects, across the plane through
// the scene crosshair perpendicular to Axis (0 = X, 1 = Y, 2 = Z). Winding
// is reversed so the mirrored faces keep facing outward. Selected faces are
// first unwelded from unselected neighbours, which stay in place.
type Mirror struct {
	recorder
	Axis  int
	Level editor.Level
	Refs  []editor.Ref
}

func (m *Mirror) Name() string { return "mirror " + axisName(m.Axis) }

func axisName(axis int) string {
	switch axis {
	case 0:
		return "X"
	case 1:
		return "Y"
	case 2:
		return "Z"
	}
	return "?"
}

func (m *Mirror) Apply(s *core.Scene) error {
	return m.record(s, func() error {
		if err := m.mirror(s); err != nil {
			return fmt.Errorf("ops: mirror: %w", err)
		}
		return nil
	})
}

func (m *Mirror) mirror(s *core.Scene) error {
	if m.Axis < 0 || m.Axis > 2 {
		return fmt.Errorf("axis %d: %w", m.Axis, core.ErrInvalidSelection)
	}
	var faces []core.FaceID
	switch m.Level {
	case editor.LevelObject:
		if len(m.Refs) == 0 {
			return fmt.Errorf("nothing selected: %w", core.ErrInvalidSelection)
		}
		for _, r := range m.Refs {
			if err := checkSource(s, r.Object); err != nil {
				return err
			}
			faces = append(faces, s.ObjectFaces(r.Object)...)
		}
	case editor.LevelFace:
		var err error
		if faces, err = faceTargets(s, m.Refs); err != nil {
			return err
		}
		if err := detachFaces(s, faces); err != nil {
			return err
		}
	default:
		return fmt.Errorf("level %s: %w", m.Level, core.ErrInvalidSelection)
	}

	plane := s.Crosshair[m.Axis]
	moved := make(map[core.VertexID]struct{})
	for _, fid := range faces {
		f, _ := s.Face(fid)
		o, _ := s.Object(f.Object)
		for _, vid := range f.Vertices {
			if _, ok := moved[vid]; ok {
				continue
			}
			moved[vid] = struct{}{}
			v, _ := s.Vertex(vid)
			if err := s.SetVertexPosition(vid, reflect(o.Transform, v.Position, m.Axis, plane)); err != nil {
				return err
			}
		}
		w := f.Vertices
		if err := s.SetFaceVertices(fid, [4]core.VertexID{w[0], w[3], w[2], w[1]}); err != nil {
			return err
		}
	}
	return nil
}

// reflect mirrors a local point across the world plane x[axis] = plane.
func reflect(t core.Transform, p mgl32.Vec3, axis int, plane float32) mgl32.Vec3 {
	w := t.ToWorld(p)
	w[axis] = 2*plane - w[axis]
	return t.ToLocal(w)
}
