package ops

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

type TransformKind int

const (
	Translate TransformKind = iota
	Rotate
	Scale
)

func (k TransformKind) String() string {
	switch k {
	case Translate:
		return "translate"
	case Rotate:
		return "rotate"
	case Scale:
		return "scale"
	}
	return "transform"
}

// Transform moves, rotates or scales the selection about the scene
// crosshair. Face, edge and vertex selections move vertex positions; object
// selections change the object transforms. With Snap set, translations of
// element selections are quantized to the grid before they are applied.
type Transform struct {
	recorder
	Level editor.Level
	Refs  []editor.Ref
	Kind  TransformKind

	Delta  mgl32.Vec3 // Translate
	Axis   mgl32.Vec3 // Rotate
	Angle  float32    // Rotate, radians
	Factor mgl32.Vec3 // Scale
	Snap   bool
}

func (t *Transform) Name() string { return t.Kind.String() }

func (t *Transform) Apply(s *core.Scene) error {
	return t.record(s, func() error {
		if err := t.transform(s); err != nil {
			return fmt.Errorf("ops: %s: %w", t.Kind, err)
		}
		return nil
	})
}

// worldMap returns the world-space function the op applies and, for Rotate,
// the rotation it applies about the crosshair. Other kinds get the identity.
func (t *Transform) worldMap(s *core.Scene) (func(mgl32.Vec3) mgl32.Vec3, mgl32.Quat, error) {
	pivot := s.Crosshair
	rot := mgl32.QuatIdent()
	switch t.Kind {
	case Translate:
		d := t.Delta
		if t.Snap && t.Level != editor.LevelObject {
			d = editor.SnapDelta(d, s.GridSize())
		}
		return func(p mgl32.Vec3) mgl32.Vec3 { return p.Add(d) }, rot, nil
	case Rotate:
		if t.Axis.LenSqr() == 0 {
			return nil, rot, fmt.Errorf("zero rotation axis: %w", core.ErrInvalidSelection)
		}
		rot = mgl32.QuatRotate(t.Angle, t.Axis.Normalize())
		return func(p mgl32.Vec3) mgl32.Vec3 { return rot.Rotate(p.Sub(pivot)).Add(pivot) }, rot, nil
	case Scale:
		f := t.Factor
		if f.X() == 0 || f.Y() == 0 || f.Z() == 0 {
			return nil, rot, fmt.Errorf("zero scale factor %v: %w", f, core.ErrDegenerateGeometry)
		}
		return func(p mgl32.Vec3) mgl32.Vec3 {
			d := p.Sub(pivot)
			return pivot.Add(mgl32.Vec3{d.X() * f.X(), d.Y() * f.Y(), d.Z() * f.Z()})
		}, rot, nil
	}
	return nil, rot, fmt.Errorf("kind %d: %w", t.Kind, core.ErrInvalidSelection)
}

func (t *Transform) transform(s *core.Scene) error {
	apply, rot, err := t.worldMap(s)
	if err != nil {
		return err
	}
	if t.Level == editor.LevelObject {
		return t.transformObjects(s, apply, rot)
	}

	byObj, order, err := refVertices(s, t.Level, t.Refs)
	if err != nil {
		return err
	}
	for _, oid := range order {
		o, _ := s.Object(oid)
		for _, vid := range byObj[oid] {
			v, _ := s.Vertex(vid)
			p := o.Transform.ToLocal(apply(o.Transform.ToWorld(v.Position)))
			if err := s.SetVertexPosition(vid, p); err != nil {
				return err
			}
		}
		for _, fid := range s.ObjectFaces(oid) {
			p, err := s.FacePositions(fid)
			if err != nil {
				return err
			}
			if degenerate(p) {
				return fmt.Errorf("face %d collapses: %w", fid, core.ErrDegenerateGeometry)
			}
		}
	}
	return nil
}

func (t *Transform) transformObjects(s *core.Scene, apply func(mgl32.Vec3) mgl32.Vec3, rot mgl32.Quat) error {
	if len(t.Refs) == 0 {
		return fmt.Errorf("nothing selected: %w", core.ErrInvalidSelection)
	}
	done := make(map[core.ObjectID]struct{})
	for _, r := range t.Refs {
		if _, ok := done[r.Object]; ok {
			continue
		}
		done[r.Object] = struct{}{}
		o, ok := s.Object(r.Object)
		if !ok {
			return fmt.Errorf("object %d: %w", r.Object, core.ErrDanglingReference)
		}
		if !s.ObjectEditable(r.Object) {
			return fmt.Errorf("object %d is not editable: %w", r.Object, core.ErrInvalidSelection)
		}
		tr := o.Transform
		tr.Position = apply(tr.Position)
		switch t.Kind {
		case Rotate:
			tr.Rotation = rot.Mul(tr.Rotation).Normalize()
		case Scale:
			tr.Scale = mgl32.Vec3{tr.Scale.X() * t.Factor.X(), tr.Scale.Y() * t.Factor.Y(), tr.Scale.Z() * t.Factor.Z()}
		}
		if err := s.SetObjectTransform(r.Object, tr); err != nil {
			return err
		}
	}
	return nil
}
