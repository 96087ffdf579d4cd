package ops

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

// CreateInstance adds an object drawing the geometry of Object with its own
// transform. Instancing an instance binds to the original source.
type CreateInstance struct {
	recorder
	Object core.ObjectID
	// Offset is added to the copied transform's position.
	Offset mgl32.Vec3

	// Instance is the created object, set by the first Apply.
	Instance core.ObjectID
}

func (c *CreateInstance) Name() string { return "create instance" }

func (c *CreateInstance) Apply(s *core.Scene) error {
	return c.record(s, func() error {
		o, ok := s.Object(c.Object)
		if !ok {
			return fmt.Errorf("ops: create instance: object %d: %w", c.Object, core.ErrDanglingReference)
		}
		if !s.ObjectEditable(c.Object) {
			return fmt.Errorf("ops: create instance: object %d is not editable: %w", c.Object, core.ErrInvalidSelection)
		}
		t := o.Transform
		t.Position = t.Position.Add(c.Offset)
		id, err := s.AddInstance(c.Object, o.Layer, o.Name+" instance", t)
		if err != nil {
			return fmt.Errorf("ops: create instance: %w", err)
		}
		c.Instance = id
		return nil
	})
}

// DeconstructInstance turns an instance into a source object holding its own
// copy of the shared geometry. Welded vertices stay welded in the copy.
type DeconstructInstance struct {
	recorder
	Instance core.ObjectID
}

func (d *DeconstructInstance) Name() string { return "deconstruct instance" }

func (d *DeconstructInstance) Apply(s *core.Scene) error {
	return d.record(s, func() error {
		if err := d.deconstruct(s); err != nil {
			return fmt.Errorf("ops: deconstruct instance: %w", err)
		}
		return nil
	})
}

func (d *DeconstructInstance) deconstruct(s *core.Scene) error {
	o, ok := s.Object(d.Instance)
	if !ok {
		return fmt.Errorf("object %d: %w", d.Instance, core.ErrDanglingReference)
	}
	if !o.IsInstance() {
		return fmt.Errorf("object %d is not an instance: %w", d.Instance, core.ErrInvalidSelection)
	}
	if !s.ObjectEditable(d.Instance) {
		return fmt.Errorf("object %d is not editable: %w", d.Instance, core.ErrInvalidSelection)
	}
	src, err := s.GeometryOwner(d.Instance)
	if err != nil {
		return err
	}
	faces := s.ObjectFaces(src)
	if err := s.SetObjectSource(d.Instance, 0); err != nil {
		return err
	}

	copies := make(map[core.VertexID]core.VertexID)
	for _, fid := range faces {
		f, _ := s.Face(fid)
		var ids [4]core.VertexID
		for i, vid := range f.Vertices {
			if id, ok := copies[vid]; ok {
				ids[i] = id
				continue
			}
			v, _ := s.Vertex(vid)
			id, err := s.AddVertex(d.Instance, v)
			if err != nil {
				return err
			}
			copies[vid] = id
			ids[i] = id
		}
		nf, err := s.AddFaceFromVertices(d.Instance, ids, f.Tile, f.Orientation)
		if err != nil {
			return err
		}
		if f.Hidden {
			if err := s.SetFaceHidden(nf, true); err != nil {
				return err
			}
		}
	}
	return nil
}
