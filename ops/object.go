package ops

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// CreateObject moves faces out of their objects into a new one on Layer,
// or on the active layer when Layer is zero. The new object has the identity
// transform and the faces keep their world placement. Welds between moved
// faces are kept; vertices shared with faces left behind are copied.
type CreateObject struct {
	recorder
	Faces      []editor.Ref
	Layer      core.LayerID
	ObjectName string

	// Filled by the first Apply.
	Object  core.ObjectID
	Created []core.FaceID
}

func (c *CreateObject) Name() string { return "create object" }

func (c *CreateObject) Apply(s *core.Scene) error {
	return c.record(s, func() error {
		if err := c.create(s); err != nil {
			return fmt.Errorf("ops: create object: %w", err)
		}
		return nil
	})
}

func (c *CreateObject) create(s *core.Scene) error {
	faces, err := faceTargets(s, c.Faces)
	if err != nil {
		return err
	}
	lid := c.Layer
	if lid == 0 {
		lid = s.ActiveLayer
	}
	layer, ok := s.Layer(lid)
	if !ok {
		return fmt.Errorf("layer %d: %w", lid, core.ErrNotFound)
	}
	if !layer.Editable() {
		return fmt.Errorf("layer %q is hidden or locked: %w", layer.Name, core.ErrInvalidSelection)
	}

	first, _ := s.Face(faces[0])
	src, _ := s.Object(first.Object)
	name := c.ObjectName
	if name == "" {
		name = fmt.Sprintf("Object %d", s.ObjectCount()+1)
	}
	oid, err := s.AddObject(lid, name, src.TilesetID)
	if err != nil {
		return err
	}

	copies := make(map[core.VertexID]core.VertexID)
	created := make([]core.FaceID, 0, len(faces))
	for _, fid := range faces {
		f, _ := s.Face(fid)
		o, _ := s.Object(f.Object)
		var ids [4]core.VertexID
		for i, vid := range f.Vertices {
			nv, ok := copies[vid]
			if !ok {
				v, _ := s.Vertex(vid)
				v.Position = o.Transform.ToWorld(v.Position)
				if nv, err = s.AddVertex(oid, v); err != nil {
					return err
				}
				copies[vid] = nv
			}
			ids[i] = nv
		}
		nf, err := s.AddFaceFromVertices(oid, ids, f.Tile, f.Orientation)
		if err != nil {
			return err
		}
		if f.Hidden {
			if err := s.SetFaceHidden(nf, true); err != nil {
				return err
			}
		}
		created = append(created, nf)
	}
	for _, fid := range faces {
		if err := s.RemoveFace(fid); err != nil {
			return err
		}
	}
	c.Object, c.Created = oid, created
	return nil
}
