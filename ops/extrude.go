package ops

import (
	"fmt"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
)

// Extrude pushes each selected face along its normal by Distance and closes
// the gap: four side quads join the old and new boundary, and a cap with
// reversed winding is left at the old position. Each extruded face gains
// five faces.
type Extrude struct {
	recorder
	Faces    []editor.Ref
	Distance float32

	// Filled by the first Apply: side and cap faces created per input face.
	Created []core.FaceID
}

func (e *Extrude) Name() string { return "extrude" }

func (e *Extrude) Apply(s *core.Scene) error {
	return e.record(s, func() error {
		if err := e.extrude(s); err != nil {
			return fmt.Errorf("ops: extrude: %w", err)
		}
		return nil
	})
}

func (e *Extrude) extrude(s *core.Scene) error {
	if e.Distance == 0 {
		return fmt.Errorf("zero distance: %w", core.ErrDegenerateGeometry)
	}
	faces, err := faceTargets(s, e.Faces)
	if err != nil {
		return err
	}
	for _, fid := range faces {
		if n, _ := s.ComputeNormal(fid); n.LenSqr() == 0 {
			return fmt.Errorf("face %d has no normal: %w", fid, core.ErrDegenerateGeometry)
		}
	}

	var created []core.FaceID
	for _, fid := range faces {
		n, err := s.ComputeNormal(fid)
		if err != nil {
			return err
		}
		if err := detachFace(s, fid); err != nil {
			return err
		}
		f, _ := s.Face(fid)
		var base [4]core.Vertex
		for i, vid := range f.Vertices {
			base[i], _ = s.Vertex(vid)
		}

		offset := n.Mul(e.Distance)
		for i, vid := range f.Vertices {
			if err := s.SetVertexPosition(vid, base[i].Position.Add(offset)); err != nil {
				return err
			}
		}

		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			side := [4]core.Vertex{base[i], base[j], base[j], base[i]}
			side[2].Position = side[2].Position.Add(offset)
			side[3].Position = side[3].Position.Add(offset)
			for k := range side {
				side[k].UV = base[k].UV
			}
			sid, err := s.AddFace(f.Object, side, f.Tile, f.Orientation)
			if err != nil {
				return err
			}
			created = append(created, sid)
		}

		bottom := [4]core.Vertex{base[0], base[3], base[2], base[1]}
		cid, err := s.AddFace(f.Object, bottom, f.Tile, f.Orientation)
		if err != nil {
			return err
		}
		created = append(created, cid)
	}
	e.Created = created
	return nil
}
