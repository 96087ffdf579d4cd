package ops

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/editor"
	"github.com/gekko3d/tilesmith/tileset"
)

// Retile assigns the brush tile to the selected faces. Each face keeps its
// own rotation/flip; only the tile rectangle changes. Vertices shared with
// unselected faces are split off first so their UVs stay put. Geometry is
// untouched.
type Retile struct {
	recorder
	Faces []editor.Ref
	Tile  core.TileRef
	Tiles tileset.Provider
}

func (r *Retile) Name() string { return "retile" }

func (r *Retile) Apply(s *core.Scene) error {
	return r.record(s, func() error {
		if err := r.retile(s); err != nil {
			return fmt.Errorf("ops: retile: %w", err)
		}
		return nil
	})
}

func (r *Retile) retile(s *core.Scene) error {
	faces, err := faceTargets(s, r.Faces)
	if err != nil {
		return err
	}
	base := core.DefaultUVs()
	if r.Tiles != nil {
		if base, err = r.Tiles.TileUVs(r.Tile); err != nil {
			return err
		}
	}
	for _, fid := range faces {
		f, _ := s.Face(fid)
		if err := writeFaceUVs(s, fid, f.Orientation.Apply(base)); err != nil {
			return err
		}
		if err := s.SetFaceTile(fid, r.Tile, f.Orientation); err != nil {
			return err
		}
	}
	return nil
}

// writeFaceUVs sets per-slot UVs on a face after detaching shared vertices.
func writeFaceUVs(s *core.Scene, fid core.FaceID, uvs [4]mgl32.Vec2) error {
	if err := detachFace(s, fid); err != nil {
		return err
	}
	f, _ := s.Face(fid)
	for i, vid := range f.Vertices {
		if err := s.SetVertexUV(vid, uvs[i]); err != nil {
			return err
		}
	}
	return nil
}

// FlipNormals reverses the winding of the selected faces.
type FlipNormals struct {
	recorder
	Faces []editor.Ref
}

func (f *FlipNormals) Name() string { return "flip normals" }

func (f *FlipNormals) Apply(s *core.Scene) error {
	return f.record(s, func() error {
		faces, err := faceTargets(s, f.Faces)
		if err != nil {
			return fmt.Errorf("ops: flip normals: %w", err)
		}
		for _, fid := range faces {
			face, _ := s.Face(fid)
			w := face.Vertices
			if err := s.SetFaceVertices(fid, [4]core.VertexID{w[0], w[3], w[2], w[1]}); err != nil {
				return fmt.Errorf("ops: flip normals: %w", err)
			}
		}
		return nil
	})
}

// ManipulateUVs rotates and flips the UVs already on the selected faces. The
// face orientation is updated to the combined rotation/flip.
type ManipulateUVs struct {
	recorder
	Faces  []editor.Ref
	Change core.Orientation
}

func (m *ManipulateUVs) Name() string { return "manipulate UVs" }

func (m *ManipulateUVs) Apply(s *core.Scene) error {
	return m.record(s, func() error {
		if m.Change == (core.Orientation{}) {
			return fmt.Errorf("ops: manipulate UVs: %w", ErrNoChange)
		}
		faces, err := faceTargets(s, m.Faces)
		if err != nil {
			return fmt.Errorf("ops: manipulate UVs: %w", err)
		}
		for _, fid := range faces {
			f, _ := s.Face(fid)
			var uvs [4]mgl32.Vec2
			for i, vid := range f.Vertices {
				v, _ := s.Vertex(vid)
				uvs[i] = v.UV
			}
			if err := writeFaceUVs(s, fid, m.Change.Apply(uvs)); err != nil {
				return fmt.Errorf("ops: manipulate UVs: %w", err)
			}
			if err := s.SetFaceTile(fid, f.Tile, ComposeOrientation(f.Orientation, m.Change)); err != nil {
				return fmt.Errorf("ops: manipulate UVs: %w", err)
			}
		}
		return nil
	})
}

// ComposeOrientation returns the orientation equal to applying first and
// then second.
func ComposeOrientation(first, second core.Orientation) core.Orientation {
	sample := [4]mgl32.Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	want := second.Apply(first.Apply(sample))
	for rot := uint8(0); rot < 4; rot++ {
		for _, fh := range []bool{false, true} {
			o := core.Orientation{Rotation: rot, FlipH: fh}
			if o.Apply(sample) == want {
				return o
			}
			o.FlipV = true
			if o.Apply(sample) == want {
				return o
			}
		}
	}
	return second
}

// PaintColor sets the vertex color of everything the selection covers.
type PaintColor struct {
	recorder
	Level editor.Level
	Refs  []editor.Ref
	Color mgl32.Vec4
}

func (p *PaintColor) Name() string { return "paint color" }

func (p *PaintColor) Apply(s *core.Scene) error {
	return p.record(s, func() error {
		if err := p.paint(s); err != nil {
			return fmt.Errorf("ops: paint: %w", err)
		}
		return nil
	})
}

func (p *PaintColor) paint(s *core.Scene) error {
	var verts []core.VertexID
	if p.Level == editor.LevelObject {
		if len(p.Refs) == 0 {
			return fmt.Errorf("nothing selected: %w", core.ErrInvalidSelection)
		}
		for _, r := range p.Refs {
			if err := checkSource(s, r.Object); err != nil {
				return err
			}
			verts = append(verts, s.ObjectVertices(r.Object)...)
		}
	} else {
		byObj, order, err := refVertices(s, p.Level, p.Refs)
		if err != nil {
			return err
		}
		for _, oid := range order {
			verts = append(verts, byObj[oid]...)
		}
	}
	for _, v := range verts {
		if err := s.SetVertexColor(v, p.Color); err != nil {
			return err
		}
	}
	return nil
}
