// Package render turns scene objects into flat vertex and index buffers for
// the GPU side. It reads the scene only; uploading is left to the caller.
package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

// Vertex matches the shader vertex input.
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
	Color  [4]float32
}

// Mesh is the buffer set of one object. Positions and normals are in object
// space; ModelMat places them in the world. Instances carry the faces of
// their source with their own ModelMat.
type Mesh struct {
	Object   core.ObjectID
	Source   core.ObjectID
	Tileset  uint32
	ModelMat mgl32.Mat4
	Visible  bool
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) QuadCount() int { return len(m.Indices) / 6 }

// Options control how Build shades faces.
type Options struct {
	// SmoothNormals gives each vertex the averaged normal of the faces
	// welded at it instead of the face normal.
	SmoothNormals bool
}

// Build emits four vertices and two triangles per visible face, flat shaded.
// Welded vertices are duplicated per face.
func Build(s *core.Scene, id core.ObjectID) (Mesh, error) {
	return Options{}.Build(s, id)
}

// Build emits four vertices and two triangles per visible face.
func (opts Options) Build(s *core.Scene, id core.ObjectID) (Mesh, error) {
	o, ok := s.Object(id)
	if !ok {
		return Mesh{}, fmt.Errorf("render: object %d: %w", id, core.ErrNotFound)
	}
	owner, err := s.GeometryOwner(id)
	if err != nil {
		return Mesh{}, fmt.Errorf("render: object %d: %w", id, err)
	}
	layer, _ := s.Layer(o.Layer)
	src, _ := s.Object(owner)

	m := Mesh{
		Object:   id,
		Source:   o.Source,
		Tileset:  src.TilesetID,
		ModelMat: o.Transform.ObjectToWorld(),
		Visible:  layer.Visible,
	}
	for _, fid := range src.Faces {
		f, ok := s.Face(fid)
		if !ok {
			return Mesh{}, fmt.Errorf("render: face %d of object %d: %w", fid, owner, core.ErrDanglingReference)
		}
		if f.Hidden {
			continue
		}
		n, err := s.ComputeNormal(fid)
		if err != nil {
			return Mesh{}, fmt.Errorf("render: %w", err)
		}
		base := uint32(len(m.Vertices))
		for _, vid := range f.Vertices {
			v, ok := s.Vertex(vid)
			if !ok {
				return Mesh{}, fmt.Errorf("render: vertex %d of face %d: %w", vid, fid, core.ErrDanglingReference)
			}
			vn := n
			if opts.SmoothNormals {
				vn = s.VertexNormal(vid)
			}
			m.Vertices = append(m.Vertices, Vertex{
				Pos:    v.Position,
				Normal: vn,
				UV:     v.UV,
				Color:  v.Color,
			})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m, nil
}

// Sync calls fn for every dirty object in id order and clears its flag once
// fn returns. Deleted objects are reported with a nil mesh so their buffers
// can be released. Sync stops at the first error; objects not yet visited
// stay dirty.
func Sync(s *core.Scene, fn func(id core.ObjectID, m *Mesh) error) error {
	return Options{}.Sync(s, fn)
}

func (opts Options) Sync(s *core.Scene, fn func(id core.ObjectID, m *Mesh) error) error {
	for _, id := range s.DirtyObjects() {
		var mesh *Mesh
		if _, ok := s.Object(id); ok {
			m, err := opts.Build(s, id)
			if err != nil {
				return err
			}
			mesh = &m
		}
		if err := fn(id, mesh); err != nil {
			return err
		}
		s.ClearDirty(id)
	}
	return nil
}
