package core

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Snapshot is the full scene as seen by persistence and import/export:
// layers, objects, per-object vertex tables and faces indexing into them.
// Vertex sharing inside an object survives a round trip.
type Snapshot struct {
	Crosshair   mgl32.Vec3
	GridPresets []float32
	GridIndex   int
	ActiveLayer int
	Layers      []LayerSnapshot
}

type LayerSnapshot struct {
	Name    string
	Visible bool
	Locked  bool
	Objects []ObjectSnapshot
}

// ObjectSnapshot links an instance to its source by UUID. Flattened
// snapshots carry the source geometry in every instance and no links.
type ObjectSnapshot struct {
	UUID      uuid.UUID
	Name      string
	Transform Transform
	TilesetID uint32
	Source    uuid.UUID
	Vertices  []VertexSnapshot
	Faces     []FaceSnapshot
}

type VertexSnapshot struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
}

type FaceSnapshot struct {
	Vertices    [4]int
	Tile        TileRef
	Orientation Orientation
	Hidden      bool
}

// FaceCount counts faces across all objects.
func (s Snapshot) FaceCount() int {
	n := 0
	for _, l := range s.Layers {
		for _, o := range l.Objects {
			n += len(o.Faces)
		}
	}
	return n
}

// Clone deep-copies the snapshot so an exporter can own it while editing
// continues.
func (s Snapshot) Clone() (Snapshot, error) {
	var out Snapshot
	if err := copier.CopyWithOption(&out, &s, copier.Option{DeepCopy: true}); err != nil {
		return Snapshot{}, fmt.Errorf("core: clone snapshot: %w", err)
	}
	return out, nil
}

// Snapshot captures the scene. With flatten set, instances are written as
// independent geometry, which is what exporters want; the live scene is
// never flattened.
func (s *Scene) Snapshot(flatten bool) Snapshot {
	snap := Snapshot{
		Crosshair:   s.Crosshair,
		GridPresets: slices.Clone(s.GridPresets),
		GridIndex:   s.GridIndex,
		ActiveLayer: max(0, slices.Index(s.layerOrder, s.ActiveLayer)),
	}
	for _, lid := range s.layerOrder {
		l := s.layers[lid]
		ls := LayerSnapshot{Name: l.Name, Visible: l.Visible, Locked: l.Locked}
		for _, oid := range l.Objects {
			ls.Objects = append(ls.Objects, s.objectSnapshot(oid, flatten))
		}
		snap.Layers = append(snap.Layers, ls)
	}
	return snap
}

func (s *Scene) objectSnapshot(id ObjectID, flatten bool) ObjectSnapshot {
	o := s.objects[id]
	os := ObjectSnapshot{
		UUID:      o.UUID,
		Name:      o.Name,
		Transform: o.Transform,
		TilesetID: o.TilesetID,
	}
	if o.Source != 0 && !flatten {
		if src, ok := s.objects[o.Source]; ok {
			os.Source = src.UUID
		}
		return os
	}

	index := make(map[VertexID]int)
	for _, fid := range s.ObjectFaces(id) {
		f := s.faces[fid]
		fs := FaceSnapshot{Tile: f.Tile, Orientation: f.Orientation, Hidden: f.Hidden}
		for i, vid := range f.Vertices {
			n, ok := index[vid]
			if !ok {
				v := s.vertices[vid]
				n = len(os.Vertices)
				index[vid] = n
				os.Vertices = append(os.Vertices, VertexSnapshot{Position: v.Position, UV: v.UV, Color: v.Color})
			}
			fs.Vertices[i] = n
		}
		os.Faces = append(os.Faces, fs)
	}
	return os
}

// FromSnapshot builds a fresh scene. Instances whose source UUID cannot be
// resolved to a source object fail with ErrDanglingReference.
func FromSnapshot(snap Snapshot) (*Scene, error) {
	s := NewScene()
	first := s.layerOrder[0]
	if len(snap.GridPresets) > 0 {
		s.GridPresets = slices.Clone(snap.GridPresets)
	}
	s.GridIndex = snap.GridIndex
	s.Crosshair = snap.Crosshair

	byUUID := make(map[uuid.UUID]ObjectID)
	type link struct {
		id  ObjectID
		src uuid.UUID
	}
	var links []link

	for li, ls := range snap.Layers {
		lid := first
		if li == 0 {
			s.layers[first].Name = ls.Name
		} else {
			lid = s.AddLayer(ls.Name)
		}
		l := s.layers[lid]
		l.Visible, l.Locked = ls.Visible, ls.Locked
		if li == snap.ActiveLayer {
			s.ActiveLayer = lid
		}

		for _, os := range ls.Objects {
			oid, err := s.AddObject(lid, os.Name, os.TilesetID)
			if err != nil {
				return nil, err
			}
			o := s.objects[oid]
			o.Transform = os.Transform
			if os.UUID != uuid.Nil {
				if _, dup := byUUID[os.UUID]; dup {
					return nil, fmt.Errorf("core: duplicate object %s: %w", os.UUID, ErrInvalidSelection)
				}
				o.UUID = os.UUID
			}
			byUUID[o.UUID] = oid
			if os.Source != uuid.Nil {
				links = append(links, link{id: oid, src: os.Source})
				continue
			}
			if err := s.loadGeometry(oid, os); err != nil {
				return nil, err
			}
		}
	}

	for _, ln := range links {
		src, ok := byUUID[ln.src]
		if !ok || s.objects[src].Source != 0 {
			return nil, fmt.Errorf("core: instance source %s: %w", ln.src, ErrDanglingReference)
		}
		s.objects[ln.id].Source = src
	}
	s.ClearDirty()
	for id := range s.objects {
		s.dirty[id] = struct{}{}
	}
	return s, nil
}

func (s *Scene) loadGeometry(oid ObjectID, os ObjectSnapshot) error {
	ids := make([]VertexID, len(os.Vertices))
	for i, vs := range os.Vertices {
		id, err := s.AddVertex(oid, Vertex{Position: vs.Position, UV: vs.UV, Color: vs.Color})
		if err != nil {
			return err
		}
		ids[i] = id
	}
	for _, fs := range os.Faces {
		var vids [4]VertexID
		for i, n := range fs.Vertices {
			if n < 0 || n >= len(ids) {
				return fmt.Errorf("core: object %q face vertex %d: %w", os.Name, n, ErrDanglingReference)
			}
			vids[i] = ids[n]
		}
		fid, err := s.AddFaceFromVertices(oid, vids, fs.Tile, fs.Orientation)
		if err != nil {
			return err
		}
		s.faces[fid].Hidden = fs.Hidden
	}
	s.RemoveOrphanVertices(oid)
	return nil
}
