package tileset

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

// Registry is the set of loaded tilesets. It implements Provider; tiles of
// unknown tilesets map to the whole texture so placeholder geometry stays
// usable.
type Registry struct {
	sets  map[uint32]Tileset
	order []uint32
	next  uint32
}

func NewRegistry() *Registry {
	return &Registry{sets: make(map[uint32]Tileset), next: 1}
}

// Add registers ts and returns its id. A zero ID is assigned one.
func (r *Registry) Add(ts Tileset) uint32 {
	if ts.ID == 0 {
		ts.ID = r.next
	}
	r.next = max(r.next, ts.ID+1)
	if _, ok := r.sets[ts.ID]; !ok {
		r.order = append(r.order, ts.ID)
	}
	r.sets[ts.ID] = ts
	return ts.ID
}

// Load probes the image at path and registers it cut into tileW x tileH
// tiles.
func (r *Registry) Load(path, name string, tileW, tileH uint32) (uint32, error) {
	if tileW == 0 || tileH == 0 {
		return 0, fmt.Errorf("tileset: load %s: tile size %dx%d", path, tileW, tileH)
	}
	info, err := ProbeImage(path)
	if err != nil {
		return 0, err
	}
	return r.Add(Tileset{
		Name:        name,
		Path:        path,
		ImageWidth:  uint32(info.Width),
		ImageHeight: uint32(info.Height),
		TileWidth:   tileW,
		TileHeight:  tileH,
	}), nil
}

func (r *Registry) Get(id uint32) (Tileset, bool) {
	ts, ok := r.sets[id]
	return ts, ok
}

func (r *Registry) Remove(id uint32) {
	delete(r.sets, id)
	r.order = slices.DeleteFunc(r.order, func(x uint32) bool { return x == id })
}

// IDs lists tilesets in registration order.
func (r *Registry) IDs() []uint32 { return slices.Clone(r.order) }

func (r *Registry) TileUVs(ref core.TileRef) ([4]mgl32.Vec2, error) {
	ts, ok := r.sets[ref.Tileset]
	if !ok {
		return core.DefaultUVs(), nil
	}
	return ts.TileUVs(ref.Col, ref.Row)
}
