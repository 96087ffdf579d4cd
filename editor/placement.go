package editor

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/tileset"
)

// TileBrush is the tile new placements use, with the rotation/flip its UVs
// get.
type TileBrush struct {
	Tile        core.TileRef
	Orientation core.Orientation
}

// UVs resolves the brush tile through tiles and applies the orientation. A
// nil provider yields the whole texture.
func (b TileBrush) UVs(tiles tileset.Provider) ([4]mgl32.Vec2, error) {
	uvs := core.DefaultUVs()
	if tiles != nil {
		var err error
		if uvs, err = tiles.TileUVs(b.Tile); err != nil {
			return uvs, err
		}
	}
	return b.Orientation.Apply(uvs), nil
}

// PlacementNormal picks the placement plane from the camera: the dominant
// axis of the view direction, facing back toward the camera.
func PlacementNormal(cameraForward mgl32.Vec3) mgl32.Vec3 {
	ax := math32.Abs(cameraForward.X())
	ay := math32.Abs(cameraForward.Y())
	az := math32.Abs(cameraForward.Z())
	switch {
	case ay >= ax && ay >= az:
		if cameraForward.Y() > 0 {
			return mgl32.Vec3{0, -1, 0}
		}
		return mgl32.Vec3{0, 1, 0}
	case ax >= az:
		if cameraForward.X() > 0 {
			return mgl32.Vec3{-1, 0, 0}
		}
		return mgl32.Vec3{1, 0, 0}
	case cameraForward.Z() > 0:
		return mgl32.Vec3{0, 0, -1}
	default:
		return mgl32.Vec3{0, 0, 1}
	}
}

// DominantAxis returns the index of the largest component of n and whether
// n is aligned to it.
func DominantAxis(n mgl32.Vec3) (int, bool) {
	axis := 0
	for i := 1; i < 3; i++ {
		if math32.Abs(n[i]) > math32.Abs(n[axis]) {
			axis = i
		}
	}
	return axis, math32.Abs(n[axis]) > 0.999
}

// Snap rounds v to the nearest multiple of g, halves away from zero.
func Snap(v, g float32) float32 {
	if g <= 0 {
		return v
	}
	return math32.Round(v/g) * g
}

// SnapDelta quantizes a translation to the grid, per component.
func SnapDelta(d mgl32.Vec3, g float32) mgl32.Vec3 {
	return mgl32.Vec3{Snap(d.X(), g), Snap(d.Y(), g), Snap(d.Z(), g)}
}

// CellCenter snaps p to the grid cell it lies in on the plane with the given
// axis as normal: tangent coordinates go to the center of the containing
// cell, the normal coordinate to the nearest grid line.
func CellCenter(p mgl32.Vec3, axis int, g float32) mgl32.Vec3 {
	half := g * 0.5
	var c mgl32.Vec3
	for i := 0; i < 3; i++ {
		if i == axis {
			c[i] = Snap(p[i], g)
		} else {
			c[i] = math32.Floor(p[i]/g)*g + half
		}
	}
	return c
}

// Placement is where a new tile goes. Corners are world space and wound
// counter-clockwise around Normal.
type Placement struct {
	Corners     [4]mgl32.Vec3
	Center      mgl32.Vec3
	Normal      mgl32.Vec3
	UVs         [4]mgl32.Vec2
	Tile        core.TileRef
	Orientation core.Orientation
	Layer       core.LayerID
	// Object is the target object; zero means a new one must be created.
	Object   core.ObjectID
	Adjacent bool
}

// Resolve computes the quad to insert for a draw click. Without a hit the
// quad lies on the plane through the crosshair with normal planeNormal, in
// the grid cell under the ray. With a hit it sits one grid unit along the
// hit face's normal from that face.
func Resolve(s *core.Scene, ray Ray, hit *Hit, planeNormal mgl32.Vec3, brush TileBrush, tiles tileset.Provider) (Placement, error) {
	if err := checkActiveLayer(s); err != nil {
		return Placement{}, err
	}

	g := s.GridSize()
	var center, n mgl32.Vec3
	if hit != nil {
		n = hit.Normal
		if n.LenSqr() < 1e-12 {
			return Placement{}, fmt.Errorf("editor: place on degenerate face: %w", core.ErrDegenerateGeometry)
		}
		center = core.QuadCenter(hit.Corners).Add(n.Mul(g))
	} else {
		n = planeNormal
		if n.LenSqr() < 1e-12 {
			n = mgl32.Vec3{0, 1, 0}
		}
		n = n.Normalize()
		center = s.Crosshair
		if t, ok := ray.IntersectPlane(s.Crosshair, n); ok {
			center = ray.At(t)
		}
	}

	if axis, aligned := DominantAxis(n); aligned {
		var an mgl32.Vec3
		an[axis] = math32.Copysign(1, n[axis])
		n = an
		center = CellCenter(center, axis, g)
	}

	uvs, err := brush.UVs(tiles)
	if err != nil {
		return Placement{}, err
	}

	target := FindTargetObject(s, s.ActiveLayer, brush.Tile.Tileset)
	return Placement{
		Corners:     core.QuadCorners(center, n, g*0.5, g*0.5),
		Center:      center,
		Normal:      n,
		UVs:         uvs,
		Tile:        brush.Tile,
		Orientation: brush.Orientation,
		Layer:       s.ActiveLayer,
		Object:      target,
		Adjacent:    hit != nil,
	}, nil
}

func checkActiveLayer(s *core.Scene) error {
	layer, ok := s.Layer(s.ActiveLayer)
	if !ok {
		return fmt.Errorf("editor: active layer %d: %w", s.ActiveLayer, core.ErrNotFound)
	}
	if !layer.Editable() {
		return fmt.Errorf("editor: layer %q is hidden or locked: %w", layer.Name, core.ErrInvalidSelection)
	}
	return nil
}

// FindTargetObject returns the first source object of the layer drawing from
// tilesetID, or zero.
func FindTargetObject(s *core.Scene, layer core.LayerID, tilesetID uint32) core.ObjectID {
	l, ok := s.Layer(layer)
	if !ok {
		return 0
	}
	for _, oid := range l.Objects {
		o, _ := s.Object(oid)
		if !o.IsInstance() && o.TilesetID == tilesetID {
			return oid
		}
	}
	return 0
}
