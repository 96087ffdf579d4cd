package editor

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
	"github.com/gekko3d/tilesmith/tileset"
)

// RectFill covers the grid rectangle between the cells of start and end with
// tiles on start's plane. Every placement copies start's brush, layer and
// target; end contributes only its center. A positive limit caps the tile
// count.
func RectFill(s *core.Scene, start, end Placement, limit int) ([]Placement, error) {
	g := s.GridSize()
	n := start.Normal
	if n.LenSqr() < 1e-12 {
		return nil, fmt.Errorf("editor: rect fill without a plane normal: %w", core.ErrDegenerateGeometry)
	}
	right, up := core.TangentBasis(n)
	d := end.Center.Sub(start.Center)
	du, dv := d.Dot(right), d.Dot(up)

	cu := int(math32.Round(math32.Abs(du)/g)) + 1
	cv := int(math32.Round(math32.Abs(dv)/g)) + 1
	if limit > 0 && cu*cv > limit {
		return nil, fmt.Errorf("editor: rect fill of %dx%d tiles exceeds %d: %w", cu, cv, limit, core.ErrInvalidSelection)
	}
	stepU := right.Mul(math32.Copysign(g, du))
	stepV := up.Mul(math32.Copysign(g, dv))

	out := make([]Placement, 0, cu*cv)
	for iv := 0; iv < cv; iv++ {
		for iu := 0; iu < cu; iu++ {
			c := start.Center.Add(stepU.Mul(float32(iu))).Add(stepV.Mul(float32(iv)))
			p := start
			p.Center = c
			p.Corners = core.QuadCorners(c, n, g*0.5, g*0.5)
			out = append(out, p)
		}
	}
	return out, nil
}

// Shape is a solid the block and primitive tools place in one grid cell.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeWedge
)

func (sh Shape) String() string {
	switch sh {
	case ShapeBox:
		return "box"
	case ShapeWedge:
		return "wedge"
	}
	return "shape"
}

// ResolveShape computes the faces of a one-cell shape for a draw click. With
// a hit the cell is the one touching the hit face on its front side;
// otherwise it is the cell on the placement plane under the ray, or at the
// crosshair when the ray misses the plane.
func ResolveShape(s *core.Scene, ray Ray, hit *Hit, planeNormal mgl32.Vec3, shape Shape, brush TileBrush, tiles tileset.Provider) ([]Placement, error) {
	if err := checkActiveLayer(s); err != nil {
		return nil, err
	}
	g := s.GridSize()
	half := g * 0.5

	var center mgl32.Vec3
	switch {
	case hit != nil:
		if hit.Normal.LenSqr() < 1e-12 {
			return nil, fmt.Errorf("editor: place on degenerate face: %w", core.ErrDegenerateGeometry)
		}
		center = BlockCenter(core.QuadCenter(hit.Corners).Add(hit.Normal.Mul(half)), g)
	default:
		n := planeNormal
		if n.LenSqr() < 1e-12 {
			n = mgl32.Vec3{0, 1, 0}
		}
		n = n.Normalize()
		center = s.Crosshair
		if t, ok := ray.IntersectPlane(s.Crosshair, n); ok {
			center = BlockCenter(ray.At(t).Add(n.Mul(0.01)), g)
		}
	}

	var faces [][4]mgl32.Vec3
	switch shape {
	case ShapeBox:
		faces = boxFaces(center, half)
	case ShapeWedge:
		faces = wedgeFaces(center, half)
	default:
		return nil, fmt.Errorf("editor: %s: %w", shape, core.ErrInvalidSelection)
	}

	uvs, err := brush.UVs(tiles)
	if err != nil {
		return nil, err
	}
	target := FindTargetObject(s, s.ActiveLayer, brush.Tile.Tileset)
	out := make([]Placement, len(faces))
	for i, p := range faces {
		out[i] = Placement{
			Corners:     p,
			Center:      core.QuadCenter(p),
			Normal:      core.QuadNormal(p),
			UVs:         uvs,
			Tile:        brush.Tile,
			Orientation: brush.Orientation,
			Layer:       s.ActiveLayer,
			Object:      target,
			Adjacent:    hit != nil,
		}
	}
	return out, nil
}

// BlockCenter is the center of the grid cell containing p.
func BlockCenter(p mgl32.Vec3, g float32) mgl32.Vec3 {
	var c mgl32.Vec3
	for i := range c {
		c[i] = math32.Floor(p[i]/g)*g + g*0.5
	}
	return c
}

var axes = [6]mgl32.Vec3{{0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}, {1, 0, 0}, {-1, 0, 0}}

func boxFaces(center mgl32.Vec3, half float32) [][4]mgl32.Vec3 {
	out := make([][4]mgl32.Vec3, len(axes))
	for i, n := range axes {
		out[i] = core.QuadCorners(center.Add(n.Mul(half)), n, half, half)
	}
	return out
}

// wedgeFaces is a ramp rising from the +Z bottom edge to the -Z top edge.
// Its two ends are triangles stored as quads with a repeated corner.
func wedgeFaces(center mgl32.Vec3, half float32) [][4]mgl32.Vec3 {
	at := func(x, y, z float32) mgl32.Vec3 { return center.Add(mgl32.Vec3{x * half, y * half, z * half}) }
	blf, brf := at(-1, -1, -1), at(1, -1, -1)
	blb, brb := at(-1, -1, 1), at(1, -1, 1)
	tl, tr := at(-1, 1, -1), at(1, 1, -1)

	faces := [][4]mgl32.Vec3{
		{blb, brb, brf, blf},
		{blf, brf, tr, tl},
		{brb, blb, tl, tr},
		{blb, blf, tl, tl},
		{brf, brb, tr, tr},
	}
	// The slope passes through center, so orient against the centroid.
	inside := at(0, -1.0/3, -1.0/3)
	for i, p := range faces {
		if core.QuadNormal(p).Dot(core.QuadCenter(p).Sub(inside)) < 0 {
			faces[i] = [4]mgl32.Vec3{p[0], p[3], p[2], p[1]}
		}
	}
	return faces
}
