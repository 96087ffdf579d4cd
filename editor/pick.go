package editor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

// DefaultPickEpsilon is the ray-parameter window inside which two hits are
// considered a tie.
const DefaultPickEpsilon = 1e-4

type PickOptions struct {
	Level   Level
	Epsilon float32
	// CullBackfaces skips faces whose normal points away from the ray.
	CullBackfaces bool
	// Filter, when set, restricts picking to the objects it accepts.
	Filter func(core.ObjectID) bool
}

type Hit struct {
	Ref    Ref
	Level  Level
	T      float32
	Point  mgl32.Vec3
	Normal mgl32.Vec3 // world space
	// Face is the face that was hit, even when Ref names an edge or vertex.
	Face    core.FaceID
	Corners [4]mgl32.Vec3
}

// Pick returns the closest visible face hit by the ray, narrowed to an edge
// or vertex of that face for the edge and vertex levels. Objects and faces
// are visited in scene order and a later hit only wins when it is closer by
// more than the epsilon, so equal hits resolve to the earlier element.
//
// Edges and vertices are chosen by 3D distance from the hit point to the
// edge segment or the corner; equal distances pick the lowest slot.
func Pick(s *core.Scene, ray Ray, opts PickOptions) (Hit, bool) {
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultPickEpsilon
	}

	var best Hit
	found := false
	for _, oid := range s.Objects() {
		if !s.ObjectEditable(oid) {
			continue
		}
		if opts.Filter != nil && !opts.Filter(oid) {
			continue
		}

		// 1. Broad phase: World AABB
		box := s.ObjectAABB(oid)
		if box.Empty() {
			continue
		}
		box = box.Grow(eps)
		tMin, tMax := ray.IntersectAABB(box.Min, box.Max)
		if tMin > tMax || tMax < 0 || (found && tMin > best.T+eps) {
			continue
		}

		// 2. Narrow phase: every quad as two triangles
		for _, fid := range s.ObjectFaces(oid) {
			f, _ := s.Face(fid)
			if f.Hidden {
				continue
			}
			p, err := s.WorldPositions(oid, fid)
			if err != nil {
				continue
			}
			t, ok := ray.IntersectQuad(p)
			if !ok {
				continue
			}
			n := core.QuadNormal(p)
			if opts.CullBackfaces && n.Dot(ray.Direction) >= 0 {
				continue
			}
			if found && t >= best.T-eps {
				continue
			}
			found = true
			best = Hit{
				Ref:     FaceRef(oid, fid),
				T:       t,
				Point:   ray.At(t),
				Normal:  n,
				Face:    fid,
				Corners: p,
			}
		}
	}
	if !found {
		return Hit{}, false
	}

	best.Level = opts.Level
	f, _ := s.Face(best.Face)
	switch opts.Level {
	case LevelObject:
		best.Ref = ObjectRef(best.Ref.Object)
	case LevelEdge:
		e := ClosestEdge(best.Corners, best.Point)
		best.Ref = EdgeRef(best.Ref.Object, f.Vertices[e], f.Vertices[(e+1)%4])
	case LevelVertex:
		v := ClosestCorner(best.Corners, best.Point)
		best.Ref = VertexRef(best.Ref.Object, f.Vertices[v])
	}
	return best, true
}

// ClosestEdge returns the slot e of the quad edge (e, e+1) nearest to p.
func ClosestEdge(p [4]mgl32.Vec3, point mgl32.Vec3) int {
	best, bestD := 0, float32(0)
	for e := 0; e < 4; e++ {
		q := ClosestPointOnSegment(point, p[e], p[(e+1)%4])
		d := q.Sub(point).LenSqr()
		if e == 0 || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// ClosestCorner returns the slot of the corner nearest to point.
func ClosestCorner(p [4]mgl32.Vec3, point mgl32.Vec3) int {
	best, bestD := 0, float32(0)
	for i := 0; i < 4; i++ {
		d := p[i].Sub(point).LenSqr()
		if i == 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
