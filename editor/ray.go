package editor

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func NewRay(origin, dir mgl32.Vec3) Ray {
	if dir.LenSqr() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: origin, Direction: dir}
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Camera is the minimal view description needed to build pick rays.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Right    mgl32.Vec3
	FovY     float32 // degrees
}

// PickRay builds a ray through pixel (mouseX, mouseY) of a width x height
// viewport.
func (c Camera) PickRay(mouseX, mouseY float64, width, height int) Ray {
	// Normalized Device Coordinates
	nx := (2.0*float32(mouseX))/float32(width) - 1.0
	ny := 1.0 - (2.0*float32(mouseY))/float32(height) // Flip Y for NDC

	forward := c.Forward.Normalize()
	right := c.Right.Normalize()
	up := right.Cross(forward)

	aspect := float32(width) / float32(height)
	fov := c.FovY
	if fov <= 0 {
		fov = 60
	}
	tanHalfFov := math32.Tan(mgl32.DegToRad(fov) / 2.0)

	dir := forward.Add(right.Mul(nx * aspect * tanHalfFov)).Add(up.Mul(ny * tanHalfFov))
	return NewRay(c.Position, dir)
}

// FromScreen unprojects a pixel through the inverse of viewProj, from the
// near plane to the far plane.
func FromScreen(mouseX, mouseY float32, width, height float32, viewProj mgl32.Mat4) Ray {
	nx := (2.0*mouseX)/width - 1.0
	ny := 1.0 - (2.0*mouseY)/height

	inv := viewProj.Inv()
	near := unproject(inv, mgl32.Vec3{nx, ny, -1})
	far := unproject(inv, mgl32.Vec3{nx, ny, 1})
	return NewRay(near, far.Sub(near))
}

func unproject(inv mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := inv.Mul4x1(p.Vec4(1.0))
	if v.W() == 0 {
		return v.Vec3()
	}
	return v.Vec3().Mul(1 / v.W())
}

const parallelEps = 1e-7

// IntersectTriangle is the Möller–Trumbore test. It reports the ray
// parameter of a hit in front of the origin.
func (r Ray) IntersectTriangle(v0, v1, v2 mgl32.Vec3) (float32, bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := r.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if math32.Abs(a) < parallelEps {
		return 0, false
	}

	f := 1.0 / a
	s := r.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := f * edge2.Dot(q)
	if t <= parallelEps {
		return 0, false
	}
	return t, true
}

// IntersectQuad tests the triangles (0,1,2) and (0,2,3).
func (r Ray) IntersectQuad(p [4]mgl32.Vec3) (float32, bool) {
	t1, ok1 := r.IntersectTriangle(p[0], p[1], p[2])
	t2, ok2 := r.IntersectTriangle(p[0], p[2], p[3])
	switch {
	case ok1 && ok2:
		return min(t1, t2), true
	case ok1:
		return t1, true
	case ok2:
		return t2, true
	}
	return 0, false
}

// IntersectPlane hits the infinite plane through point with normal n. Rays
// parallel to the plane, or pointing away from it, miss.
func (r Ray) IntersectPlane(point, n mgl32.Vec3) (float32, bool) {
	denom := n.Dot(r.Direction)
	if math32.Abs(denom) < parallelEps {
		return 0, false
	}
	t := point.Sub(r.Origin).Dot(n) / denom
	if t <= 0 {
		return 0, false
	}
	return t, true
}

// IntersectAABB is a slab test returning the entry and exit parameters;
// the box is missed when tMin > tMax.
func (r Ray) IntersectAABB(minB, maxB mgl32.Vec3) (float32, float32) {
	invDir := mgl32.Vec3{1.0 / (r.Direction.X() + 1e-8), 1.0 / (r.Direction.Y() + 1e-8), 1.0 / (r.Direction.Z() + 1e-8)}
	t1 := minB.Sub(r.Origin)
	t1 = mgl32.Vec3{t1.X() * invDir.X(), t1.Y() * invDir.Y(), t1.Z() * invDir.Z()}
	t2 := maxB.Sub(r.Origin)
	t2 = mgl32.Vec3{t2.X() * invDir.X(), t2.Y() * invDir.Y(), t2.Z() * invDir.Z()}

	tMinV := mgl32.Vec3{math32.Min(t1.X(), t2.X()), math32.Min(t1.Y(), t2.Y()), math32.Min(t1.Z(), t2.Z())}
	tMaxV := mgl32.Vec3{math32.Max(t1.X(), t2.X()), math32.Max(t1.Y(), t2.Y()), math32.Max(t1.Z(), t2.Z())}

	realMin := math32.Max(0, math32.Max(tMinV.X(), math32.Max(tMinV.Y(), tMinV.Z())))
	realMax := math32.Min(math32.MaxFloat32, math32.Min(tMaxV.X(), math32.Min(tMaxV.Y(), tMaxV.Z())))

	return realMin, realMax
}

// ClosestPointOnSegment projects p onto segment ab.
func ClosestPointOnSegment(p, a, b mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	l2 := ab.LenSqr()
	if l2 < 1e-12 {
		return a
	}
	t := mgl32.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t))
}
