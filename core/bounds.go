package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB is inverted so that the first Extend sets both corners.
func EmptyAABB() AABB {
	inf := float32(1e20)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) Empty() bool {
	return b.Min.X() > b.Max.X()
}

func (b AABB) Extend(p mgl32.Vec3) AABB {
	b.Min = mgl32.Vec3{min(b.Min.X(), p.X()), min(b.Min.Y(), p.Y()), min(b.Min.Z(), p.Z())}
	b.Max = mgl32.Vec3{max(b.Max.X(), p.X()), max(b.Max.Y(), p.Y()), max(b.Max.Z(), p.Z())}
	return b
}

// Grow pads every side by d. Flat boxes from planar objects need it for the
// slab test to stay stable.
func (b AABB) Grow(d float32) AABB {
	pad := mgl32.Vec3{d, d, d}
	return AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Corners() [8]mgl32.Vec3 {
	minB, maxB := b.Min, b.Max
	return [8]mgl32.Vec3{
		{minB.X(), minB.Y(), minB.Z()},
		{maxB.X(), minB.Y(), minB.Z()},
		{minB.X(), maxB.Y(), minB.Z()},
		{maxB.X(), maxB.Y(), minB.Z()},
		{minB.X(), minB.Y(), maxB.Z()},
		{maxB.X(), minB.Y(), maxB.Z()},
		{minB.X(), maxB.Y(), maxB.Z()},
		{maxB.X(), maxB.Y(), maxB.Z()},
	}
}

// LocalAABB bounds the geometry an object renders, in its own space.
func (s *Scene) LocalAABB(id ObjectID) AABB {
	b := EmptyAABB()
	for _, vid := range s.ObjectVertices(id) {
		if v, ok := s.vertices[vid]; ok {
			b = b.Extend(v.Position)
		}
	}
	return b
}

// ObjectAABB bounds the object in world space by transforming the corners
// of its local box.
func (s *Scene) ObjectAABB(id ObjectID) AABB {
	local := s.LocalAABB(id)
	o, ok := s.objects[id]
	if local.Empty() || !ok {
		return local
	}
	if o.Transform.IsIdentity() {
		return local
	}

	o2w := o.Transform.ObjectToWorld()
	w := EmptyAABB()
	for _, c := range local.Corners() {
		w = w.Extend(o2w.Mul4x1(c.Vec4(1.0)).Vec3())
	}
	return w
}
