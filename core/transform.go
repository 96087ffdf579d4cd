package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t Transform) IsIdentity() bool {
	return t == NewTransform()
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// ToWorld maps a local point to world space. Identity transforms return the
// point unchanged so untransformed objects keep exact coordinates.
func (t Transform) ToWorld(p mgl32.Vec3) mgl32.Vec3 {
	if t.IsIdentity() {
		return p
	}
	return t.ObjectToWorld().Mul4x1(p.Vec4(1.0)).Vec3()
}

func (t Transform) ToLocal(p mgl32.Vec3) mgl32.Vec3 {
	if t.IsIdentity() {
		return p
	}
	return t.WorldToObject().Mul4x1(p.Vec4(1.0)).Vec3()
}

// DirToWorld transforms a direction (w = 0), e.g. a face normal.
func (t Transform) DirToWorld(d mgl32.Vec3) mgl32.Vec3 {
	if t.IsIdentity() {
		return d
	}
	return t.ObjectToWorld().Mul4x1(d.Vec4(0.0)).Vec3()
}
