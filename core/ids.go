package core

import "github.com/go-gl/mathgl/mgl32"

// Identifiers are allocated monotonically per Scene and never reused, so a
// stale id can always be detected. The zero value means "none".
type (
	LayerID  uint32
	ObjectID uint32
	FaceID   uint32
	VertexID uint32
)

// TileRef names one tile of a tileset grid.
type TileRef struct {
	Tileset uint32
	Col     uint32
	Row     uint32
}

// Orientation is the rotation/flip a tile was placed with. Rotation counts
// quarter turns (0..3).
type Orientation struct {
	Rotation uint8
	FlipH    bool
	FlipV    bool
}

// Apply permutes the corner UVs of a tile rectangle. The vertex order of the
// quad is never touched.
func (o Orientation) Apply(uvs [4]mgl32.Vec2) [4]mgl32.Vec2 {
	for i := uint8(0); i < o.Rotation%4; i++ {
		uvs = [4]mgl32.Vec2{uvs[3], uvs[0], uvs[1], uvs[2]}
	}
	if o.FlipH {
		uvs[0], uvs[1] = uvs[1], uvs[0]
		uvs[2], uvs[3] = uvs[3], uvs[2]
	}
	if o.FlipV {
		uvs[0], uvs[3] = uvs[3], uvs[0]
		uvs[1], uvs[2] = uvs[2], uvs[1]
	}
	return uvs
}

// DefaultUVs covers the whole texture: bottom-left, bottom-right, top-right,
// top-left.
func DefaultUVs() [4]mgl32.Vec2 {
	return [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
}

// White is the default vertex color.
var White = mgl32.Vec4{1, 1, 1, 1}
