package tileset

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/tilesmith/core"
)

var ErrTileOutOfRange = errors.New("tileset: tile out of range")

// Provider resolves a tile reference to the UV rectangle of the tile in its
// texture, as bottom-left, bottom-right, top-right, top-left.
type Provider interface {
	TileUVs(ref core.TileRef) ([4]mgl32.Vec2, error)
}

// Tileset is a texture cut into a uniform grid of tiles. Only the sizes are
// kept; pixels belong to the renderer.
type Tileset struct {
	ID          uint32
	Name        string
	Path        string
	ImageWidth  uint32
	ImageHeight uint32
	TileWidth   uint32
	TileHeight  uint32
}

func (t Tileset) Cols() uint32 {
	if t.TileWidth == 0 {
		return 0
	}
	return t.ImageWidth / t.TileWidth
}

func (t Tileset) Rows() uint32 {
	if t.TileHeight == 0 {
		return 0
	}
	return t.ImageHeight / t.TileHeight
}

// TileUVs returns the UVs of the tile at (col, row).
func (t Tileset) TileUVs(col, row uint32) ([4]mgl32.Vec2, error) {
	return t.RegionUVs(col, row, col, row)
}

// RegionUVs spans tiles (col0, row0) through (col1, row1) inclusive.
func (t Tileset) RegionUVs(col0, row0, col1, row1 uint32) ([4]mgl32.Vec2, error) {
	if col1 < col0 || row1 < row0 || col1 >= t.Cols() || row1 >= t.Rows() {
		return [4]mgl32.Vec2{}, fmt.Errorf("%s (%d,%d)-(%d,%d): %w", t.Name, col0, row0, col1, row1, ErrTileOutOfRange)
	}
	w, h := float32(t.ImageWidth), float32(t.ImageHeight)
	tw, th := float32(t.TileWidth), float32(t.TileHeight)

	u0 := float32(col0) * tw / w
	v0 := float32(row0) * th / h
	u1 := float32(col1+1) * tw / w
	v1 := float32(row1+1) * th / h

	return [4]mgl32.Vec2{
		{u0, v1}, // bottom-left
		{u1, v1}, // bottom-right
		{u1, v0}, // top-right
		{u0, v0}, // top-left
	}, nil
}
