package tileset

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/gekko3d/tilesmith/core"
)

func sheet() Tileset {
	return Tileset{Name: "sheet", ImageWidth: 64, ImageHeight: 32, TileWidth: 16, TileHeight: 16}
}

func TestGrid(t *testing.T) {
	ts := sheet()
	assert.Equal(t, uint32(4), ts.Cols())
	assert.Equal(t, uint32(2), ts.Rows())
	assert.Equal(t, uint32(0), Tileset{}.Cols())
}

func TestTileUVs(t *testing.T) {
	ts := sheet()
	uvs, err := ts.TileUVs(1, 1)
	require.NoError(t, err)
	assert.Equal(t, [4]mgl32.Vec2{{0.25, 1}, {0.5, 1}, {0.5, 0.5}, {0.25, 0.5}}, uvs)

	uvs, err = ts.RegionUVs(0, 0, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultUVs(), uvs)

	_, err = ts.TileUVs(4, 0)
	assert.ErrorIs(t, err, ErrTileOutOfRange)
	_, err = ts.RegionUVs(2, 0, 1, 0)
	assert.ErrorIs(t, err, ErrTileOutOfRange)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	id := r.Add(sheet())
	assert.Equal(t, uint32(1), id)
	assert.Equal(t, uint32(7), r.Add(Tileset{ID: 7, Name: "fixed"}))
	assert.Equal(t, uint32(8), r.Add(Tileset{Name: "next"}))
	assert.Equal(t, []uint32{1, 7, 8}, r.IDs())

	uvs, err := r.TileUVs(core.TileRef{Tileset: id, Col: 3, Row: 0})
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec2{0.75, 0.5}, uvs[0])

	// Unknown tilesets fall back to the whole texture.
	uvs, err = r.TileUVs(core.TileRef{Tileset: 99})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultUVs(), uvs)

	r.Remove(7)
	_, ok := r.Get(7)
	assert.False(t, ok)
	assert.Equal(t, []uint32{1, 8}, r.IDs())
}

func writeImage(t *testing.T, name string, enc func(*os.File, image.Image) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, enc(f, image.NewRGBA(image.Rect(0, 0, 48, 32))))
	return path
}

func TestProbeImage(t *testing.T) {
	pngPath := writeImage(t, "tiles.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	info, err := ProbeImage(pngPath)
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Width: 48, Height: 32, Format: "png"}, info)

	bmpPath := writeImage(t, "tiles.bmp", func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })
	info, err = ProbeImage(bmpPath)
	require.NoError(t, err)
	assert.Equal(t, "bmp", info.Format)

	_, err = ProbeImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestRegistryLoad(t *testing.T) {
	path := writeImage(t, "tiles.png", func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	r := NewRegistry()
	id, err := r.Load(path, "tiles", 16, 16)
	require.NoError(t, err)
	ts, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, uint32(3), ts.Cols())
	assert.Equal(t, uint32(2), ts.Rows())

	_, err = r.Load(path, "tiles", 0, 16)
	assert.Error(t, err)
}
