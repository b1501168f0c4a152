package terrain

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(width, height int, values []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, values)
	return img
}

func TestHeightmapSamplingClampsToEdges(t *testing.T) {
	hm := NewHeightmapFromImage(grayImage(2, 2, []uint8{0, 51, 102, 255}))

	assert.InDelta(t, 0.0, hm.At(0, 0), 1e-6)
	assert.InDelta(t, 51.0/255.0, hm.At(1, 0), 1e-6)
	assert.InDelta(t, 255.0/255.0, hm.At(1, 1), 1e-6)

	// Out of range coordinates resolve to the nearest edge cell.
	assert.Equal(t, hm.At(0, 0), hm.At(-5, -5))
	assert.Equal(t, hm.At(1, 1), hm.At(10, 10))
}

func TestFlatHeightmapHasUpwardNormals(t *testing.T) {
	values := make([]uint8, 9)
	for i := range values {
		values[i] = 128
	}
	hm := NewHeightmapFromImage(grayImage(3, 3, values))

	for z := 0; z < 3; z++ {
		for x := 0; x < 3; x++ {
			n := hm.Normal(x, z, 1.0, 4.0)
			assert.InDelta(t, 0.0, n.X, 1e-6)
			assert.InDelta(t, 1.0, n.Y, 1e-6)
			assert.InDelta(t, 0.0, n.Z, 1e-6)
		}
	}
}

func TestBuildMeshGridTopology(t *testing.T) {
	values := make([]uint8, 12)
	hm := NewHeightmapFromImage(grayImage(4, 3, values))

	vertices, indices, err := hm.BuildMesh(1.0, 2.0)
	require.NoError(t, err)

	assert.Len(t, vertices, 4*3)
	// One quad per grid cell, two triangles each.
	assert.Len(t, indices, 3*2*6)

	for _, idx := range indices {
		assert.Less(t, int(idx), len(vertices))
	}
}

func TestBuildMeshCentersGridAndScalesHeight(t *testing.T) {
	hm := NewHeightmapFromImage(grayImage(3, 3, []uint8{
		0, 0, 0,
		0, 255, 0,
		0, 0, 0,
	}))

	vertices, _, err := hm.BuildMesh(2.0, 5.0)
	require.NoError(t, err)

	center := vertices[4]
	assert.InDelta(t, 0.0, center.Position.X, 1e-6)
	assert.InDelta(t, 5.0, center.Position.Y, 1e-6)
	assert.InDelta(t, 0.0, center.Position.Z, 1e-6)

	corner := vertices[0]
	assert.InDelta(t, -2.0, corner.Position.X, 1e-6)
	assert.InDelta(t, 0.0, corner.Position.Y, 1e-6)
	assert.InDelta(t, -2.0, corner.Position.Z, 1e-6)
}

func TestBuildMeshRejectsDegenerateMaps(t *testing.T) {
	hm := NewHeightmapFromImage(grayImage(1, 1, []uint8{7}))
	_, _, err := hm.BuildMesh(1.0, 1.0)
	assert.Error(t, err)
}

func TestBuildMeshRejectsOversizedMaps(t *testing.T) {
	hm := NewHeightmapFromImage(image.NewGray(image.Rect(0, 0, 257, 256)))
	_, _, err := hm.BuildMesh(1.0, 1.0)
	assert.Error(t, err)
}

func TestLoadHeightmapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")

	img := grayImage(2, 2, []uint8{10, 20, 30, 40})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	hm, err := LoadHeightmap(path)
	require.NoError(t, err)
	assert.Equal(t, 2, hm.Width)
	assert.Equal(t, 2, hm.Depth)
	assert.InDelta(t, 10.0/255.0, hm.At(0, 0), 1e-6)
}

func TestLoadHeightmapMissingFile(t *testing.T) {
	_, err := LoadHeightmap(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
