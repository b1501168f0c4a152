package engine

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/config"
)

func TestSceneGeometryDefaultsToCube(t *testing.T) {
	cfg := config.Default()

	name, vertices, indices, err := sceneGeometry(cfg)
	require.NoError(t, err)
	assert.Equal(t, "cube", name)
	assert.Len(t, vertices, 8)
	assert.Len(t, indices, 36)
}

func TestSceneGeometryTerrainReplacesCube(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	cfg := config.Default()
	cfg.Terrain.Enabled = true
	cfg.Terrain.HeightmapPath = path

	name, vertices, indices, err := sceneGeometry(cfg)
	require.NoError(t, err)
	assert.Equal(t, "terrain", name)

	// A 3x3 grid, not the 8 cube corners.
	assert.Len(t, vertices, 9)
	assert.Len(t, indices, 24)
}

func TestSceneGeometryTerrainMissingHeightmapFails(t *testing.T) {
	cfg := config.Default()
	cfg.Terrain.Enabled = true
	cfg.Terrain.HeightmapPath = filepath.Join(t.TempDir(), "nope.png")

	_, _, _, err := sceneGeometry(cfg)
	require.Error(t, err)
}
