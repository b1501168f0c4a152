package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, uint32(800), cfg.StartWidth)
	require.Equal(t, uint32(600), cfg.StartHeight)
	require.True(t, cfg.Renderer.EnableValidation)
	require.False(t, cfg.Terrain.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma.toml")
	content := `
name = "testapp"
start_width = 1280
start_height = 720
log_level = "warn"

[renderer]
enable_validation = false
vertex_shader_path = "out/custom.vert.spv"

[terrain]
enabled = true
heightmap_path = "assets/hills.png"
scale_xy = 0.5
scale_y = 8.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "testapp", cfg.Name)
	require.Equal(t, uint32(1280), cfg.StartWidth)
	require.Equal(t, core.LogLevel("warn"), cfg.LogLevel)
	require.False(t, cfg.Renderer.EnableValidation)
	require.Equal(t, "out/custom.vert.spv", cfg.Renderer.VertexShaderPath)
	// untouched fields keep their defaults
	require.Equal(t, "shaders/cube.frag.spv", cfg.Renderer.FragShaderPath)
	require.True(t, cfg.Terrain.Enabled)
	require.Equal(t, float32(8.0), cfg.Terrain.ScaleY)
}

func TestLoadRejectsZeroWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma.toml")
	require.NoError(t, os.WriteFile(path, []byte("start_width = 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prisma.toml")
	require.NoError(t, os.WriteFile(path, []byte("= not toml ="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
