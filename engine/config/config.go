package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/prisma/engine/core"
)

// Application is the full engine configuration, loaded from a TOML
// file. Validation layers used to be a compile-time switch; they are a
// plain config field here so release and debug builds share a binary.
type Application struct {
	Name        string        `toml:"name"`
	StartPosX   uint32        `toml:"start_pos_x"`
	StartPosY   uint32        `toml:"start_pos_y"`
	StartWidth  uint32        `toml:"start_width"`
	StartHeight uint32        `toml:"start_height"`
	LogLevel    core.LogLevel `toml:"log_level"`

	Renderer Renderer `toml:"renderer"`
	Terrain  Terrain  `toml:"terrain"`
}

type Renderer struct {
	EnableValidation bool   `toml:"enable_validation"`
	VertexShaderPath string `toml:"vertex_shader_path"`
	FragShaderPath   string `toml:"frag_shader_path"`
	// Directory watched for recompiled shader binaries. Empty disables
	// hot reload.
	ShaderWatchDir string `toml:"shader_watch_dir"`
}

type Terrain struct {
	Enabled       bool    `toml:"enabled"`
	HeightmapPath string  `toml:"heightmap_path"`
	ScaleXY       float32 `toml:"scale_xy"`
	ScaleY        float32 `toml:"scale_y"`
}

// Default returns the configuration used when no file is present.
func Default() *Application {
	return &Application{
		Name:        "Prisma v0.1",
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  800,
		StartHeight: 600,
		LogLevel:    core.DebugLevel,
		Renderer: Renderer{
			EnableValidation: true,
			VertexShaderPath: "shaders/cube.vert.spv",
			FragShaderPath:   "shaders/cube.frag.spv",
			ShaderWatchDir:   "shaders",
		},
		Terrain: Terrain{
			Enabled: false,
			ScaleXY: 0.1,
			ScaleY:  2.0,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing
// file is not an error; a malformed one is.
func Load(path string) (*Application, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("no config file at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.StartWidth == 0 || cfg.StartHeight == 0 {
		return nil, fmt.Errorf("config %s: window size must be nonzero", path)
	}
	return cfg, nil
}
