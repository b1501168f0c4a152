package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/prisma/engine/assets"
	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
	"github.com/spaghettifunk/prisma/engine/terrain"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	cfg          *config.Application
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	renderer     *vulkan.VulkanRenderer
	watcher      *assets.ShaderWatcher
	width        uint32
	height       uint32
	clock        *core.Clock
}

func New(cfg *config.Application) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine requires a configuration")
	}

	core.SetLogLevel(cfg.LogLevel)

	p := platform.New()

	return &Engine{
		currentStage: EngineStageUninitialized,
		cfg:          cfg,
		clock:        core.NewClock(),
		platform:     p,
		renderer:     vulkan.New(p, &cfg.Renderer),
		isRunning:    false,
		isSuspended:  false,
		width:        cfg.StartWidth,
		height:       cfg.StartHeight,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onQuit)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(e.cfg.Name, e.cfg.StartPosX, e.cfg.StartPosY, e.width, e.height); err != nil {
		return err
	}

	if err := e.renderer.Initialize(e.cfg.Name, e.width, e.height); err != nil {
		return err
	}

	if err := e.loadScene(); err != nil {
		return err
	}

	if e.cfg.Renderer.ShaderWatchDir != "" {
		watcher, err := assets.NewShaderWatcher(e.cfg.Renderer.ShaderWatchDir)
		if err != nil {
			// Hot reload is a development convenience, not a hard
			// requirement.
			core.LogWarn("shader watching disabled: %s", err)
		} else {
			e.watcher = watcher
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// sceneGeometry resolves the one mesh the renderer draws: the heightmap
// terrain when configured, otherwise the rotating cube.
func sceneGeometry(cfg *config.Application) (string, []math.ColorVertex, []uint16, error) {
	if cfg.Terrain.Enabled {
		hm, err := terrain.LoadHeightmap(cfg.Terrain.HeightmapPath)
		if err != nil {
			return "", nil, nil, err
		}
		vertices, indices, err := hm.BuildMesh(cfg.Terrain.ScaleXY, cfg.Terrain.ScaleY)
		if err != nil {
			return "", nil, nil, err
		}
		return "terrain", vertices, indices, nil
	}

	vertices, indices := vulkan.CubeGeometry()
	return "cube", vertices, indices, nil
}

// loadScene uploads the scene geometry to the GPU.
func (e *Engine) loadScene() error {
	name, vertices, indices, err := sceneGeometry(e.cfg)
	if err != nil {
		return err
	}
	mesh, err := vulkan.NewMesh(e.renderer.Context(), name, vertices, indices)
	if err != nil {
		return err
	}
	e.renderer.AttachMesh(mesh)
	return nil
}

func (e *Engine) Run() error {
	e.isRunning = true
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	lastTime := e.clock.Elapsed()

	metricsLogAccumulator := 0.0

	for e.isRunning {
		e.platform.PumpMessages()

		if e.isSuspended {
			// Nothing to draw while minimized; block until an event
			// restores the window instead of spinning.
			e.platform.WaitForValidDrawable()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - lastTime
		lastTime = currentTime

		if e.watcher != nil && e.watcher.ConsumeChanged() {
			e.renderer.NotifyShadersChanged()
		}

		if err := e.renderer.DrawFrame(currentTime); err != nil {
			if errors.Is(err, core.ErrSurfaceOutOfDate) {
				// Recoverable. The renderer already rebuilt, skip the
				// frame.
				continue
			}
			core.LogError("frame draw failed, shutting down: %s", err)
			e.isRunning = false
			break
		}

		core.MetricsUpdate(delta)
		metricsLogAccumulator += delta
		if metricsLogAccumulator >= 5.0 {
			fps, frameTime := core.MetricsFrame()
			core.LogDebug("fps: %.1f, frame time: %.2fms", fps, frameTime)
			metricsLogAccumulator = 0
		}
	}

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	core.LogInfo("Shutting down...")

	if e.watcher != nil {
		e.watcher.Close()
		e.watcher = nil
	}
	if err := e.renderer.Shutdown(); err != nil {
		core.LogError("renderer shutdown failed: %s", err)
	}
	return e.platform.Shutdown()
}

func (e *Engine) onQuit(context core.EventContext) {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning = false
}

func (e *Engine) onResized(context core.EventContext) {
	width := context.Data.U32[0]
	height := context.Data.U32[1]

	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height

	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.renderer.Resized(width, height)
}
