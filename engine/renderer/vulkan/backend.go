package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
)

type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext
	cfg      *config.Renderer

	loop *frameLoop

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool

	meshes []*Mesh

	FrameNumber uint64

	// Scene time for the current frame, written before recording.
	elapsedSeconds float64

	debug bool
}

func New(p *platform.Platform, cfg *config.Renderer) *VulkanRenderer {
	return &VulkanRenderer{
		platform:    p,
		cfg:         cfg,
		FrameNumber: 0,
		context: &VulkanContext{
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
			Device:            &VulkanDevice{},
		},
		debug: cfg.EnableValidation,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogError("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	vr.context.Allocator = nil
	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prisma Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.RequiredExtensionNames()...)

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	requiredValidationLayerNames := []string{}

	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")

		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}

		// Verify all required layers are available.
		for i := range requiredValidationLayerNames {
			core.LogInfo("Searching for layer: %s...", requiredValidationLayerNames[i])
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					core.LogInfo("Found.")
					break
				}
			}

			if !found {
				core.LogError("Required validation layer is missing: %s", requiredValidationLayerNames[i])
				return core.ErrValidationLayerUnavailable
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg

		core.LogDebug("Vulkan debugger created.")
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface := vr.createVulkanSurface()
	if surface == 0 {
		err := fmt.Errorf("failed to create platform surface")
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	// The set layout lives for the whole application; the pool and the
	// frame slots are rebuilt together with the swapchain.
	layout, err := DescriptorSetLayoutCreate(vr.context)
	if err != nil {
		return err
	}
	vr.descriptorSetLayout = layout

	// Swapchain and everything derived from it.
	if err := vr.createSwapchainResources(vr.context.FramebufferWidth, vr.context.FramebufferHeight); err != nil {
		return err
	}

	if err := vr.createFrameResources(); err != nil {
		return err
	}
	vr.context.CurrentFrame = 0

	vr.loop = newFrameLoop(vr, MaxFramesInFlight)

	core.LogInfo("Vulkan renderer initialized successfully.")

	return nil
}

// AttachMesh hands a mesh to the renderer, which draws and owns it
// from this point on.
func (vr *VulkanRenderer) AttachMesh(mesh *Mesh) {
	vr.meshes = append(vr.meshes, mesh)
}

// Context exposes the shared Vulkan state for mesh uploads.
func (vr *VulkanRenderer) Context() *VulkanContext {
	return vr.context
}

// DrawFrame renders one frame at the given scene time. Out of date
// surfaces are recovered internally; a nil return does not guarantee a
// frame was presented, only that the renderer is healthy.
func (vr *VulkanRenderer) DrawFrame(elapsedSeconds float64) error {
	vr.elapsedSeconds = elapsedSeconds
	if err := vr.loop.DrawFrame(); err != nil {
		return err
	}
	vr.FrameNumber++
	vr.context.CurrentFrame = vr.loop.Cursor()
	return nil
}

// Resized records the new drawable size and schedules a swapchain
// rebuild. Multiple resize events between frames coalesce into one.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height
	if vr.loop != nil {
		vr.loop.RequestResize()
	}
}

// NotifyShadersChanged schedules a pipeline rebuild so freshly compiled
// shader binaries get picked up without restarting.
func (vr *VulkanRenderer) NotifyShadersChanged() {
	core.LogInfo("Shader binaries changed on disk, scheduling pipeline rebuild.")
	if vr.loop != nil {
		vr.loop.RequestResize()
	}
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	for _, mesh := range vr.meshes {
		mesh.Destroy(vr.context)
	}
	vr.meshes = nil

	vr.destroySwapchainResources()
	vr.destroyFrameResources()

	if vr.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.descriptorSetLayout, vr.context.Allocator)
		vr.descriptorSetLayout = vk.NullDescriptorSetLayout
	}

	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	vr.context.Instance = nil

	return nil
}

// createSwapchainResources builds the swapchain, renderpass, pipeline
// and framebuffers. Everything here is torn down and rebuilt together
// when the surface goes out of date.
func (vr *VulkanRenderer) createSwapchainResources(width, height uint32) error {
	sc, err := SwapchainCreate(vr.context, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(vr.context, 0.0, 0.0, 0.2, 1.0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	pipeline, err := NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           rp,
		VertexShaderPath:     vr.cfg.VertexShaderPath,
		FragmentShaderPath:   vr.cfg.FragShaderPath,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptorSetLayout},
	})
	if err != nil {
		return err
	}
	vr.context.Pipeline = pipeline

	sc.Framebuffers = make([]*VulkanFramebuffer, sc.ImageCount)
	for i := 0; i < int(sc.ImageCount); i++ {
		fb, err := FramebufferCreate(vr.context, rp, sc.Extent.Width, sc.Extent.Height, []vk.ImageView{sc.Views[i]})
		if err != nil {
			return err
		}
		sc.Framebuffers[i] = fb
	}

	return nil
}

func (vr *VulkanRenderer) destroySwapchainResources() {
	sc := vr.context.Swapchain
	if sc == nil {
		return
	}

	for _, fb := range sc.Framebuffers {
		if fb != nil {
			fb.Destroy(vr.context)
		}
	}
	sc.Framebuffers = nil

	if vr.context.Pipeline != nil {
		vr.context.Pipeline.Destroy(vr.context)
		vr.context.Pipeline = nil
	}
	if vr.context.MainRenderpass != nil {
		vr.context.MainRenderpass.Destroy(vr.context)
		vr.context.MainRenderpass = nil
	}

	sc.SwapchainDestroy(vr.context)
	vr.context.Swapchain = nil
}

// createFrameResources allocates the descriptor pool and the
// per-frame-in-flight slots. Fences start signaled so the first wait on
// each slot returns immediately.
func (vr *VulkanRenderer) createFrameResources() error {
	pool, err := DescriptorPoolCreate(vr.context, MaxFramesInFlight)
	if err != nil {
		return err
	}
	vr.descriptorPool = pool

	vr.context.FrameSlots = make([]*VulkanFrameSlot, MaxFramesInFlight)
	for i := 0; i < MaxFramesInFlight; i++ {
		slot, err := NewFrameSlot(vr.context, vr.descriptorPool, vr.descriptorSetLayout)
		if err != nil {
			return err
		}
		vr.context.FrameSlots[i] = slot
	}
	return nil
}

// destroyFrameResources unmaps and frees the slot uniform buffers, then
// drops the pool, which frees the descriptor sets with it.
func (vr *VulkanRenderer) destroyFrameResources() {
	for _, slot := range vr.context.FrameSlots {
		if slot != nil {
			slot.Destroy(vr.context)
		}
	}
	vr.context.FrameSlots = nil

	if vr.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.descriptorPool, vr.context.Allocator)
		vr.descriptorPool = vk.NullDescriptorPool
	}
}

func (vr *VulkanRenderer) createVulkanSurface() uintptr {
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return 0
	}
	return surface
}

// frameOps implementation. The frame scheduler in frameloop.go calls
// these in a fixed order; see that file for the recovery policy.

func (vr *VulkanRenderer) WaitSlotFence(slot uint32) error {
	if !vr.context.FrameSlots[slot].InFlightFence.FenceWait(vr.context, math.MaxUint64) {
		return fmt.Errorf("in flight fence wait failed for slot %d", slot)
	}
	return nil
}

func (vr *VulkanRenderer) AcquireImage(slot uint32) (uint32, bool, error) {
	imageIndex, suboptimal, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(
		vr.context,
		math.MaxUint64,
		vr.context.FrameSlots[slot].ImageAvailableSemaphore,
		vk.NullFence)
	if err != nil {
		return 0, false, err
	}
	vr.context.ImageIndex = imageIndex
	return imageIndex, suboptimal, nil
}

func (vr *VulkanRenderer) ResetSlotFence(slot uint32) error {
	return vr.context.FrameSlots[slot].InFlightFence.FenceReset(vr.context)
}

func (vr *VulkanRenderer) Record(slot uint32, imageIndex uint32) error {
	frame := vr.context.FrameSlots[slot]
	sc := vr.context.Swapchain

	aspect := float32(sc.Extent.Width) / float32(sc.Extent.Height)
	frame.UpdateTransform(vr.elapsedSeconds, aspect)

	cb := frame.CommandBuffer
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	vr.context.MainRenderpass.Begin(cb, sc.Framebuffers[imageIndex], sc.Extent)

	vr.context.Pipeline.Bind(cb, vk.PipelineBindPointGraphics)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(sc.Extent.Width),
		Height:   float32(sc.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: sc.Extent,
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics,
		vr.context.Pipeline.PipelineLayout, 0, 1,
		[]vk.DescriptorSet{frame.DescriptorSet}, 0, nil)

	for _, mesh := range vr.meshes {
		mesh.Draw(cb)
	}

	vr.context.MainRenderpass.End(cb)

	return cb.End()
}

func (vr *VulkanRenderer) Submit(slot uint32) error {
	frame := vr.context.FrameSlots[slot]

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{frame.ImageAvailableSemaphore},
		// Color output stalls until the image is actually available,
		// earlier pipeline stages are free to run.
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.QueueCompleteSemaphore},
	}

	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlightFence.Handle); res != vk.Success {
		err := fmt.Errorf("queue submit failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	frame.CommandBuffer.UpdateSubmitted()
	return nil
}

func (vr *VulkanRenderer) Present(slot uint32, imageIndex uint32) error {
	frame := vr.context.FrameSlots[slot]
	return vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.PresentQueue,
		frame.QueueCompleteSemaphore,
		imageIndex)
}

func (vr *VulkanRenderer) WaitDrawableExtent() (uint32, uint32) {
	return vr.platform.WaitForValidDrawable()
}

// RebuildSwapchain tears down everything derived from the surface and
// recreates it at the new size. Re-entrant calls are ignored since a
// rebuild can itself report out of date on some drivers.
func (vr *VulkanRenderer) RebuildSwapchain(width, height uint32) error {
	if vr.context.RecreatingSwapchain {
		core.LogDebug("RebuildSwapchain called while already recreating, ignoring.")
		return nil
	}
	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.destroySwapchainResources()
	vr.destroyFrameResources()
	if err := vr.createSwapchainResources(width, height); err != nil {
		return err
	}
	if err := vr.createFrameResources(); err != nil {
		return err
	}

	core.LogInfo("Swapchain rebuilt at %dx%d.", width, height)
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
