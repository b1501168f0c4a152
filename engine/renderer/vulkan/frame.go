package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

// TransformUBO is the uniform block consumed by the vertex shader at
// binding 0. Field order and std140 packing match the shader.
type TransformUBO struct {
	Model      math.Mat4
	View       math.Mat4
	Projection math.Mat4
}

// VulkanFrameSlot owns everything one in-flight frame needs: a primary
// command buffer, the two semaphores that chain acquire-render-present,
// a fence created signaled so the first wait passes, and a persistently
// mapped uniform buffer with its descriptor set.
type VulkanFrameSlot struct {
	CommandBuffer *VulkanCommandBuffer

	ImageAvailableSemaphore vk.Semaphore
	QueueCompleteSemaphore  vk.Semaphore
	InFlightFence           *VulkanFence

	UniformBuffer *VulkanBuffer
	UniformMapped unsafe.Pointer
	DescriptorSet vk.DescriptorSet
}

func NewFrameSlot(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (*VulkanFrameSlot, error) {
	slot := &VulkanFrameSlot{}

	cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
	if err != nil {
		return nil, err
	}
	slot.CommandBuffer = cb

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.ImageAvailableSemaphore); res != vk.Success {
		err := fmt.Errorf("failed to create image available semaphore with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.QueueCompleteSemaphore); res != vk.Success {
		err := fmt.Errorf("failed to create queue complete semaphore with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	// Created signaled so the first frame does not wait forever on work
	// that was never submitted.
	fence, err := NewFence(context, true)
	if err != nil {
		return nil, err
	}
	slot.InFlightFence = fence

	// The uniform buffer stays mapped for the slot's lifetime.
	ubo, err := BufferCreate(context,
		vk.DeviceSize(unsafe.Sizeof(TransformUBO{})),
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	slot.UniformBuffer = ubo

	mapped, err := ubo.Map(context)
	if err != nil {
		return nil, err
	}
	slot.UniformMapped = mapped

	set, err := DescriptorSetAllocate(context, pool, layout, ubo)
	if err != nil {
		return nil, err
	}
	slot.DescriptorSet = set

	return slot, nil
}

// UpdateTransform writes the rotating model matrix, the fixed camera
// and the aspect corrected projection into the mapped uniform buffer.
func (fs *VulkanFrameSlot) UpdateTransform(elapsedSeconds float64, aspect float32) {
	ubo := TransformUBO{
		Model: math.NewMat4EulerY(math.DegToRad(float32(elapsedSeconds) * 45.0)),
		View: math.NewMat4LookAt(
			math.Vec3{X: 2, Y: 2, Z: 2},
			math.Vec3{X: 0, Y: 0, Z: 0},
			math.Vec3{X: 0, Y: 1, Z: 0}),
		Projection: math.NewMat4PerspectiveVK(math.DegToRad(45.0), aspect, 0.1, 10.0),
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), unsafe.Sizeof(ubo))
	vk.Memcopy(fs.UniformMapped, data)
}

func (fs *VulkanFrameSlot) Destroy(context *VulkanContext) {
	if fs.UniformBuffer != nil {
		fs.UniformBuffer.Unmap(context)
		fs.UniformMapped = nil
		fs.UniformBuffer.Destroy(context)
		fs.UniformBuffer = nil
	}
	if fs.InFlightFence != nil {
		fs.InFlightFence.FenceDestroy(context)
		fs.InFlightFence = nil
	}
	if fs.ImageAvailableSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.ImageAvailableSemaphore, context.Allocator)
		fs.ImageAvailableSemaphore = vk.NullSemaphore
	}
	if fs.QueueCompleteSemaphore != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, fs.QueueCompleteSemaphore, context.Allocator)
		fs.QueueCompleteSemaphore = vk.NullSemaphore
	}
	if fs.CommandBuffer != nil && fs.CommandBuffer.Handle != nil {
		fs.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		fs.CommandBuffer = nil
	}
}
