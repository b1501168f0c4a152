package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

// Mesh owns device local vertex and index buffers for one drawable
// piece of geometry.
type Mesh struct {
	ID           uuid.UUID
	Name         string
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
}

// NewMesh uploads the vertices and indices through staging buffers.
func NewMesh(context *VulkanContext, name string, vertices []math.ColorVertex, indices []uint16) (*Mesh, error) {
	mesh := &Mesh{
		ID:         uuid.New(),
		Name:       name,
		IndexCount: uint32(len(indices)),
	}

	vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(vertices[0])))
	vb, err := UploadDeviceLocal(context, vertexBytes, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	mesh.VertexBuffer = vb

	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*2)
	ib, err := UploadDeviceLocal(context, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vb.Destroy(context)
		return nil, err
	}
	mesh.IndexBuffer = ib

	core.LogDebug("Mesh '%s' uploaded (%d vertices, %d indices).", name, len(vertices), len(indices))
	return mesh, nil
}

func (m *Mesh) Destroy(context *VulkanContext) {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Destroy(context)
		m.VertexBuffer = nil
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Destroy(context)
		m.IndexBuffer = nil
	}
}

// Draw records the bind and indexed draw commands for this mesh.
func (m *Mesh) Draw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{m.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, m.IndexBuffer.Handle, 0, vk.IndexTypeUint16)
	vk.CmdDrawIndexed(commandBuffer.Handle, m.IndexCount, 1, 0, 0, 0)
}

// CubeGeometry returns the unit cube with a distinct color per corner.
func CubeGeometry() ([]math.ColorVertex, []uint16) {
	vertices := []math.ColorVertex{
		{Position: math.Vec3{X: -0.5, Y: -0.5, Z: 0.5}, Color: math.Vec3{X: 1, Y: 0, Z: 0}},  // front-bottom-left
		{Position: math.Vec3{X: 0.5, Y: -0.5, Z: 0.5}, Color: math.Vec3{X: 0, Y: 1, Z: 0}},   // front-bottom-right
		{Position: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, Color: math.Vec3{X: 0, Y: 0, Z: 1}},    // front-top-right
		{Position: math.Vec3{X: -0.5, Y: 0.5, Z: 0.5}, Color: math.Vec3{X: 1, Y: 1, Z: 0}},   // front-top-left
		{Position: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5}, Color: math.Vec3{X: 1, Y: 0, Z: 1}}, // back-bottom-left
		{Position: math.Vec3{X: 0.5, Y: -0.5, Z: -0.5}, Color: math.Vec3{X: 0, Y: 1, Z: 1}},  // back-bottom-right
		{Position: math.Vec3{X: 0.5, Y: 0.5, Z: -0.5}, Color: math.Vec3{X: 1, Y: 1, Z: 1}},   // back-top-right
		{Position: math.Vec3{X: -0.5, Y: 0.5, Z: -0.5}, Color: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}}, // back-top-left
	}

	indices := []uint16{
		0, 1, 2, 2, 3, 0, // front
		1, 5, 6, 6, 2, 1, // right
		5, 4, 7, 7, 6, 5, // back
		4, 0, 3, 3, 7, 4, // left
		3, 2, 6, 6, 7, 3, // top
		4, 5, 1, 1, 0, 4, // bottom
	}

	return vertices, indices
}
