package renderer

import (
	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType selects the GPU API behind a Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU renders through wgpu-native.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how finished frames reach the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank. The frame loop is paced by the monitor.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately and may tear.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples per pixel of the main render pass. WebGPU guarantees
// 1 and 4; 8 and 16 depend on the adapter.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
	MSAA16x MSAASampleCount = 16
)

// backend is what a GPU API has to provide for the Renderer front end. The front end owns the
// pipeline cache and argument checks; a backend only talks to the device.
type backend interface {
	configureSurface(width, height int) error
	setPresentMode(mode PresentMode)
	setClearColor(r, g, b float64)
	maxTextureDimension2D() uint32

	createRenderPipeline(p pipeline.Pipeline) error
	createComputePipeline(p pipeline.Pipeline) error

	createStateTexture(label string, data common.FloatTextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error)
	writeStateTexture(tex *wgpu.Texture, data common.FloatTextureStagingData)
	initInstanceBuffer(provider bind_group_provider.BindGroupProvider, data []byte, vertexCount int) error
	initBindGroup(provider bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, usage map[int]wgpu.BufferUsage, sizes map[int]uint64) error
	writeBuffers(writes []bind_group_provider.BufferWrite)

	beginComputeFrame() error
	dispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, groups [3]uint32) error
	endComputeFrame() error

	beginFrame() error
	drawCall(p pipeline.Pipeline, instances bind_group_provider.BindGroupProvider, instanceCount uint32, groups []bind_group_provider.BindGroupProvider) error
	endFrame() error
	present()

	release()
}
