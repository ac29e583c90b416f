package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	errNoComputeFrame = errors.New("renderer: dispatch outside BeginComputeFrame/EndComputeFrame")
	errNoRenderFrame  = errors.New("renderer: draw outside BeginFrame/EndFrame")
	errFrameInFlight  = errors.New("renderer: previous frame not presented")
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// wgpuBackend drives wgpu-native. One mutex covers the device objects and the open frame
// encoders; the compute and render submissions of a frame are serialized through it.
type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	format      wgpu.TextureFormat
	presentMode wgpu.PresentMode
	samples     uint32
	clearColor  wgpu.Color

	// size-dependent attachments, rebuilt by configureSurface
	msaa  *attachment
	depth *attachment

	compute *wgpu.CommandEncoder
	frame   *openFrame
}

// openFrame is the state between beginFrame and present.
type openFrame struct {
	surface *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

var _ backend = &wgpuBackend{}

// newWGPUBackend opens an adapter compatible with the window surface and a device whose 2D texture
// limit is raised to the adapter's, so large state textures are not held to the WebGPU default.
// The calling goroutine is locked to its OS thread.
func newWGPUBackend(desc *wgpu.SurfaceDescriptor, fallback bool, samples MSAASampleCount) (*wgpuBackend, error) {
	runtime.LockOSThread()

	b := &wgpuBackend{
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		samples:     uint32(max(samples, MSAAOff)),
		clearColor:  wgpu.Color{A: 1},
	}
	b.surface = b.instance.CreateSurface(desc)

	var err error
	b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: fallback,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}

	limits := wgpu.DefaultLimits()
	limits.MaxTextureDimension2D = max(limits.MaxTextureDimension2D, b.adapter.GetLimits().Limits.MaxTextureDimension2D)
	b.device, err = b.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxy-particles",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		b.release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.queue = b.device.GetQueue()
	return b, nil
}

func (b *wgpuBackend) maxTextureDimension2D() uint32 {
	return b.device.GetLimits().Limits.MaxTextureDimension2D
}

func (b *wgpuBackend) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.msaa.release()
	b.depth.release()
	b.msaa, b.depth = nil, nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
