package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// attachment is a render target texture sized to the surface.
type attachment struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func (a *attachment) release() {
	if a == nil {
		return
	}
	a.view.Release()
	a.tex.Release()
}

func (b *wgpuBackend) newAttachment(label string, format wgpu.TextureFormat, width, height int) (*attachment, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   b.samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%s view: %w", label, err)
	}
	return &attachment{tex: tex, view: view}, nil
}

// configureSurface (re)configures the swapchain and rebuilds the depth target, plus the
// multisampled color target when MSAA is on. Both share the swapchain's sample count.
func (b *wgpuBackend) configureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	caps := b.surface.GetCapabilities(b.adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("surface reports no formats for this adapter")
	}
	b.format = caps.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})

	b.msaa.release()
	b.depth.release()
	b.msaa, b.depth = nil, nil

	var err error
	if b.samples > 1 {
		if b.msaa, err = b.newAttachment("msaa color", b.format, width, height); err != nil {
			return err
		}
	}
	b.depth, err = b.newAttachment("depth", depthFormat, width, height)
	return err
}

func (b *wgpuBackend) setPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode == PresentModeUncapped {
		b.presentMode = wgpu.PresentModeImmediate
	} else {
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuBackend) setClearColor(r, g, bl float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = wgpu.Color{R: r, G: g, B: bl, A: 1}
}

// beginFrame acquires the swapchain image and opens the render pass. With MSAA the pass draws into
// the multisampled target and resolves into the swapchain image, which is then not stored twice.
func (b *wgpuBackend) beginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame != nil {
		return errFrameInFlight
	}
	if b.depth == nil {
		return fmt.Errorf("begin frame: surface not configured")
	}

	surface, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surface.CreateView(nil)
	if err != nil {
		surface.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surface.Release()
		return err
	}

	color := wgpu.RenderPassColorAttachment{
		View:       view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: b.clearColor,
	}
	if b.msaa != nil {
		color.View = b.msaa.view
		color.ResolveTarget = view
		color.StoreOp = wgpu.StoreOpDiscard
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		},
	})

	b.frame = &openFrame{surface: surface, view: view, encoder: encoder, pass: pass}
	return nil
}

func (b *wgpuBackend) drawCall(p pipeline.Pipeline, instances bind_group_provider.BindGroupProvider, instanceCount uint32, groups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil || b.frame.pass == nil {
		return errNoRenderFrame
	}
	pass := b.frame.pass
	pass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g.BindGroup(), nil)
	}
	pass.SetVertexBuffer(0, instances.VertexBuffer(), 0, wgpu.WholeSize)
	pass.Draw(uint32(instances.VertexCount()), instanceCount, 0, 0)
	return nil
}

// endFrame closes the pass and submits it. On failure the frame is dropped entirely so the next
// beginFrame can acquire a fresh image.
func (b *wgpuBackend) endFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame
	if f == nil || f.pass == nil {
		return nil
	}
	f.pass.End()
	f.pass = nil

	cmd, err := f.encoder.Finish(nil)
	f.encoder.Release()
	f.encoder = nil
	if err != nil {
		f.view.Release()
		f.surface.Release()
		b.frame = nil
		return fmt.Errorf("finish render encoder: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

func (b *wgpuBackend) present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := b.frame
	if f == nil {
		return
	}
	b.surface.Present()
	f.view.Release()
	f.surface.Release()
	b.frame = nil
}
