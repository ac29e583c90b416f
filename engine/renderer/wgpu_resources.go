package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// stateTextureUsage lets one texture be sampled by the particle renderer, written by the
// simulation's storage binding and refilled from the CPU.
const stateTextureUsage = wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding |
	wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc

func (b *wgpuBackend) createStateTexture(label string, data common.FloatTextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         stateTextureUsage,
		Dimension:     wgpu.TextureDimension2D,
		Size:          wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA32Float,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("state texture %s: %w", label, err)
	}
	if data.Texels != nil {
		b.uploadTexels(tex, data)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("state texture %s view: %w", label, err)
	}
	return tex, view, nil
}

func (b *wgpuBackend) writeStateTexture(tex *wgpu.Texture, data common.FloatTextureStagingData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadTexels(tex, data)
}

// uploadTexels replaces the whole image. Caller holds b.mu.
func (b *wgpuBackend) uploadTexels(tex *wgpu.Texture, data common.FloatTextureStagingData) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		common.Float32sToBytes(data.Texels),
		&wgpu.TextureDataLayout{BytesPerRow: data.BytesPerRow(), RowsPerImage: data.Height},
		&wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1},
	)
}

func (b *wgpuBackend) initInstanceBuffer(provider bind_group_provider.BindGroupProvider, data []byte, vertexCount int) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: empty instance data", provider.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    provider.Label() + " instances",
		Contents: data,
		Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%s instance buffer: %w", provider.Label(), err)
	}
	provider.SetVertexBuffer(buf)
	provider.SetVertexCount(vertexCount)
	return nil
}

// initBindGroup builds the bind group for desc on provider. Texture entries use the views already
// attached to the provider; buffer entries reuse the provider's buffer or allocate one of
// MinBindingSize bytes (or the size override) with a usage derived from the binding type.
func (b *wgpuBackend) initBindGroup(provider bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, usage map[int]wgpu.BufferUsage, sizes map[int]uint64) error {
	if len(desc.Entries) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		if layout, err = b.device.CreateBindGroupLayout(&desc); err != nil {
			return fmt.Errorf("%s layout: %w", provider.Label(), err)
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		binding := int(e.Binding)
		if e.Sampler.Type != wgpu.SamplerBindingTypeUndefined {
			return fmt.Errorf("%s: binding %d is a sampler; state textures are read with textureLoad", provider.Label(), binding)
		}
		if isTextureEntry(e) {
			view := provider.TextureView(binding)
			if view == nil {
				return fmt.Errorf("%s: binding %d needs a texture view", provider.Label(), binding)
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, TextureView: view})
			continue
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			size := e.Buffer.MinBindingSize
			if s, ok := sizes[binding]; ok {
				size = s
			}
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
				Size:  size,
				Usage: bufferUsage(e.Buffer.Type) | usage[binding],
			})
			if err != nil {
				return fmt.Errorf("%s binding %d: %w", provider.Label(), binding, err)
			}
			provider.SetBuffer(binding, buf)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, Buffer: buf, Size: wgpu.WholeSize})
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s bind group: %w", provider.Label(), err)
	}
	provider.SetBindGroup(group)
	return nil
}

func isTextureEntry(e wgpu.BindGroupLayoutEntry) bool {
	return e.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
		e.StorageTexture.Format != wgpu.TextureFormatUndefined
}

func bufferUsage(t wgpu.BufferBindingType) wgpu.BufferUsage {
	switch t {
	case wgpu.BufferBindingTypeUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageCopyDst
}

func (b *wgpuBackend) writeBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range writes {
		if buf := w.Provider.Buffer(w.Binding); buf != nil {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}
