package gpu

import (
	"fmt"
	"image"

	"github.com/scattered3d/scattered/pointrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// OverlayPass blends a premultiplied RGBA image over the frame with a
// fullscreen triangle. The image comes from the CPU each time it changes.
type OverlayPass struct {
	Device *wgpu.Device

	Pipeline        *wgpu.RenderPipeline
	BindGroupLayout *wgpu.BindGroupLayout
	Sampler         *wgpu.Sampler

	Texture   *wgpu.Texture
	View      *wgpu.TextureView
	BindGroup *wgpu.BindGroup
	Width     uint32
	Height    uint32
}

func NewOverlayPass(device *wgpu.Device, format wgpu.TextureFormat) (*OverlayPass, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	p := &OverlayPass{Device: device}

	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "OverlayShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.OverlayWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("overlay shader: %w", err)
	}
	defer mod.Release()

	p.BindGroupLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "OverlayBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("overlay bind group layout: %w", err)
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "OverlayLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.BindGroupLayout},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("overlay pipeline layout: %w", err)
	}
	defer layout.Release()

	p.Pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "OverlayPipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					},
					Alpha: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					},
				},
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		// Drawn inside the points pass, so it must accept the depth attachment.
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("overlay pipeline: %w", err)
	}

	p.Sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("overlay sampler: %w", err)
	}
	return p, nil
}

// Resize recreates the overlay texture and its bind group.
func (p *OverlayPass) Resize(width, height uint32) error {
	if p.Texture != nil && p.Width == width && p.Height == height {
		return nil
	}
	p.releaseTarget()

	var err error
	p.Texture, err = p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Overlay",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("overlay texture %dx%d: %w", width, height, err)
	}
	p.View, err = p.Texture.CreateView(nil)
	if err != nil {
		p.releaseTarget()
		return fmt.Errorf("overlay view: %w", err)
	}
	p.BindGroup, err = p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "OverlayBG",
		Layout: p.BindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.View},
			{Binding: 1, Sampler: p.Sampler},
		},
	})
	if err != nil {
		p.releaseTarget()
		return fmt.Errorf("overlay bind group: %w", err)
	}
	p.Width, p.Height = width, height
	return nil
}

// Upload replaces the overlay contents. The image must match the texture size.
func (p *OverlayPass) Upload(queue *wgpu.Queue, img *image.RGBA) error {
	if p.Texture == nil {
		return fmt.Errorf("overlay upload: no texture")
	}
	b := img.Bounds()
	if uint32(b.Dx()) != p.Width || uint32(b.Dy()) != p.Height {
		return fmt.Errorf("overlay upload: image %dx%d, texture %dx%d", b.Dx(), b.Dy(), p.Width, p.Height)
	}
	queue.WriteTexture(p.Texture.AsImageCopy(), img.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: p.Height,
	}, &wgpu.Extent3D{Width: p.Width, Height: p.Height, DepthOrArrayLayers: 1})
	return nil
}

func (p *OverlayPass) Draw(pass *wgpu.RenderPassEncoder) {
	if p.Pipeline == nil || p.BindGroup == nil {
		return
	}
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.Draw(3, 1, 0, 0)
}

func (p *OverlayPass) releaseTarget() {
	if p.BindGroup != nil {
		p.BindGroup.Release()
		p.BindGroup = nil
	}
	if p.View != nil {
		p.View.Release()
		p.View = nil
	}
	if p.Texture != nil {
		p.Texture.Release()
		p.Texture = nil
	}
	p.Width, p.Height = 0, 0
}

func (p *OverlayPass) Release() {
	if p == nil {
		return
	}
	p.releaseTarget()
	if p.Sampler != nil {
		p.Sampler.Release()
		p.Sampler = nil
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
	if p.BindGroupLayout != nil {
		p.BindGroupLayout.Release()
		p.BindGroupLayout = nil
	}
}
