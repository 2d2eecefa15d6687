package gpu

import (
	"errors"
	"fmt"

	"github.com/scattered3d/scattered/pointrt/rt/core"
	"github.com/scattered3d/scattered/pointrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	ErrNoDevice    = errors.New("gpu: no device")
	ErrNoBuffers   = errors.New("gpu: point buffers not uploaded")
	ErrNoPipeline  = errors.New("gpu: point pipeline not created")
	ErrNoBindGroup = errors.New("gpu: bind group not created")
)

// minBufferSize keeps storage bindings valid for an empty cloud.
const minBufferSize = 16

// PointBufferManager owns the point storage buffers, the uniform buffers and
// the billboard pipelines. Calls must follow the order UploadPoints,
// CreatePipeline, CreateBindGroups; out-of-order calls return an error
// instead of touching the device.
type PointBufferManager struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	XBuf     *wgpu.Buffer
	YBuf     *wgpu.Buffer
	ZBuf     *wgpu.Buffer
	ColorBuf *wgpu.Buffer

	UniformBuf        *wgpu.Buffer
	CaptureUniformBuf *wgpu.Buffer

	Shader          *wgpu.ShaderModule
	BindGroupLayout *wgpu.BindGroupLayout
	PipelineLayout  *wgpu.PipelineLayout
	Pipelines       map[wgpu.TextureFormat]*wgpu.RenderPipeline

	BindGroup        *wgpu.BindGroup
	CaptureBindGroup *wgpu.BindGroup

	Count uint32
}

func NewPointBufferManager(device *wgpu.Device) *PointBufferManager {
	return &PointBufferManager{
		Device:    device,
		Pipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}
}

func (m *PointBufferManager) queue() *wgpu.Queue {
	if m.Queue == nil {
		m.Queue = m.Device.GetQueue()
	}
	return m.Queue
}

// ensureBuffer grows buf to hold data and writes it. It reports whether the
// buffer was recreated, which invalidates bind groups referencing it.
func (m *PointBufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, size uint64, usage wgpu.BufferUsage) (bool, error) {
	if size < uint64(len(data)) {
		size = uint64(len(data))
	}
	if size < minBufferSize {
		size = minBufferSize
	}
	if size%4 != 0 {
		size += 4 - size%4
	}

	recreated := false
	current := *buf
	if current == nil || current.GetSize() < size {
		if current != nil {
			current.Release()
		}
		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  size,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("create %s buffer: %w", name, err)
		}
		*buf = newBuf
		recreated = true
	}
	if len(data) > 0 {
		m.queue().WriteBuffer(*buf, 0, data)
	}
	return recreated, nil
}

// UploadPoints copies positions and colors into storage buffers and makes
// sure both uniform buffers exist. The cloud must carry 4 colors per point.
func (m *PointBufferManager) UploadPoints(cloud core.PointCloud) error {
	if m.Device == nil {
		return ErrNoDevice
	}
	if err := cloud.Validate(); err != nil {
		return err
	}
	if len(cloud.Colors) != 4*cloud.Len() {
		return fmt.Errorf("upload points: %d colors for %d points", len(cloud.Colors), cloud.Len())
	}

	uploads := []struct {
		name  string
		buf   **wgpu.Buffer
		data  []byte
		size  uint64
		usage wgpu.BufferUsage
	}{
		{"PointsX", &m.XBuf, float32Bytes(cloud.X), 0, wgpu.BufferUsageStorage},
		{"PointsY", &m.YBuf, float32Bytes(cloud.Y), 0, wgpu.BufferUsageStorage},
		{"PointsZ", &m.ZBuf, float32Bytes(cloud.Z), 0, wgpu.BufferUsageStorage},
		{"PointsColor", &m.ColorBuf, float32Bytes(cloud.Colors), 0, wgpu.BufferUsageStorage},
		{"Uniforms", &m.UniformBuf, nil, UniformSize, wgpu.BufferUsageUniform},
		{"CaptureUniforms", &m.CaptureUniformBuf, nil, UniformSize, wgpu.BufferUsageUniform},
	}

	stale := false
	for _, u := range uploads {
		recreated, err := m.ensureBuffer(u.name, u.buf, u.data, u.size, u.usage)
		if err != nil {
			return err
		}
		stale = stale || recreated
	}
	if stale {
		m.releaseBindGroups()
	}
	m.Count = uint32(cloud.Len())
	return nil
}

func (m *PointBufferManager) hasBuffers() bool {
	return m.XBuf != nil && m.YBuf != nil && m.ZBuf != nil && m.ColorBuf != nil &&
		m.UniformBuf != nil && m.CaptureUniformBuf != nil
}

// CreatePipeline builds the billboard pipeline for a color target format.
// The layout is shared so on-screen and offscreen pipelines accept the same
// bind groups.
func (m *PointBufferManager) CreatePipeline(format wgpu.TextureFormat) error {
	if m.Device == nil {
		return ErrNoDevice
	}
	if _, ok := m.Pipelines[format]; ok {
		return nil
	}

	if m.Shader == nil {
		mod, err := m.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          "PointsShader",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.PointsWGSL},
		})
		if err != nil {
			return fmt.Errorf("points shader: %w", err)
		}
		m.Shader = mod
	}

	if m.BindGroupLayout == nil {
		storage := func(binding uint32) wgpu.BindGroupLayoutEntry {
			return wgpu.BindGroupLayoutEntry{
				Binding:    binding,
				Visibility: wgpu.ShaderStageVertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			}
		}
		bgl, err := m.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label: "PointsBGL",
			Entries: []wgpu.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: wgpu.ShaderStageVertex,
					Buffer: wgpu.BufferBindingLayout{
						Type:           wgpu.BufferBindingTypeUniform,
						MinBindingSize: UniformSize,
					},
				},
				storage(1), // x
				storage(2), // y
				storage(3), // z
				storage(4), // rgba
			},
		})
		if err != nil {
			return fmt.Errorf("points bind group layout: %w", err)
		}
		m.BindGroupLayout = bgl

		layout, err := m.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            "PointsLayout",
			BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
		})
		if err != nil {
			return fmt.Errorf("points pipeline layout: %w", err)
		}
		m.PipelineLayout = layout
	}

	pipeline, err := m.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "PointsPipeline",
		Layout: m.PipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     m.Shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     m.Shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      keepStencil,
			StencilBack:       keepStencil,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("points pipeline (%v): %w", format, err)
	}
	m.Pipelines[format] = pipeline
	return nil
}

var keepStencil = wgpu.StencilFaceState{
	Compare:     wgpu.CompareFunctionAlways,
	FailOp:      wgpu.StencilOperationKeep,
	DepthFailOp: wgpu.StencilOperationKeep,
	PassOp:      wgpu.StencilOperationKeep,
}

// CreateBindGroups binds the point buffers to the on-screen uniform buffer
// and to the capture uniform buffer.
func (m *PointBufferManager) CreateBindGroups() error {
	if m.Device == nil {
		return ErrNoDevice
	}
	if !m.hasBuffers() {
		return ErrNoBuffers
	}
	if m.BindGroupLayout == nil {
		return ErrNoPipeline
	}
	m.releaseBindGroups()

	var err error
	m.BindGroup, err = m.bindGroup("PointsBG", m.UniformBuf)
	if err != nil {
		return err
	}
	m.CaptureBindGroup, err = m.bindGroup("PointsCaptureBG", m.CaptureUniformBuf)
	return err
}

func (m *PointBufferManager) bindGroup(label string, uniforms *wgpu.Buffer) (*wgpu.BindGroup, error) {
	entry := func(binding uint32, buf *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Size: buf.GetSize()}
	}
	bg, err := m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: m.BindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniforms, Size: UniformSize},
			entry(1, m.XBuf),
			entry(2, m.YBuf),
			entry(3, m.ZBuf),
			entry(4, m.ColorBuf),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return bg, nil
}

func (m *PointBufferManager) WriteUniforms(u Uniforms) error {
	if m.UniformBuf == nil {
		return ErrNoBuffers
	}
	m.queue().WriteBuffer(m.UniformBuf, 0, u.Bytes())
	return nil
}

// WriteCaptureUniforms fills the snapshot buffer used by offscreen captures
// so a screenshot never races the on-screen camera.
func (m *PointBufferManager) WriteCaptureUniforms(u Uniforms) error {
	if m.CaptureUniformBuf == nil {
		return ErrNoBuffers
	}
	m.queue().WriteBuffer(m.CaptureUniformBuf, 0, u.Bytes())
	return nil
}

func (m *PointBufferManager) WriteColors(colors []float32) error {
	if m.ColorBuf == nil {
		return ErrNoBuffers
	}
	if len(colors) != 4*int(m.Count) {
		return fmt.Errorf("write colors: %d values for %d points", len(colors), m.Count)
	}
	if len(colors) == 0 {
		return nil
	}
	m.queue().WriteBuffer(m.ColorBuf, 0, float32Bytes(colors))
	return nil
}

// Encode records the instanced billboard draw: 3 vertices per point.
func (m *PointBufferManager) Encode(pass *wgpu.RenderPassEncoder, format wgpu.TextureFormat, capture bool) error {
	pipeline := m.Pipelines[format]
	if pipeline == nil {
		return ErrNoPipeline
	}
	bg := m.BindGroup
	if capture {
		bg = m.CaptureBindGroup
	}
	if bg == nil {
		return ErrNoBindGroup
	}
	if m.Count == 0 {
		return nil
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, m.Count, 0, 0)
	return nil
}

func (m *PointBufferManager) releaseBindGroups() {
	if m.BindGroup != nil {
		m.BindGroup.Release()
		m.BindGroup = nil
	}
	if m.CaptureBindGroup != nil {
		m.CaptureBindGroup.Release()
		m.CaptureBindGroup = nil
	}
}

// Release frees every GPU object the manager owns. It is safe to call more
// than once and on a manager that never got past construction.
func (m *PointBufferManager) Release() {
	if m == nil {
		return
	}
	m.releaseBindGroups()
	for format, p := range m.Pipelines {
		p.Release()
		delete(m.Pipelines, format)
	}
	if m.PipelineLayout != nil {
		m.PipelineLayout.Release()
		m.PipelineLayout = nil
	}
	if m.BindGroupLayout != nil {
		m.BindGroupLayout.Release()
		m.BindGroupLayout = nil
	}
	if m.Shader != nil {
		m.Shader.Release()
		m.Shader = nil
	}
	for _, buf := range []**wgpu.Buffer{&m.XBuf, &m.YBuf, &m.ZBuf, &m.ColorBuf, &m.UniformBuf, &m.CaptureUniformBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	m.Count = 0
}
