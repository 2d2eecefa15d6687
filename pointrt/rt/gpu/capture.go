package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// CaptureFormat returns the offscreen color format for a surface format. It
// reads back as plain RGBA and keeps the surface's sRGB encoding so captures
// match the live view.
func CaptureFormat(surface wgpu.TextureFormat) wgpu.TextureFormat {
	switch surface {
	case wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// CaptureTarget is an offscreen color and depth target plus the buffer its
// pixels are copied into for readback.
type CaptureTarget struct {
	Texture  *wgpu.Texture
	View     *wgpu.TextureView
	Depth    DepthTarget
	Readback *wgpu.Buffer
	Format   wgpu.TextureFormat

	Width       uint32
	Height      uint32
	BytesPerRow uint32
}

// AlignedBytesPerRow pads a row of RGBA8 pixels to the copy alignment.
func AlignedBytesPerRow(width uint32) uint32 {
	align := uint32(wgpu.CopyBytesPerRowAlignment)
	return (width*4 + align - 1) / align * align
}

func NewCaptureTarget(device *wgpu.Device, format wgpu.TextureFormat, width, height uint32) (*CaptureTarget, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("capture target %dx%d: empty size", width, height)
	}
	c := &CaptureTarget{
		Width:       width,
		Height:      height,
		BytesPerRow: AlignedBytesPerRow(width),
		Format:      format,
	}

	var err error
	c.Texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "CaptureColor",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("capture texture: %w", err)
	}
	c.View, err = c.Texture.CreateView(nil)
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("capture view: %w", err)
	}
	if err := c.Depth.Ensure(device, width, height); err != nil {
		c.Release()
		return nil, err
	}
	c.Readback, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "CaptureReadback",
		Size:  uint64(c.BytesPerRow) * uint64(height),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("capture readback buffer: %w", err)
	}
	return c, nil
}

// CopyToReadback records the texture-to-buffer copy. It must be encoded
// after the pass that renders into the target.
func (c *CaptureTarget) CopyToReadback(encoder *wgpu.CommandEncoder) {
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  c.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: c.Readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  c.BytesPerRow,
				RowsPerImage: c.Height,
			},
		},
		&wgpu.Extent3D{Width: c.Width, Height: c.Height, DepthOrArrayLayers: 1},
	)
}

// Read maps the readback buffer, blocking on the device until the GPU is
// done, and returns the unpadded image.
func (c *CaptureTarget) Read(device *wgpu.Device) (*image.RGBA, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	size := c.Readback.GetSize()

	done := false
	var status wgpu.BufferMapAsyncStatus
	err := c.Readback.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("map readback: %w", err)
	}
	for !done {
		device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback: status %v", status)
	}
	defer c.Readback.Unmap()

	data := c.Readback.GetMappedRange(0, uint(size))
	return UnpadRows(data, c.Width, c.Height, c.BytesPerRow)
}

var ErrShortReadback = errors.New("gpu: readback shorter than image")

// UnpadRows strips the per-row copy padding from tightly packed RGBA8 rows.
func UnpadRows(data []byte, width, height, bytesPerRow uint32) (*image.RGBA, error) {
	rowBytes := int(width) * 4
	if int(bytesPerRow) < rowBytes {
		return nil, fmt.Errorf("bytes per row %d below row size %d", bytesPerRow, rowBytes)
	}
	if height > 0 && len(data) < int(bytesPerRow)*int(height-1)+rowBytes {
		return nil, ErrShortReadback
	}
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := 0; y < int(height); y++ {
		src := data[y*int(bytesPerRow) : y*int(bytesPerRow)+rowBytes]
		copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], src)
	}
	return img, nil
}

func (c *CaptureTarget) Release() {
	if c == nil {
		return
	}
	if c.Readback != nil {
		c.Readback.Release()
		c.Readback = nil
	}
	c.Depth.Release()
	if c.View != nil {
		c.View.Release()
		c.View = nil
	}
	if c.Texture != nil {
		c.Texture.Release()
		c.Texture = nil
	}
}
