package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedBytesPerRow(t *testing.T) {
	assert.Equal(t, uint32(256), AlignedBytesPerRow(1))
	assert.Equal(t, uint32(256), AlignedBytesPerRow(64))
	assert.Equal(t, uint32(512), AlignedBytesPerRow(65))
	assert.Equal(t, uint32(3328), AlignedBytesPerRow(800))
}

func TestUnpadRowsDropsPadding(t *testing.T) {
	const w, h, bpr = 2, 3, 16
	data := make([]byte, bpr*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*bpr + x*4
			data[off] = byte(10*y + x)
			data[off+3] = 255
		}
		// padding bytes must not leak into the image
		for i := w * 4; i < bpr; i++ {
			data[y*bpr+i] = 0xAB
		}
	}

	img, err := UnpadRows(data, w, h, bpr)
	require.NoError(t, err)
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, h, img.Bounds().Dy())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(x, y)
			assert.Equal(t, byte(10*y+x), c.R)
			assert.Equal(t, byte(255), c.A)
		}
	}
	assert.NotContains(t, img.Pix, byte(0xAB))
}

func TestUnpadRowsRejectsBadInput(t *testing.T) {
	_, err := UnpadRows(make([]byte, 64), 4, 1, 8)
	assert.Error(t, err)

	_, err = UnpadRows(make([]byte, 20), 2, 2, 16)
	assert.ErrorIs(t, err, ErrShortReadback)

	// The last row may omit its padding.
	_, err = UnpadRows(make([]byte, 24), 2, 2, 16)
	assert.NoError(t, err)
}

func TestCaptureTargetNeedsDevice(t *testing.T) {
	_, err := NewCaptureTarget(nil, CaptureFormat(wgpu.TextureFormatBGRA8Unorm), 4, 4)
	assert.ErrorIs(t, err, ErrNoDevice)

	var c *CaptureTarget
	assert.NotPanics(t, c.Release)
}

func TestCaptureFormatFollowsSurfaceEncoding(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, CaptureFormat(wgpu.TextureFormatBGRA8UnormSrgb))
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, CaptureFormat(wgpu.TextureFormatRGBA8UnormSrgb))
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, CaptureFormat(wgpu.TextureFormatBGRA8Unorm))
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, CaptureFormat(wgpu.TextureFormatRGBA8Unorm))
}
