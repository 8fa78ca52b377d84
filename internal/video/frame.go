// Package video defines decoded frame types shared between the decoder
// integration, the surface exporter and the renderers.
package video

import (
	"github.com/lightview/lightview/internal/colorspace"
)

// PixelFormat identifies the memory layout of a decoded frame.
type PixelFormat int

const (
	// FormatNV12 is 8-bit 4:2:0 with interleaved chroma.
	FormatNV12 PixelFormat = iota
	// FormatP010 is 10-bit 4:2:0 in 16-bit containers, chroma interleaved.
	FormatP010
	// FormatYUV420 is 8-bit 4:2:0 with three separate planes.
	FormatYUV420
	// FormatRGBA is packed 8-bit RGBA, used by test frames.
	FormatRGBA
)

func (f PixelFormat) String() string {
	switch f {
	case FormatNV12:
		return "nv12"
	case FormatP010:
		return "p010"
	case FormatYUV420:
		return "yuv420"
	case FormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// PlaneCount returns the number of separately stored planes.
func (f PixelFormat) PlaneCount() int {
	switch f {
	case FormatNV12, FormatP010:
		return 2
	case FormatYUV420:
		return 3
	default:
		return 1
	}
}

// HighBitDepth reports whether samples are wider than 8 bits.
func (f PixelFormat) HighBitDepth() bool {
	return f == FormatP010
}

// PlaneDesc describes one exported DMA-BUF plane layer. The file descriptor
// is owned by whoever receives the descriptor and must be closed exactly
// once.
type PlaneDesc struct {
	FourCC   uint32
	FD       int
	Offset   uint32
	Pitch    uint32
	Modifier uint64
	Width    int
	Height   int
}

// DeviceContext is the decode device a hardware frame lives on. It maps the
// opaque surface IDs carried by hardware frames to exportable DMA-BUF
// layers.
type DeviceContext interface {
	// SyncSurface blocks until the decoder has finished writing the
	// surface. Exporting before sync shows the previous frame's pixels.
	SyncSurface(id uint32) error
	// ExportSurface hands out one DMA-BUF descriptor per plane. On
	// success the caller owns every returned file descriptor; on error
	// nothing is transferred.
	ExportSurface(id uint32) ([]PlaneDesc, error)
}

// SurfaceRef ties a decoded hardware frame to its device.
type SurfaceRef struct {
	ID     uint32
	Device DeviceContext
}

// Frame is one decoded video frame. Software frames carry plane data
// directly; hardware frames carry a surface reference and nil planes.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat

	Colorspace colorspace.Colorspace
	FullRange  bool

	// Planes and Strides are set for software frames only.
	Planes  [][]byte
	Strides []int

	// Hardware is set for frames still resident on the decode device.
	Hardware *SurfaceRef
}

// IsHardware reports whether the frame's pixels live on the decode device.
func (f *Frame) IsHardware() bool {
	return f.Hardware != nil
}
