// Package software is the CPU fallback renderer: YCbCr conversion on the
// CPU, scaling via x/image/draw, presentation through a window blitter. It
// is the renderer of last resort and only handles software frames.
package software

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/lightview/lightview/internal/colorspace"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/render"
	"github.com/lightview/lightview/internal/video"
	"github.com/lightview/lightview/internal/viewport"
)

// Blitter shows a finished RGBA canvas in the window.
type Blitter interface {
	Size() (int, int)
	Blit(img *image.RGBA) error
	Close() error
}

// Renderer implements render.Renderer fully on the CPU.
type Renderer struct {
	blit   Blitter
	params *render.Params

	converted *image.RGBA
	canvas    *image.RGBA
}

func NewRenderer(blit Blitter) *Renderer {
	return &Renderer{blit: blit}
}

func (r *Renderer) Initialize(params *render.Params) error {
	if params.Width <= 0 || params.Height <= 0 {
		return fmt.Errorf("bad stream size %dx%d", params.Width, params.Height)
	}
	r.params = params
	r.converted = image.NewRGBA(image.Rect(0, 0, params.Width, params.Height))
	logger.Info("software renderer ready")
	return nil
}

func (r *Renderer) NeedsTestFrame() bool                 { return false }
func (r *Renderer) FramePacing() render.PacingPreference { return render.PacingAny }
func (r *Renderer) RenderThreadSupported() bool          { return true }

func (r *Renderer) RenderFrame(frame *video.Frame) error {
	if frame.IsHardware() {
		return errors.New("software renderer cannot read device frames")
	}
	if err := r.convert(frame); err != nil {
		return err
	}

	w, h := r.blit.Size()
	if r.canvas == nil || r.canvas.Rect.Dx() != w || r.canvas.Rect.Dy() != h {
		r.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	imagedraw.Draw(r.canvas, r.canvas.Rect, image.NewUniform(color.Black), image.Point{}, imagedraw.Src)

	dst := viewport.Fit(frame.Width, frame.Height, w, h)
	xdraw.ApproxBiLinear.Scale(r.canvas, dst, r.converted, r.converted.Rect, xdraw.Src, nil)

	if err := r.blit.Blit(r.canvas); err != nil {
		return fmt.Errorf("blit: %w", err)
	}
	return nil
}

// convert turns the frame's planes into RGBA using the tagged conversion.
func (r *Renderer) convert(frame *video.Frame) error {
	if r.converted.Rect.Dx() != frame.Width || r.converted.Rect.Dy() != frame.Height {
		r.converted = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	}

	if frame.Format == video.FormatRGBA {
		return r.copyRGBA(frame)
	}

	conv := colorspace.MatrixFor(frame.Colorspace, frame.FullRange)
	sample, err := samplerFor(frame)
	if err != nil {
		return err
	}

	for y := 0; y < frame.Height; y++ {
		row := r.converted.Pix[y*r.converted.Stride:]
		for x := 0; x < frame.Width; x++ {
			ly, cb, cr := sample(x, y)
			rr, gg, bb := apply(conv, ly, cb, cr)
			o := x * 4
			row[o+0] = rr
			row[o+1] = gg
			row[o+2] = bb
			row[o+3] = 0xFF
		}
	}
	return nil
}

func (r *Renderer) copyRGBA(frame *video.Frame) error {
	if len(frame.Planes) != 1 {
		return fmt.Errorf("rgba frame has %d planes", len(frame.Planes))
	}
	src := frame.Planes[0]
	for y := 0; y < frame.Height; y++ {
		copy(r.converted.Pix[y*r.converted.Stride:y*r.converted.Stride+frame.Width*4],
			src[y*frame.Strides[0]:])
	}
	return nil
}

// samplerFor returns a per-pixel Y/Cb/Cr sampler normalized to 0..1.
func samplerFor(frame *video.Frame) (func(x, y int) (float32, float32, float32), error) {
	switch frame.Format {
	case video.FormatNV12:
		if len(frame.Planes) != 2 {
			return nil, fmt.Errorf("nv12 frame has %d planes", len(frame.Planes))
		}
		luma, chroma := frame.Planes[0], frame.Planes[1]
		ls, cs := frame.Strides[0], frame.Strides[1]
		return func(x, y int) (float32, float32, float32) {
			c := (y/2)*cs + (x/2)*2
			return float32(luma[y*ls+x]) / 255,
				float32(chroma[c]) / 255,
				float32(chroma[c+1]) / 255
		}, nil
	case video.FormatP010:
		if len(frame.Planes) != 2 {
			return nil, fmt.Errorf("p010 frame has %d planes", len(frame.Planes))
		}
		luma, chroma := frame.Planes[0], frame.Planes[1]
		ls, cs := frame.Strides[0], frame.Strides[1]
		return func(x, y int) (float32, float32, float32) {
			lo := y*ls + x*2
			co := (y/2)*cs + (x/2)*4
			return float32(u16le(luma, lo)) / 65535,
				float32(u16le(chroma, co)) / 65535,
				float32(u16le(chroma, co+2)) / 65535
		}, nil
	case video.FormatYUV420:
		if len(frame.Planes) != 3 {
			return nil, fmt.Errorf("yuv420 frame has %d planes", len(frame.Planes))
		}
		ly, cb, cr := frame.Planes[0], frame.Planes[1], frame.Planes[2]
		ls, bs, rs := frame.Strides[0], frame.Strides[1], frame.Strides[2]
		return func(x, y int) (float32, float32, float32) {
			return float32(ly[y*ls+x]) / 255,
				float32(cb[(y/2)*bs+x/2]) / 255,
				float32(cr[(y/2)*rs+x/2]) / 255
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format %s", frame.Format)
	}
}

func u16le(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func apply(c colorspace.Conversion, y, cb, cr float32) (uint8, uint8, uint8) {
	y -= c.Offset[0]
	cb -= c.Offset[1]
	cr -= c.Offset[2]
	r := c.Matrix[0]*y + c.Matrix[1]*cb + c.Matrix[2]*cr
	g := c.Matrix[3]*y + c.Matrix[4]*cb + c.Matrix[5]*cr
	b := c.Matrix[6]*y + c.Matrix[7]*cb + c.Matrix[8]*cr
	return clamp8(r), clamp8(g), clamp8(b)
}

func clamp8(v float32) uint8 {
	s := v*255 + 0.5
	if s < 0 {
		return 0
	}
	if s > 255 {
		return 255
	}
	return uint8(s)
}

func (r *Renderer) Close() error {
	if r.blit != nil {
		return r.blit.Close()
	}
	return nil
}
