package render

import (
	"fmt"

	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/video"
)

// Factory names a renderer candidate and constructs fresh instances of it.
// Construction must be cheap; expensive work belongs in Initialize.
type Factory struct {
	Name string
	New  func() Renderer
}

// Select walks the candidates in priority order and returns the first one
// that initializes and, when it needs one, survives a test frame. Failed
// candidates are closed before moving on.
func Select(params *Params, candidates []Factory) (Renderer, string, error) {
	for _, c := range candidates {
		r := c.New()

		if skip, reason := pacingConflict(r.FramePacing(), params.EnableFramePacing); skip {
			logger.Debugf("skipping renderer %s: %s", c.Name, reason)
			closeQuiet(c.Name, r)
			continue
		}

		if err := r.Initialize(params); err != nil {
			logger.Infof("renderer %s unavailable: %v", c.Name, err)
			closeQuiet(c.Name, r)
			continue
		}

		if r.NeedsTestFrame() {
			if err := r.RenderFrame(testFrame(params)); err != nil {
				logger.Infof("renderer %s failed test frame: %v", c.Name, err)
				closeQuiet(c.Name, r)
				continue
			}
		}

		logger.Infof("selected renderer: %s", c.Name)
		return r, c.Name, nil
	}
	return nil, "", fmt.Errorf("no usable renderer for %dx%d %s",
		params.Width, params.Height, params.Format)
}

func pacingConflict(pref PacingPreference, pacingEnabled bool) (bool, string) {
	switch {
	case pref == PacingForceOff && pacingEnabled:
		return true, "cannot pace frames"
	case pref == PacingForceOn && !pacingEnabled:
		return true, "always paces frames"
	default:
		return false, ""
	}
}

func closeQuiet(name string, r Renderer) {
	if err := r.Close(); err != nil {
		logger.Warnf("closing renderer %s: %v", name, err)
	}
}

// testFrame builds a blank software frame matching the stream parameters.
// Rendering it exercises the full upload and present path without host
// data.
func testFrame(params *Params) *video.Frame {
	f := &video.Frame{
		Width:      params.Width,
		Height:     params.Height,
		Format:     params.Format,
		Colorspace: params.Colorspace,
		FullRange:  params.FullRange,
	}

	w, h := params.Width, params.Height
	switch params.Format {
	case video.FormatNV12:
		f.Planes = [][]byte{make([]byte, w*h), make([]byte, w*(h/2))}
		f.Strides = []int{w, w}
	case video.FormatP010:
		f.Planes = [][]byte{make([]byte, 2*w*h), make([]byte, 2*w*(h/2))}
		f.Strides = []int{2 * w, 2 * w}
	case video.FormatYUV420:
		f.Planes = [][]byte{
			make([]byte, w*h),
			make([]byte, (w/2)*(h/2)),
			make([]byte, (w/2)*(h/2)),
		}
		f.Strides = []int{w, w / 2, w / 2}
	default:
		f.Planes = [][]byte{make([]byte, 4*w*h)}
		f.Strides = []int{4 * w}
	}
	return f
}
