// Package render defines the presentation renderer contract and picks a
// working renderer for a stream.
package render

import (
	"github.com/lightview/lightview/internal/colorspace"
	"github.com/lightview/lightview/internal/video"
)

// VSyncMode is the swap interval behavior a presenter ended up with after
// negotiation.
type VSyncMode int

const (
	// VSyncAdaptive tears only when a frame is already late.
	VSyncAdaptive VSyncMode = iota
	// VSyncFixed always waits for the next vertical blank.
	VSyncFixed
	// VSyncImmediate never waits.
	VSyncImmediate
)

func (m VSyncMode) String() string {
	switch m {
	case VSyncAdaptive:
		return "adaptive"
	case VSyncFixed:
		return "fixed"
	case VSyncImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// PacingPreference is a renderer's constraint on frame pacing. The selector
// skips renderers whose constraint contradicts the session configuration.
type PacingPreference int

const (
	// PacingAny works with or without pacing.
	PacingAny PacingPreference = iota
	// PacingForceOff cannot pace; pacing-on sessions must skip it.
	PacingForceOff
	// PacingForceOn always paces; pacing-off sessions must skip it.
	PacingForceOn
)

// Params carries everything a renderer needs to initialize for a stream.
type Params struct {
	Width  int
	Height int
	Format video.PixelFormat

	Colorspace colorspace.Colorspace
	FullRange  bool

	// EnableVSync asks for vblank-synchronized presentation. Renderers
	// degrade through adaptive, fixed and immediate as the output allows.
	EnableVSync bool
	// EnableFramePacing asks the renderer to smooth delivery jitter by
	// holding frames until their display slot.
	EnableFramePacing bool
}

// Renderer presents decoded frames. Implementations are driven from a
// single goroutine; Close may race only with nothing.
type Renderer interface {
	// Initialize prepares the renderer for the given stream. A renderer
	// that fails here is discarded without further calls except Close.
	Initialize(params *Params) error
	// RenderFrame draws and presents one frame.
	RenderFrame(frame *video.Frame) error
	// NeedsTestFrame reports whether the renderer can only prove it works
	// by rendering; such renderers get a blank probe frame before being
	// accepted.
	NeedsTestFrame() bool
	// FramePacing is the renderer's pacing constraint.
	FramePacing() PacingPreference
	// RenderThreadSupported reports whether frames may be submitted from
	// a dedicated render goroutine rather than the main loop.
	RenderThreadSupported() bool
	Close() error
}
