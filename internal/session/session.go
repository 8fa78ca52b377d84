// Package session ties one stream's moving parts together: the packet
// stream, the input translator, and the selected renderer share a lifecycle
// so teardown cannot leave half of them running.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lightview/lightview/internal/config"
	"github.com/lightview/lightview/internal/input"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/protocol"
	"github.com/lightview/lightview/internal/render"
	"github.com/lightview/lightview/internal/video"
)

// HostCapabilities describes the negotiated feature level of the remote
// host, fixed for the life of a session.
type HostCapabilities struct {
	Gen5          bool
	Extended      bool
	BatchedScroll bool
}

// Options collects everything a session needs at construction.
type Options struct {
	Config       *config.Config
	Sender       protocol.Sender
	Window       input.Window
	Capabilities HostCapabilities

	// Renderers are tried in order; the config renderer override
	// filters them by name.
	Renderers []render.Factory

	// HasWindowManager gates the capture shortcut combos.
	HasWindowManager bool
	// InitialGamepadMask seeds the translator's attached-pad mask.
	InitialGamepadMask uint16
}

// Session is the lifecycle object for one stream.
type Session struct {
	id     uuid.UUID
	opts   Options
	stream *protocol.Stream

	mu           sync.Mutex
	translator   *input.Translator
	renderer     render.Renderer
	rendererName string
	started      bool
	stopped      bool
	frames       uint64
	startedAt    time.Time
}

// New builds a session. Nothing runs until Start.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("session needs a config")
	}
	if opts.Sender == nil {
		return nil, errors.New("session needs a sender")
	}
	if opts.Window == nil {
		return nil, errors.New("session needs a window")
	}
	return &Session{
		id:   uuid.New(),
		opts: opts,
		stream: protocol.NewStream(opts.Sender, protocol.Options{
			Gen5:          opts.Capabilities.Gen5,
			Extended:      opts.Capabilities.Extended,
			BatchedScroll: opts.Capabilities.BatchedScroll,
		}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Start selects a renderer and begins input translation.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("session already started")
	}
	if s.stopped {
		return errors.New("session already stopped")
	}

	cfg := s.opts.Config
	params := &render.Params{
		Width:             cfg.Video.Width,
		Height:            cfg.Video.Height,
		EnableVSync:       cfg.Video.VSync,
		EnableFramePacing: cfg.Video.FramePacing,
	}

	if candidates := s.candidates(); len(candidates) > 0 {
		renderer, name, err := render.Select(params, candidates)
		if err != nil {
			return fmt.Errorf("select renderer: %w", err)
		}
		s.renderer = renderer
		s.rendererName = name
	} else {
		// Embedders provide presentation backends; without any the
		// session still translates input.
		logger.Info("no presentation backend, input-only session")
	}

	s.translator = input.NewTranslator(s.stream, s.opts.Window, input.Options{
		StreamWidth:        cfg.Video.Width,
		StreamHeight:       cfg.Video.Height,
		AbsoluteMouse:      cfg.Input.AbsoluteMouse,
		MultiController:    cfg.Input.MultiController,
		GamepadAsMouse:     cfg.Input.GamepadAsMouse,
		HasWindowManager:   s.opts.HasWindowManager,
		PollingInterval:    time.Duration(cfg.Input.MousePollingIntervalMs) * time.Millisecond,
		InitialGamepadMask: s.opts.InitialGamepadMask,
	})
	s.translator.Start()

	s.started = true
	s.startedAt = time.Now()
	if s.rendererName != "" {
		logger.Infof("session %s started with %s renderer", s.id, s.rendererName)
	} else {
		logger.Infof("session %s started", s.id)
	}
	return nil
}

// candidates applies the config renderer override to the factory list.
func (s *Session) candidates() []render.Factory {
	want := s.opts.Config.Video.Renderer
	if want == "" {
		return s.opts.Renderers
	}
	var out []render.Factory
	for _, f := range s.opts.Renderers {
		if f.Name == want {
			out = append(out, f)
		}
	}
	if out == nil {
		logger.Warnf("no renderer named %q, trying all", want)
		return s.opts.Renderers
	}
	return out
}

// Stop tears everything down in reverse start order. Safe to call twice and
// safe before Start.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true

	if s.translator != nil {
		s.translator.Close()
		s.translator = nil
	}
	if s.renderer != nil {
		if err := s.renderer.Close(); err != nil {
			logger.Warnf("close renderer: %v", err)
		}
		s.renderer = nil
	}
	s.stream.Close()

	if s.started {
		logger.Infof("session %s stopped after %s, %d frames",
			s.id, time.Since(s.startedAt).Round(time.Second), s.frames)
	}
}

// Translator exposes the input translator for the windowing event loop.
func (s *Session) Translator() *input.Translator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translator
}

// RendererName reports which renderer the selector picked.
func (s *Session) RendererName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendererName
}

// SubmitFrame presents one decoded frame. Render failures are logged, not
// fatal: the next frame usually recovers.
func (s *Session) SubmitFrame(frame *video.Frame) {
	s.mu.Lock()
	renderer := s.renderer
	if renderer != nil {
		s.frames++
	}
	s.mu.Unlock()
	if renderer == nil {
		return
	}
	if err := renderer.RenderFrame(frame); err != nil {
		logger.Warnf("render frame: %v", err)
	}
}

// HandleRumble routes a host haptic event to the gamepad table.
func (s *Session) HandleRumble(number int16, lowFreq, highFreq uint16) {
	s.mu.Lock()
	tr := s.translator
	s.mu.Unlock()
	if tr != nil {
		tr.Rumble(number, lowFreq, highFreq)
	}
}
