package video

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// PlaneImage is one importable DMA-BUF plane. It owns the file descriptor
// it wraps; Close releases it and is safe to call more than once.
type PlaneImage struct {
	Desc PlaneDesc

	mu     sync.Mutex
	closed bool
}

// NewPlaneImage takes ownership of the descriptor's file descriptor.
func NewPlaneImage(desc PlaneDesc) *PlaneImage {
	return &PlaneImage{Desc: desc}
}

// Close releases the underlying file descriptor. The first call wins;
// later calls are no-ops.
func (p *PlaneImage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.Desc.FD < 0 {
		return nil
	}
	if err := unix.Close(p.Desc.FD); err != nil {
		return fmt.Errorf("close plane fd %d: %w", p.Desc.FD, err)
	}
	return nil
}

// ImageSet is the full set of planes exported from one surface. The set
// owns its planes' descriptors until Close.
type ImageSet struct {
	Planes []*PlaneImage
}

// Close releases every plane. It keeps going past per-plane errors so one
// bad descriptor cannot leak the rest, and returns the first error seen.
func (s *ImageSet) Close() error {
	var first error
	for _, p := range s.Planes {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
