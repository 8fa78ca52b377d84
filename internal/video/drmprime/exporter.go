// Package drmprime exports decoded hardware surfaces as DMA-BUF image sets
// that a renderer can import without copying through system memory.
package drmprime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/video"
)

// ErrSoftwareFrame is returned when a frame has no device surface to
// export. Callers fall back to the software upload path.
var ErrSoftwareFrame = errors.New("drmprime: frame is not hardware backed")

// ErrUnsupported is returned once a device has proven it cannot export
// surfaces. The result is cached so the failing path is not retried per
// frame.
var ErrUnsupported = errors.New("drmprime: device cannot export surfaces")

// Exporter turns hardware frames into DMA-BUF image sets. Export support is
// probed on first use per device and remembered.
type Exporter struct {
	mu       sync.Mutex
	verdicts map[video.DeviceContext]bool
}

func NewExporter() *Exporter {
	return &Exporter{verdicts: make(map[video.DeviceContext]bool)}
}

// CanExport probes whether the device can export the given surface. The
// probe performs a real export and releases everything it received; the
// verdict is cached per device.
func (e *Exporter) CanExport(dev video.DeviceContext, probeSurface uint32) bool {
	e.mu.Lock()
	if verdict, ok := e.verdicts[dev]; ok {
		e.mu.Unlock()
		return verdict
	}
	e.mu.Unlock()

	set, err := export(dev, probeSurface)
	ok := err == nil
	if ok {
		if cerr := set.Close(); cerr != nil {
			logger.Warnf("probe image close: %v", cerr)
		}
	} else {
		logger.Debugf("surface export unavailable: %v", err)
	}

	e.mu.Lock()
	e.verdicts[dev] = ok
	e.mu.Unlock()
	return ok
}

// Export synchronizes the frame's surface and exports its planes. The
// returned set owns the descriptors; the caller must Close it after
// importing, success or not.
func (e *Exporter) Export(frame *video.Frame) (*video.ImageSet, error) {
	if !frame.IsHardware() {
		return nil, ErrSoftwareFrame
	}

	dev := frame.Hardware.Device
	e.mu.Lock()
	verdict, probed := e.verdicts[dev]
	e.mu.Unlock()
	if probed && !verdict {
		return nil, ErrUnsupported
	}

	set, err := export(dev, frame.Hardware.ID)
	if err != nil {
		if !probed {
			e.mu.Lock()
			e.verdicts[dev] = false
			e.mu.Unlock()
		}
		return nil, err
	}
	if !probed {
		e.mu.Lock()
		e.verdicts[dev] = true
		e.mu.Unlock()
	}
	return set, nil
}

func export(dev video.DeviceContext, id uint32) (*video.ImageSet, error) {
	// Sync first so the export never observes a half-decoded surface.
	if err := dev.SyncSurface(id); err != nil {
		return nil, fmt.Errorf("sync surface %d: %w", id, err)
	}

	descs, err := dev.ExportSurface(id)
	if err != nil {
		return nil, fmt.Errorf("export surface %d: %w", id, err)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("export surface %d: no planes", id)
	}

	set := &video.ImageSet{Planes: make([]*video.PlaneImage, 0, len(descs))}
	for _, d := range descs {
		set.Planes = append(set.Planes, video.NewPlaneImage(d))
	}
	return set, nil
}
