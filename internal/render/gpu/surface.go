package gpu

import (
	"errors"
	"image"

	"github.com/gogpu/gogpu/gpu/types"

	"github.com/lightview/lightview/internal/render"
	"github.com/lightview/lightview/internal/video"
)

// ErrVSyncUnsupported is returned by Configure when the output cannot do
// the requested mode; the presenter then degrades to the next one.
var ErrVSyncUnsupported = errors.New("gpu: vsync mode unsupported")

// ErrImportUnsupported is returned by ImportImages when the window system
// cannot wrap DMA-BUF planes; the presenter falls back to uploading.
var ErrImportUnsupported = errors.New("gpu: direct image import unsupported")

// Surface is the window-system side of the presenter: the swapchain, the
// render pipeline against the swapchain format, and frame presentation.
// Everything device-independent stays in the Presenter.
type Surface interface {
	// Configure creates or resizes the swapchain with the given vsync
	// mode. Returns ErrVSyncUnsupported to make the presenter try the
	// next mode.
	Configure(device types.Device, mode render.VSyncMode) error

	// Size is the current drawable size in pixels.
	Size() (int, int)

	// BuildPipeline compiles the conversion shader against the swapchain
	// format. A compile failure is terminal for this renderer.
	BuildPipeline(device types.Device, layout types.PipelineLayout, wgsl string) error

	// ImportImages wraps exported DMA-BUF planes as sampleable texture
	// views. The set stays owned by the caller and outlives the returned
	// views only until the next frame.
	ImportImages(device types.Device, set *video.ImageSet) ([]types.TextureView, error)

	// Draw renders one frame with the bound resources into dst and
	// presents it. Everything outside dst is cleared to black.
	Draw(queue types.Queue, group types.BindGroup, dst image.Rectangle) error

	Close()
}
