// Package gpu renders decoded frames through the gogpu WebGPU backend,
// importing hardware frames as DMA-BUF textures when the window system
// allows and uploading plane data otherwise.
package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gogpu/gpu"
	"github.com/gogpu/gogpu/gpu/types"

	"github.com/lightview/lightview/internal/colorspace"
	"github.com/lightview/lightview/internal/logger"
	"github.com/lightview/lightview/internal/render"
	"github.com/lightview/lightview/internal/video"
	"github.com/lightview/lightview/internal/video/drmprime"
	"github.com/lightview/lightview/internal/viewport"
)

// backendAPI is the slice of gpu.Backend the presenter uses. Narrowing the
// dependency keeps tests honest about which calls actually happen.
type backendAPI interface {
	Name() string
	CreateInstance() (types.Instance, error)
	RequestAdapter(instance types.Instance, opts *types.AdapterOptions) (types.Adapter, error)
	RequestDevice(adapter types.Adapter, opts *types.DeviceOptions) (types.Device, error)
	GetQueue(device types.Device) types.Queue
	CreateBuffer(device types.Device, desc *types.BufferDescriptor) (types.Buffer, error)
	ReleaseBuffer(buffer types.Buffer)
	WriteBuffer(queue types.Queue, buffer types.Buffer, offset uint64, data []byte)
	CreateTexture(device types.Device, desc *types.TextureDescriptor) (types.Texture, error)
	ReleaseTexture(texture types.Texture)
	WriteTexture(queue types.Queue, dst *types.ImageCopyTexture, data []byte, layout *types.ImageDataLayout, size *types.Extent3D)
	CreateTextureView(texture types.Texture, desc *types.TextureViewDescriptor) types.TextureView
	CreateBindGroupLayout(device types.Device, desc *types.BindGroupLayoutDescriptor) (types.BindGroupLayout, error)
	ReleaseBindGroupLayout(layout types.BindGroupLayout)
	CreatePipelineLayout(device types.Device, desc *types.PipelineLayoutDescriptor) (types.PipelineLayout, error)
	ReleasePipelineLayout(layout types.PipelineLayout)
	CreateBindGroup(device types.Device, desc *types.BindGroupDescriptor) (types.BindGroup, error)
	ReleaseBindGroup(group types.BindGroup)
}

type presenterState int

const (
	stateUninitialized presenterState = iota
	stateInitialized
	stateSpecialized
)

// Presenter implements render.Renderer on top of a WebGPU device. It is
// driven from a single goroutine.
type Presenter struct {
	api      backendAPI
	surface  Surface
	exporter *drmprime.Exporter

	instance types.Instance
	adapter  types.Adapter
	device   types.Device
	queue    types.Queue

	params    *render.Params
	vsyncMode render.VSyncMode
	state     presenterState

	// Specialized per frame format.
	format    video.PixelFormat
	bgLayout  types.BindGroupLayout
	pipLayout types.PipelineLayout
	uniform   types.Buffer
	planes    []types.Texture
	views     []types.TextureView
	uploadBG  types.BindGroup
	haveBG    bool

	curCS   colorspace.Colorspace
	curFull bool
}

// NewPresenter builds a presenter over the active gogpu backend and the
// given window surface.
func NewPresenter(surface Surface) *Presenter {
	return newPresenter(nil, surface)
}

func newPresenter(api backendAPI, surface Surface) *Presenter {
	return &Presenter{
		api:      api,
		surface:  surface,
		exporter: drmprime.NewExporter(),
	}
}

// Initialize brings up the device and negotiates the swapchain mode.
func (p *Presenter) Initialize(params *render.Params) error {
	if p.api == nil {
		backend := gpu.GetBackend()
		if backend == nil {
			if err := gpu.InitDefaultBackend(); err != nil {
				return fmt.Errorf("no gpu backend: %w", err)
			}
			backend = gpu.GetBackend()
		}
		if backend == nil {
			return errors.New("no gpu backend available")
		}
		p.api = backend
	}
	logger.Debugf("gpu presenter using backend: %s", p.api.Name())

	instance, err := p.api.CreateInstance()
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	p.instance = instance

	adapter, err := p.api.RequestAdapter(instance, &types.AdapterOptions{
		PowerPreference: types.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	p.adapter = adapter

	device, err := p.api.RequestDevice(adapter, &types.DeviceOptions{
		Label: "lightview-present",
	})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	p.device = device
	p.queue = p.api.GetQueue(device)

	mode, err := p.negotiateVSync(params.EnableVSync)
	if err != nil {
		return err
	}
	p.vsyncMode = mode
	logger.Infof("swapchain configured: vsync=%s", mode)

	p.params = params
	p.state = stateInitialized
	return nil
}

// negotiateVSync degrades through the acceptable modes until the surface
// takes one.
func (p *Presenter) negotiateVSync(enabled bool) (render.VSyncMode, error) {
	modes := []render.VSyncMode{render.VSyncImmediate}
	if enabled {
		modes = []render.VSyncMode{render.VSyncAdaptive, render.VSyncFixed, render.VSyncImmediate}
	}
	var lastErr error
	for _, mode := range modes {
		err := p.surface.Configure(p.device, mode)
		if err == nil {
			return mode, nil
		}
		if !errors.Is(err, ErrVSyncUnsupported) {
			return 0, fmt.Errorf("configure surface: %w", err)
		}
		lastErr = err
	}
	return 0, fmt.Errorf("no usable vsync mode: %w", lastErr)
}

// VSyncMode is the mode the swapchain ended up with.
func (p *Presenter) VSyncMode() render.VSyncMode {
	return p.vsyncMode
}

func (p *Presenter) NeedsTestFrame() bool                 { return true }
func (p *Presenter) FramePacing() render.PacingPreference { return render.PacingAny }
func (p *Presenter) RenderThreadSupported() bool          { return true }

// RenderFrame converts and presents one frame. The pipeline specializes
// lazily on the first frame and respecializes when the format changes.
func (p *Presenter) RenderFrame(frame *video.Frame) error {
	if p.state == stateUninitialized {
		return errors.New("presenter not initialized")
	}
	if p.state == stateInitialized || frame.Format != p.format {
		if err := p.specialize(frame); err != nil {
			return err
		}
	}
	p.refreshConversion(frame)

	dst := viewport.Fit(frame.Width, frame.Height, p.surfaceW(), p.surfaceH())

	if frame.IsHardware() {
		return p.renderImported(frame, dst)
	}
	return p.renderUploaded(frame, dst)
}

func (p *Presenter) surfaceW() int { w, _ := p.surface.Size(); return w }
func (p *Presenter) surfaceH() int { _, h := p.surface.Size(); return h }

// renderImported draws a hardware frame through DMA-BUF import. The image
// set is closed before returning no matter what happened.
func (p *Presenter) renderImported(frame *video.Frame, dst image.Rectangle) error {
	set, err := p.exporter.Export(frame)
	if err != nil {
		return fmt.Errorf("export frame: %w", err)
	}
	defer func() {
		if cerr := set.Close(); cerr != nil {
			logger.Warnf("release imported frame: %v", cerr)
		}
	}()

	views, err := p.surface.ImportImages(p.device, set)
	if err != nil {
		return fmt.Errorf("import frame: %w", err)
	}

	group, err := p.makeBindGroup(views)
	if err != nil {
		return err
	}
	defer p.api.ReleaseBindGroup(group)

	if err := p.surface.Draw(p.queue, group, dst); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// renderUploaded copies plane data into the persistent textures and draws.
func (p *Presenter) renderUploaded(frame *video.Frame, dst image.Rectangle) error {
	specs := planeSpecs(frame.Format)
	if len(frame.Planes) != len(specs) {
		return fmt.Errorf("frame has %d planes, want %d", len(frame.Planes), len(specs))
	}

	for i, spec := range specs {
		w := frame.Width / spec.divW
		h := frame.Height / spec.divH
		p.api.WriteTexture(p.queue,
			&types.ImageCopyTexture{
				Texture:  p.planes[i],
				MipLevel: 0,
				Origin:   types.Origin3D{},
				Aspect:   types.TextureAspectAll,
			},
			frame.Planes[i],
			&types.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(frame.Strides[i]),
				RowsPerImage: uint32(h),
			},
			&types.Extent3D{
				Width:              uint32(w),
				Height:             uint32(h),
				DepthOrArrayLayers: 1,
			})
	}

	if err := p.surface.Draw(p.queue, p.uploadBG, dst); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// specialize builds the format-specific pipeline state: shader, layouts,
// conversion uniform and the upload textures.
func (p *Presenter) specialize(frame *video.Frame) error {
	p.dropSpecialization()

	specs := planeSpecs(frame.Format)

	entries := make([]types.BindGroupLayoutEntry, 0, len(specs)+1)
	entries = append(entries, types.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: types.ShaderStageFragment,
		Buffer: &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeUniform,
			MinBindingSize: convertUniformSize,
		},
	})
	for i := range specs {
		entries = append(entries, types.BindGroupLayoutEntry{
			Binding:    uint32(i + 1),
			Visibility: types.ShaderStageFragment,
			Texture: &types.TextureBindingLayout{
				SampleType:    types.TextureSampleTypeFloat,
				ViewDimension: types.TextureViewDimension2D,
			},
		})
	}

	bgLayout, err := p.api.CreateBindGroupLayout(p.device, &types.BindGroupLayoutDescriptor{
		Label:   "convert-bindings",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	p.bgLayout = bgLayout

	pipLayout, err := p.api.CreatePipelineLayout(p.device, &types.PipelineLayoutDescriptor{
		Label:            "convert-pipeline",
		BindGroupLayouts: []types.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipLayout = pipLayout

	uniform, err := p.api.CreateBuffer(p.device, &types.BufferDescriptor{
		Label: "convert-matrix",
		Size:  convertUniformSize,
		Usage: types.BufferUsageUniform | types.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	p.uniform = uniform

	for i, spec := range specs {
		tex, err := p.api.CreateTexture(p.device, &types.TextureDescriptor{
			Label: fmt.Sprintf("plane-%d", i),
			Size: types.Extent3D{
				Width:              uint32(frame.Width / spec.divW),
				Height:             uint32(frame.Height / spec.divH),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     types.TextureDimension2D,
			Format:        spec.format,
			Usage:         types.TextureUsageCopyDst | types.TextureUsageTextureBinding,
		})
		if err != nil {
			return fmt.Errorf("create plane texture %d: %w", i, err)
		}
		p.planes = append(p.planes, tex)
		p.views = append(p.views, p.api.CreateTextureView(tex, nil))
	}

	// Shader compile failures are terminal: nothing about retrying the
	// same source will change the outcome.
	if err := p.surface.BuildPipeline(p.device, pipLayout, shaderFor(frame.Format)); err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	conv := colorspace.MatrixFor(frame.Colorspace, frame.FullRange)
	p.api.WriteBuffer(p.queue, p.uniform, 0, packConversion(conv))
	p.curCS = frame.Colorspace
	p.curFull = frame.FullRange

	group, err := p.makeBindGroup(p.views)
	if err != nil {
		return err
	}
	p.uploadBG = group
	p.haveBG = true

	p.format = frame.Format
	p.state = stateSpecialized
	logger.Infof("presenter specialized: format=%s %dx%d", frame.Format, frame.Width, frame.Height)
	return nil
}

// refreshConversion rewrites the matrix uniform when the stream's tagged
// colorspace changes mid-session.
func (p *Presenter) refreshConversion(frame *video.Frame) {
	if frame.Colorspace == p.curCS && frame.FullRange == p.curFull {
		return
	}
	conv := colorspace.MatrixFor(frame.Colorspace, frame.FullRange)
	p.api.WriteBuffer(p.queue, p.uniform, 0, packConversion(conv))
	p.curCS = frame.Colorspace
	p.curFull = frame.FullRange
	logger.Debugf("conversion updated: %s full=%v", frame.Colorspace, frame.FullRange)
}

func (p *Presenter) makeBindGroup(views []types.TextureView) (types.BindGroup, error) {
	entries := make([]types.BindGroupEntry, 0, len(views)+1)
	entries = append(entries, types.BindGroupEntry{
		Binding: 0,
		Buffer:  p.uniform,
		Offset:  0,
		Size:    convertUniformSize,
	})
	for i, v := range views {
		entries = append(entries, types.BindGroupEntry{
			Binding:     uint32(i + 1),
			TextureView: v,
		})
	}
	group, err := p.api.CreateBindGroup(p.device, &types.BindGroupDescriptor{
		Label:   "convert-resources",
		Layout:  p.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return group, fmt.Errorf("create bind group: %w", err)
	}
	return group, nil
}

func (p *Presenter) dropSpecialization() {
	if p.haveBG {
		p.api.ReleaseBindGroup(p.uploadBG)
		p.haveBG = false
	}
	for _, tex := range p.planes {
		p.api.ReleaseTexture(tex)
	}
	p.planes = nil
	p.views = nil
	if p.state == stateSpecialized {
		p.api.ReleaseBuffer(p.uniform)
		p.api.ReleasePipelineLayout(p.pipLayout)
		p.api.ReleaseBindGroupLayout(p.bgLayout)
		p.state = stateInitialized
	}
}

// Close releases everything. The device handles themselves are managed by
// the backend.
func (p *Presenter) Close() error {
	if p.state == stateUninitialized {
		return nil
	}
	p.dropSpecialization()
	p.surface.Close()
	p.device = 0
	p.adapter = 0
	p.instance = 0
	p.queue = 0
	p.state = stateUninitialized
	return nil
}

// planeSpec describes one upload texture for a pixel format.
type planeSpec struct {
	format     types.TextureFormat
	divW, divH int
}

func planeSpecs(f video.PixelFormat) []planeSpec {
	switch f {
	case video.FormatNV12:
		return []planeSpec{
			{types.TextureFormatR8Unorm, 1, 1},
			{types.TextureFormatRG8Unorm, 2, 2},
		}
	case video.FormatP010:
		return []planeSpec{
			{types.TextureFormatR16Unorm, 1, 1},
			{types.TextureFormatRG16Unorm, 2, 2},
		}
	case video.FormatYUV420:
		return []planeSpec{
			{types.TextureFormatR8Unorm, 1, 1},
			{types.TextureFormatR8Unorm, 2, 2},
			{types.TextureFormatR8Unorm, 2, 2},
		}
	default:
		return []planeSpec{{types.TextureFormatRGBA8Unorm, 1, 1}}
	}
}

// packConversion lays out a Conversion for the shader uniform: the matrix
// as three vec4-padded columns, then the offsets.
func packConversion(c colorspace.Conversion) []byte {
	buf := make([]byte, convertUniformSize)
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			putF32(buf[col*16+row*4:], c.Matrix[row*3+col])
		}
	}
	for i := 0; i < 3; i++ {
		putF32(buf[48+i*4:], c.Offset[i])
	}
	return buf
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
