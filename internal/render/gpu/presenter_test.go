package gpu

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gogpu/gpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/lightview/lightview/internal/colorspace"
	"github.com/lightview/lightview/internal/render"
	"github.com/lightview/lightview/internal/video"
)

type fakeBackend struct {
	nextHandle uint64

	buffers       int
	textures      int
	bindGroups    int
	releasedBG    int
	releasedTex   int
	uniformWrites [][]byte
	texWrites     int
}

func (f *fakeBackend) handle() uint64 { f.nextHandle++; return f.nextHandle }

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) CreateInstance() (types.Instance, error) {
	return types.Instance(f.handle()), nil
}
func (f *fakeBackend) RequestAdapter(types.Instance, *types.AdapterOptions) (types.Adapter, error) {
	return types.Adapter(f.handle()), nil
}
func (f *fakeBackend) RequestDevice(types.Adapter, *types.DeviceOptions) (types.Device, error) {
	return types.Device(f.handle()), nil
}
func (f *fakeBackend) GetQueue(types.Device) types.Queue { return types.Queue(f.handle()) }
func (f *fakeBackend) CreateBuffer(types.Device, *types.BufferDescriptor) (types.Buffer, error) {
	f.buffers++
	return types.Buffer(f.handle()), nil
}
func (f *fakeBackend) ReleaseBuffer(types.Buffer) { f.buffers-- }
func (f *fakeBackend) WriteBuffer(_ types.Queue, _ types.Buffer, _ uint64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.uniformWrites = append(f.uniformWrites, cp)
}
func (f *fakeBackend) CreateTexture(types.Device, *types.TextureDescriptor) (types.Texture, error) {
	f.textures++
	return types.Texture(f.handle()), nil
}
func (f *fakeBackend) ReleaseTexture(types.Texture) { f.textures--; f.releasedTex++ }
func (f *fakeBackend) WriteTexture(types.Queue, *types.ImageCopyTexture, []byte, *types.ImageDataLayout, *types.Extent3D) {
	f.texWrites++
}
func (f *fakeBackend) CreateTextureView(types.Texture, *types.TextureViewDescriptor) types.TextureView {
	return types.TextureView(f.handle())
}
func (f *fakeBackend) CreateBindGroupLayout(types.Device, *types.BindGroupLayoutDescriptor) (types.BindGroupLayout, error) {
	return types.BindGroupLayout(f.handle()), nil
}
func (f *fakeBackend) ReleaseBindGroupLayout(types.BindGroupLayout) {}
func (f *fakeBackend) CreatePipelineLayout(types.Device, *types.PipelineLayoutDescriptor) (types.PipelineLayout, error) {
	return types.PipelineLayout(f.handle()), nil
}
func (f *fakeBackend) ReleasePipelineLayout(types.PipelineLayout) {}
func (f *fakeBackend) CreateBindGroup(types.Device, *types.BindGroupDescriptor) (types.BindGroup, error) {
	f.bindGroups++
	return types.BindGroup(f.handle()), nil
}
func (f *fakeBackend) ReleaseBindGroup(types.BindGroup) { f.bindGroups--; f.releasedBG++ }

type fakeSurface struct {
	w, h         int
	refuse       map[render.VSyncMode]bool
	mode         render.VSyncMode
	pipelineErr  error
	importErr    error
	pipelines    int
	draws        int
	lastDst      image.Rectangle
	importedSets []*video.ImageSet
}

func (s *fakeSurface) Configure(_ types.Device, mode render.VSyncMode) error {
	if s.refuse[mode] {
		return ErrVSyncUnsupported
	}
	s.mode = mode
	return nil
}

func (s *fakeSurface) Size() (int, int) { return s.w, s.h }

func (s *fakeSurface) BuildPipeline(_ types.Device, _ types.PipelineLayout, wgsl string) error {
	if s.pipelineErr != nil {
		return s.pipelineErr
	}
	s.pipelines++
	return nil
}

func (s *fakeSurface) ImportImages(_ types.Device, set *video.ImageSet) ([]types.TextureView, error) {
	if s.importErr != nil {
		return nil, s.importErr
	}
	s.importedSets = append(s.importedSets, set)
	views := make([]types.TextureView, len(set.Planes))
	return views, nil
}

func (s *fakeSurface) Draw(_ types.Queue, _ types.BindGroup, dst image.Rectangle) error {
	s.draws++
	s.lastDst = dst
	return nil
}

func (s *fakeSurface) Close() {}

func nv12Frame(w, h int, cs colorspace.Colorspace) *video.Frame {
	return &video.Frame{
		Width: w, Height: h,
		Format:     video.FormatNV12,
		Colorspace: cs,
		Planes:     [][]byte{make([]byte, w*h), make([]byte, w*(h/2))},
		Strides:    []int{w, w},
	}
}

func newTestPresenter(t *testing.T, surface *fakeSurface) (*Presenter, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	p := newPresenter(backend, surface)
	require.NoError(t, p.Initialize(&render.Params{
		Width: 1920, Height: 1080,
		Format:      video.FormatNV12,
		EnableVSync: true,
	}))
	return p, backend
}

func TestInitialize_VSyncDegrades(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080, refuse: map[render.VSyncMode]bool{
		render.VSyncAdaptive: true,
	}}
	p, _ := newTestPresenter(t, surface)
	assert.Equal(t, render.VSyncFixed, p.VSyncMode())
}

func TestInitialize_VSyncDisabledGoesImmediate(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080}
	p := newPresenter(&fakeBackend{}, surface)
	require.NoError(t, p.Initialize(&render.Params{Width: 1920, Height: 1080}))
	assert.Equal(t, render.VSyncImmediate, p.VSyncMode())
}

func TestRenderFrame_SoftwareUpload(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080}
	p, backend := newTestPresenter(t, surface)

	frame := nv12Frame(1920, 1080, colorspace.BT709)
	require.NoError(t, p.RenderFrame(frame))

	assert.Equal(t, 1, surface.pipelines, "one pipeline per specialization")
	assert.Equal(t, 2, backend.texWrites, "both NV12 planes uploaded")
	assert.Equal(t, 1, surface.draws)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), surface.lastDst)

	// Second frame reuses the specialization.
	require.NoError(t, p.RenderFrame(frame))
	assert.Equal(t, 1, surface.pipelines)
	assert.Equal(t, 2, surface.draws)
}

func TestRenderFrame_LetterboxesIntoSurface(t *testing.T) {
	surface := &fakeSurface{w: 1024, h: 768}
	p, _ := newTestPresenter(t, surface)

	require.NoError(t, p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT709)))
	assert.Equal(t, image.Rect(0, 96, 1024, 672), surface.lastDst)
}

func TestRenderFrame_ColorspaceChangeRefreshesUniform(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080}
	p, backend := newTestPresenter(t, surface)

	require.NoError(t, p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT601)))
	writes := len(backend.uniformWrites)

	// Same colorspace: no rewrite.
	require.NoError(t, p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT601)))
	assert.Len(t, backend.uniformWrites, writes)

	// Tag change rewrites the matrix.
	require.NoError(t, p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT2020)))
	require.Len(t, backend.uniformWrites, writes+1)

	last := backend.uniformWrites[len(backend.uniformWrites)-1]
	require.Len(t, last, convertUniformSize)
	want := packConversion(colorspace.MatrixFor(colorspace.BT2020, false))
	assert.Equal(t, want, last)
}

func TestRenderFrame_ShaderCompileFailureIsTerminal(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080, pipelineErr: errors.New("wgsl error")}
	p, _ := newTestPresenter(t, surface)

	err := p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT709))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build pipeline")
}

type exportDevice struct {
	t      *testing.T
	handed []int
}

func (d *exportDevice) SyncSurface(uint32) error { return nil }

func (d *exportDevice) ExportSurface(uint32) ([]video.PlaneDesc, error) {
	descs := make([]video.PlaneDesc, 2)
	for i := range descs {
		var fds [2]int
		require.NoError(d.t, unix.Pipe(fds[:]))
		require.NoError(d.t, unix.Close(fds[1]))
		descs[i] = video.PlaneDesc{FD: fds[0]}
		d.handed = append(d.handed, fds[0])
	}
	return descs, nil
}

func (d *exportDevice) openCount() int {
	open := 0
	for _, fd := range d.handed {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err == nil {
			open++
		}
	}
	return open
}

func hwNV12Frame(dev video.DeviceContext) *video.Frame {
	return &video.Frame{
		Width: 1920, Height: 1080,
		Format:     video.FormatNV12,
		Colorspace: colorspace.BT709,
		Hardware:   &video.SurfaceRef{ID: 1, Device: dev},
	}
}

func TestRenderFrame_ImportClosesDescriptors(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080}
	p, backend := newTestPresenter(t, surface)
	dev := &exportDevice{t: t}

	require.NoError(t, p.RenderFrame(hwNV12Frame(dev)))
	assert.Equal(t, 1, surface.draws)
	assert.Zero(t, dev.openCount(), "every exported descriptor is closed after import")

	// The per-frame bind group does not accumulate.
	require.NoError(t, p.RenderFrame(hwNV12Frame(dev)))
	assert.Zero(t, dev.openCount())
	assert.GreaterOrEqual(t, backend.releasedBG, 2)
}

func TestRenderFrame_ImportFailureStillClosesDescriptors(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080, importErr: ErrImportUnsupported}
	p, _ := newTestPresenter(t, surface)
	dev := &exportDevice{t: t}

	err := p.RenderFrame(hwNV12Frame(dev))
	require.Error(t, err)
	assert.Zero(t, dev.openCount())
}

func TestClose_ReleasesResources(t *testing.T) {
	surface := &fakeSurface{w: 1920, h: 1080}
	p, backend := newTestPresenter(t, surface)
	require.NoError(t, p.RenderFrame(nv12Frame(1920, 1080, colorspace.BT709)))

	require.NoError(t, p.Close())
	assert.Zero(t, backend.textures, "all plane textures released")
	assert.Zero(t, backend.buffers, "uniform buffer released")
	assert.Zero(t, backend.bindGroups, "bind groups released")
}

func TestPackConversion_ColumnMajorLayout(t *testing.T) {
	conv := colorspace.Conversion{
		Matrix: [9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Offset: [3]float32{0.1, 0.2, 0.3},
	}
	buf := packConversion(conv)
	require.Len(t, buf, convertUniformSize)

	// First column holds the Y coefficients of each output row.
	assert.Equal(t, float32(1), f32At(buf, 0))
	assert.Equal(t, float32(4), f32At(buf, 4))
	assert.Equal(t, float32(7), f32At(buf, 8))
	// Second column starts at the next vec4 boundary.
	assert.Equal(t, float32(2), f32At(buf, 16))
	// Offsets after the matrix.
	assert.Equal(t, float32(0.1), f32At(buf, 48))
}

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}
