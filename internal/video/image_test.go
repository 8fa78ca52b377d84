package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newPipeFD returns one end of a pipe as a stand-in for a DMA-BUF fd, with
// the other end closed so the descriptor's only reference is ours.
func newPipeFD(t *testing.T) int {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.Close(fds[1]))
	return fds[0]
}

func fdIsOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

func TestPlaneImage_CloseReleasesFD(t *testing.T) {
	fd := newPipeFD(t)
	img := NewPlaneImage(PlaneDesc{FD: fd})

	require.True(t, fdIsOpen(fd))
	require.NoError(t, img.Close())
	assert.False(t, fdIsOpen(fd))
}

func TestPlaneImage_CloseIdempotent(t *testing.T) {
	fd := newPipeFD(t)
	img := NewPlaneImage(PlaneDesc{FD: fd})

	require.NoError(t, img.Close())
	// The fd number may be reused by now; a second Close must not touch it.
	other := newPipeFD(t)
	require.NoError(t, img.Close())
	assert.True(t, fdIsOpen(other))
	require.NoError(t, unix.Close(other))
}

func TestImageSet_CloseAll(t *testing.T) {
	a, b := newPipeFD(t), newPipeFD(t)
	set := &ImageSet{Planes: []*PlaneImage{
		NewPlaneImage(PlaneDesc{FD: a}),
		NewPlaneImage(PlaneDesc{FD: b}),
	}}

	require.NoError(t, set.Close())
	assert.False(t, fdIsOpen(a))
	assert.False(t, fdIsOpen(b))
	require.NoError(t, set.Close())
}

func TestImageSet_CloseSurvivesBadDescriptor(t *testing.T) {
	good := newPipeFD(t)
	set := &ImageSet{Planes: []*PlaneImage{
		NewPlaneImage(PlaneDesc{FD: -1}),
		NewPlaneImage(PlaneDesc{FD: good}),
	}}

	require.NoError(t, set.Close())
	assert.False(t, fdIsOpen(good), "later planes still close when an earlier one has no fd")
}
