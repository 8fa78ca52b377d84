// Package colorspace maps a stream's color encoding to the matrix and offset
// used to convert decoded YCbCr samples to RGB.
package colorspace

import (
	"sync"

	"github.com/lightview/lightview/internal/logger"
)

// Colorspace identifies the YCbCr encoding signalled in frame metadata.
type Colorspace int

const (
	BT601 Colorspace = iota
	BT709
	BT2020
)

func (c Colorspace) String() string {
	switch c {
	case BT601:
		return "BT.601"
	case BT709:
		return "BT.709"
	case BT2020:
		return "BT.2020"
	default:
		return "unknown"
	}
}

// Conversion holds a row-major 3x3 YCbCr-to-RGB matrix and the offset vector
// subtracted from the (Y, Cb, Cr) samples before the matrix is applied.
// Rows produce R, G, B; columns consume Y, Cb, Cr.
type Conversion struct {
	Matrix [9]float32
	Offset [3]float32
}

var (
	limitedOffset = [3]float32{16.0 / 255.0, 128.0 / 255.0, 128.0 / 255.0}
	fullOffset    = [3]float32{0.0, 128.0 / 255.0, 128.0 / 255.0}
)

// The six fixed matrices below follow the standard coefficient derivations
// for each primaries set (Kr/Kb per BT.601, BT.709 and BT.2020), with the
// limited-range variants scaled by 255/219 for luma and 255/224 for chroma.
var conversions = map[Colorspace][2]Conversion{
	BT601: {
		{ // limited
			Matrix: [9]float32{
				1.1644, 0.0000, 1.5960,
				1.1644, -0.3917, -0.8129,
				1.1644, 2.0172, 0.0000,
			},
			Offset: limitedOffset,
		},
		{ // full
			Matrix: [9]float32{
				1.0000, 0.0000, 1.4020,
				1.0000, -0.3441, -0.7141,
				1.0000, 1.7720, 0.0000,
			},
			Offset: fullOffset,
		},
	},
	BT709: {
		{ // limited
			Matrix: [9]float32{
				1.1644, 0.0000, 1.7927,
				1.1644, -0.2132, -0.5329,
				1.1644, 2.1124, 0.0000,
			},
			Offset: limitedOffset,
		},
		{ // full
			Matrix: [9]float32{
				1.0000, 0.0000, 1.5748,
				1.0000, -0.1873, -0.4681,
				1.0000, 1.8556, 0.0000,
			},
			Offset: fullOffset,
		},
	},
	BT2020: {
		{ // limited
			Matrix: [9]float32{
				1.1644, 0.0000, 1.6781,
				1.1644, -0.1874, -0.6505,
				1.1644, 2.1418, 0.0000,
			},
			Offset: limitedOffset,
		},
		{ // full
			Matrix: [9]float32{
				1.0000, 0.0000, 1.4746,
				1.0000, -0.1646, -0.5714,
				1.0000, 1.8814, 0.0000,
			},
			Offset: fullOffset,
		},
	},
}

var (
	warnMu     sync.Mutex
	warnedTags = make(map[Colorspace]bool)
)

// MatrixFor returns the conversion for the given colorspace and range.
// Unknown colorspace tags fall back to BT.601 limited range: misclassified
// stream metadata must degrade the picture, not stop playback. The fallback
// is logged once per unknown tag value.
func MatrixFor(cs Colorspace, fullRange bool) Conversion {
	pair, ok := conversions[cs]
	if !ok {
		warnMu.Lock()
		if !warnedTags[cs] {
			warnedTags[cs] = true
			logger.Warnf("Unknown colorspace tag %d, falling back to BT.601 limited range", cs)
		}
		warnMu.Unlock()
		return conversions[BT601][0]
	}
	if fullRange {
		return pair[1]
	}
	return pair[0]
}
