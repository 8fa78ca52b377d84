// Package viewport computes the aspect-preserving placement of the stream
// video inside the output window. The same math drives letterboxed
// rendering, absolute mouse scaling and touch coordinate mapping, so all
// three stay in agreement about where the video actually is.
package viewport

import "image"

// Fit scales a srcW x srcH source to the largest size that fits inside a
// dstW x dstH destination without changing aspect ratio, and centers it.
// The returned rectangle is in destination coordinates.
func Fit(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	// Compare aspect ratios without dividing so we stay exact.
	if srcW*dstH > dstW*srcH {
		// Source is wider than the destination: pillar height.
		h := dstW * srcH / srcW
		y := (dstH - h) / 2
		return image.Rect(0, y, dstW, y+h)
	}
	w := dstH * srcW / srcH
	x := (dstW - w) / 2
	return image.Rect(x, 0, x+w, dstH)
}

// ToStream maps a window-relative point into stream-video coordinates given
// the stream size and the fitted video region. Points outside the region
// are clamped to its edges.
func ToStream(x, y int, streamW, streamH int, region image.Rectangle) (int, int) {
	if region.Dx() == 0 || region.Dy() == 0 {
		return 0, 0
	}
	x = clamp(x-region.Min.X, 0, region.Dx())
	y = clamp(y-region.Min.Y, 0, region.Dy())
	return x * streamW / region.Dx(), y * streamH / region.Dy()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
