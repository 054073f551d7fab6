package action

import (
	"fmt"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// BBox is a bounding-box hint supplied alongside an action, with corners in
// [y, x] order. When every value is at most 1.0 the box is a fraction of the
// window; otherwise values are pixels.
type BBox struct {
	TopLeft     [2]float64
	BottomRight [2]float64
}

// Normalized reports whether the box is expressed as window fractions.
func (b BBox) Normalized() bool {
	for _, v := range []float64{b.TopLeft[0], b.TopLeft[1], b.BottomRight[0], b.BottomRight[1]} {
		if v > 1.0 {
			return false
		}
	}
	return true
}

// Rect converts the box to pixel bounds clamped to the window.
func (b BBox) Rect(win core.WindowSize) core.Bounds {
	y1, x1 := b.TopLeft[0], b.TopLeft[1]
	y2, x2 := b.BottomRight[0], b.BottomRight[1]
	if b.Normalized() {
		x1 *= float64(win.Width)
		x2 *= float64(win.Width)
		y1 *= float64(win.Height)
		y2 *= float64(win.Height)
	}
	return core.Rect(
		clamp(int(x1), win.Width-1), clamp(int(y1), win.Height-1),
		clamp(int(x2), win.Width-1), clamp(int(y2), win.Height-1),
	)
}

func (b BBox) String() string {
	return fmt.Sprintf("bbox[%g,%g][%g,%g]", b.TopLeft[0], b.TopLeft[1], b.BottomRight[0], b.BottomRight[1])
}

func clamp(v, hi int) int {
	if hi < 0 {
		hi = 0
	}
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
