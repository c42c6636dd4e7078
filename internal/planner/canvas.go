package planner

import (
	"math"
	"strconv"
)

// Size is a frame size in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// Area returns Width*Height.
func (s Size) Area() int64 { return int64(s.Width) * int64(s.Height) }

// Contains reports whether a frame of size o fits inside s unscaled.
func (s Size) Contains(o Size) bool {
	return s.Width >= o.Width && s.Height >= o.Height
}

// evenDim floors a dimension at 2 and rounds it down to even, as required
// by 4:2:0 chroma subsampling.
func evenDim(v int) int {
	if v < 2 {
		v = 2
	}
	return v &^ 1
}

// FitCanvas returns the smallest even canvas of ratio ar that holds a
// srcW x srcH frame without scaling it down.
//
// Candidate A keeps the source height and widens; candidate B keeps the
// source width and heightens. When both hold the source the smaller area
// wins, ties going to A. If neither qualifies (odd source dimensions can
// cause this) A is returned.
func FitCanvas(srcW, srcH int, ar AspectRatio) Size {
	aw, ah := ar.Terms()
	src := Size{srcW, srcH}

	a := Size{
		Width:  evenDim(int(math.Round(float64(srcH) * float64(aw) / float64(ah)))),
		Height: evenDim(srcH),
	}
	b := Size{
		Width:  evenDim(srcW),
		Height: evenDim(int(math.Round(float64(srcW) * float64(ah) / float64(aw)))),
	}

	aOK, bOK := a.Contains(src), b.Contains(src)
	switch {
	case aOK && bOK:
		if b.Area() < a.Area() {
			return b
		}
		return a
	case bOK:
		return b
	default:
		return a
	}
}

// standardSizes are the canonical platform resolutions per ratio.
var standardSizes = map[AspectRatio]Size{
	Ratio9x16: {1080, 1920},
	Ratio16x9: {1920, 1080},
	Ratio4x5:  {1080, 1350},
	Ratio1x1:  {1080, 1080},
}

// StandardSizeFor returns the canonical resolution for ar.
func StandardSizeFor(ar AspectRatio) (Size, bool) {
	s, ok := standardSizes[ar]
	return s, ok
}

// PadOffsets returns the top-left position that centers src on canvas,
// clamped at zero.
func PadOffsets(src, canvas Size) (x, y int) {
	x = (canvas.Width - src.Width) / 2
	y = (canvas.Height - src.Height) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
