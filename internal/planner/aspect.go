package planner

import (
	"github.com/backmassage/reframe/internal/failure"
)

// AspectRatio is one of the supported output aspect ratios.
type AspectRatio int

const (
	Ratio9x16 AspectRatio = iota + 1
	Ratio16x9
	Ratio4x5
	Ratio1x1
)

var aspectRatios = map[string]AspectRatio{
	"9:16": Ratio9x16,
	"16:9": Ratio16x9,
	"4:5":  Ratio4x5,
	"1:1":  Ratio1x1,
}

// ParseAspectRatio parses the canonical "W:H" form. Anything outside the
// supported set is a failure.KindUnsupportedAspectRatio error.
func ParseAspectRatio(s string) (AspectRatio, error) {
	if ar, ok := aspectRatios[s]; ok {
		return ar, nil
	}
	return 0, failure.Newf(failure.KindUnsupportedAspectRatio, "",
		"Unsupported aspect ratio format: %s. Supported formats: 9:16, 16:9, 4:5, 1:1", s)
}

// Terms returns the ratio's width and height terms, e.g. (9, 16).
func (a AspectRatio) Terms() (w, h int) {
	switch a {
	case Ratio9x16:
		return 9, 16
	case Ratio16x9:
		return 16, 9
	case Ratio4x5:
		return 4, 5
	case Ratio1x1:
		return 1, 1
	}
	return 0, 0
}

func (a AspectRatio) String() string {
	switch a {
	case Ratio9x16:
		return "9:16"
	case Ratio16x9:
		return "16:9"
	case Ratio4x5:
		return "4:5"
	case Ratio1x1:
		return "1:1"
	}
	return "invalid"
}
