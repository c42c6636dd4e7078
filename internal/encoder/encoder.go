// Package encoder chooses the H.264 encoder for an export and renders its
// ffmpeg arguments.
package encoder

import (
	"strconv"
)

// Kind is the encoder family used for H.264 output.
type Kind int

const (
	Software     Kind = iota // libx264
	VideoToolbox             // h264_videotoolbox (macOS)
	NVENC                    // h264_nvenc
)

// String returns the ffmpeg encoder name.
func (k Kind) String() string {
	switch k {
	case VideoToolbox:
		return "h264_videotoolbox"
	case NVENC:
		return "h264_nvenc"
	default:
		return "libx264"
	}
}

// PixelFormat is the pixel format the encoder consumes directly. The
// hardware encoders take NV12; feeding them anything else makes ffmpeg
// insert a conversion of its own.
func (k Kind) PixelFormat() string {
	switch k {
	case VideoToolbox, NVENC:
		return "nv12"
	default:
		return "yuv420p"
	}
}

// IsHardware reports whether k runs on dedicated encoder hardware.
func (k Kind) IsHardware() bool { return k != Software }

// Label is the human-readable description logged when an export starts.
func (k Kind) Label() string {
	switch k {
	case VideoToolbox:
		return "VideoToolbox (GPU) + NV12 optimization"
	case NVENC:
		return "NVENC (GPU) + NV12 optimization"
	default:
		return "libx264 (CPU)"
	}
}

// Info is the short encoder description used in the strategy summary.
func (k Kind) Info() string {
	switch k {
	case VideoToolbox:
		return "h264_videotoolbox (GPU)"
	case NVENC:
		return "h264_nvenc (GPU)"
	default:
		return "libx264 (CPU)"
	}
}

// colorArgs pins the output to BT.709 limited range so ffmpeg never
// reinterprets the source color metadata.
var colorArgs = []string{
	"-color_range", "tv",
	"-colorspace", "bt709",
	"-color_primaries", "bt709",
	"-color_trc", "bt709",
	"-benchmark",
	"-stats",
}

// BuildArgs returns the video codec arguments for k. crf drives the
// constant-quality control of each encoder; gop is passed to all three so
// seek granularity does not depend on the hardware.
func BuildArgs(k Kind, crf, gop int, preset string) []string {
	c := strconv.Itoa(crf)
	g := strconv.Itoa(gop)

	var args []string
	switch k {
	case VideoToolbox:
		args = []string{
			"-c:v", "h264_videotoolbox",
			"-b:v", "0",
			"-crf", c,
			"-allow_sw", "1",
			"-g", g,
			"-pix_fmt", "nv12",
		}
	case NVENC:
		args = []string{
			"-c:v", "h264_nvenc",
			"-cq", c,
			"-preset", "p5",
			"-tune", "hq",
			"-rc", "vbr",
			"-g", g,
			"-pix_fmt", "nv12",
		}
	default:
		args = []string{
			"-c:v", "libx264",
			"-preset", preset,
			"-crf", c,
			"-g", g,
			"-pix_fmt", "yuv420p",
		}
	}
	return append(args, colorArgs...)
}
