package planner

import "strings"

// VideoCodec is the requested output video codec family.
type VideoCodec int

const (
	CodecH264 VideoCodec = iota
	CodecHEVC
	CodecProRes
	CodecOther // unrecognized; video is stream-copied
)

// ParseVideoCodec maps a caller codec name onto a VideoCodec. An empty
// name means H.264.
func ParseVideoCodec(s string) VideoCodec {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "h264":
		return CodecH264
	case "hevc", "h265":
		return CodecHEVC
	case "prores":
		return CodecProRes
	default:
		return CodecOther
	}
}

// AudioTarget is the requested audio-only extraction format.
type AudioTarget struct {
	name string
}

var (
	TargetAAC = AudioTarget{"aac"}
	TargetMP3 = AudioTarget{"mp3"}
	TargetM4A = AudioTarget{"m4a"}
)

// ParseAudioTarget maps a caller codec name onto an AudioTarget. An empty
// name means AAC; unknown names are kept and passed to ffmpeg verbatim.
func ParseAudioTarget(s string) AudioTarget {
	switch n := strings.ToLower(strings.TrimSpace(s)); n {
	case "", "aac":
		return TargetAAC
	case "mp3":
		return TargetMP3
	case "m4a":
		return TargetM4A
	default:
		return AudioTarget{strings.TrimSpace(s)}
	}
}

func (t AudioTarget) String() string { return t.name }

// CodecFamily is the probed codec name that satisfies t without
// re-encoding, or "" when no stream can be copied into t.
func (t AudioTarget) CodecFamily() string {
	switch t {
	case TargetAAC, TargetM4A:
		return "aac"
	case TargetMP3:
		return "mp3"
	default:
		return ""
	}
}

// Encoder is the -acodec value used when re-encoding to t. An m4a request
// is an AAC encode.
func (t AudioTarget) Encoder() string {
	if t == TargetM4A {
		return "aac"
	}
	return t.name
}

// ExportSpec is the caller's export request. Nil fields take the
// configured defaults.
type ExportSpec struct {
	Input  string
	Output string
	Codec  string

	// Explicit output size; used only when both are set.
	Width  *int
	Height *int

	// Aspect ratio such as "9:16"; ignored when Width and Height are set.
	Format           *string
	UseStandardSizes *bool

	CRF    *int
	Preset *string
	Tune   *string

	// Subtitle file to burn in.
	Subtitles *string
}

// HasExplicitSize reports whether both Width and Height are set and
// positive.
func (s ExportSpec) HasExplicitSize() bool {
	return s.Width != nil && s.Height != nil && *s.Width > 0 && *s.Height > 0
}

// ExtractAudioSpec is the caller's audio-only extraction request.
type ExtractAudioSpec struct {
	Input  string
	Output *string // default: Input with a .m4a extension
	Codec  *string // default: "aac"
}
