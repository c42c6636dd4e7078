package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/reframe/internal/encoder"
)

// FilterChain is an ordered list of ffmpeg video filter stages. Later
// stages see the output of earlier ones.
type FilterChain []string

// String returns the comma-joined -vf argument.
func (c FilterChain) String() string {
	return strings.Join(c, ",")
}

// SubtitleBurn requests burning a subtitle file into the picture.
type SubtitleBurn struct {
	Path     string
	FontsDir string
}

// subtitleFormat is the high chroma precision format subtitles are
// rendered into before the final format lock.
const subtitleFormat = "format=yuv444p"

// BuildFilterChain constructs the filter chain that fits the source into
// target without upscaling and centers it on a solid padColor canvas:
//
//	[format=yuv444p,] scale(decrease), pad [,subtitles] ,format=<encoder pix_fmt>
//
// Subtitles are burned in after padding so they render at the final
// resolution; the format lock is always last.
func BuildFilterChain(target Size, subs *SubtitleBurn, enc encoder.Kind, padColor string) FilterChain {
	var filters FilterChain

	if subs != nil {
		filters = append(filters, subtitleFormat)
	}

	filters = append(filters,
		fmt.Sprintf("scale=%d:%d:flags=lanczos:force_original_aspect_ratio=decrease", target.Width, target.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:%s", target.Width, target.Height, padOrDefault(padColor)),
	)

	if subs != nil {
		filters = append(filters, subtitleStage(subs))
	}

	return append(filters, formatLock(enc))
}

// BuildSubtitleChain burns subtitles in without touching geometry.
func BuildSubtitleChain(subs SubtitleBurn, enc encoder.Kind) FilterChain {
	return FilterChain{subtitleFormat, subtitleStage(&subs), formatLock(enc)}
}

// WithPostScale returns a copy of c with a lanczos scale to size inserted
// directly after the pad stage. Chains without a pad stage get the scale
// before any subtitle or format stage.
func (c FilterChain) WithPostScale(size Size) FilterChain {
	stage := fmt.Sprintf("scale=%d:%d:flags=lanczos", size.Width, size.Height)

	at := -1
	for i, f := range c {
		if strings.HasPrefix(f, "pad=") {
			at = i + 1
			break
		}
	}
	if at < 0 {
		at = 0
		for at < len(c) && c[at] == subtitleFormat {
			at++
		}
	}

	out := make(FilterChain, 0, len(c)+1)
	out = append(out, c[:at]...)
	out = append(out, stage)
	return append(out, c[at:]...)
}

func subtitleStage(s *SubtitleBurn) string {
	stage := "subtitles=" + EscapeSubtitlePath(s.Path)
	if s.FontsDir != "" {
		stage += ":fontsdir=" + EscapeSubtitlePath(s.FontsDir)
	}
	return stage
}

func formatLock(enc encoder.Kind) string {
	return "format=" + enc.PixelFormat()
}

func padOrDefault(color string) string {
	if color == "" {
		return "black"
	}
	return color
}

// EscapeSubtitlePath quotes a path for use as a filter argument.
// Backslashes are doubled before colons are escaped so the colon escapes
// are not themselves doubled.
func EscapeSubtitlePath(path string) string {
	s := strings.ReplaceAll(path, `\`, `\\`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return "'" + s + "'"
}

// UnescapeSubtitlePath reverses EscapeSubtitlePath.
func UnescapeSubtitlePath(escaped string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(escaped, "'"), "'")
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == ':') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
