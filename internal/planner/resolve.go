package planner

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/probe"
)

// defaultGOP is used when the frame rate is unknown (2s at 24 fps).
const defaultGOP = 48

// ExportSettings is an ExportSpec with every default filled in. It is
// computed once per export and not modified afterwards.
type ExportSettings struct {
	Input     string
	Output    string
	Codec     VideoCodec
	CodecName string // caller spelling, for logs

	CRF    int
	Preset string
	Tune   string
	GOP    int

	Explicit      *Size       // explicit output size, takes precedence over Aspect
	Aspect        AspectRatio // zero when no format was requested
	FormatName    string
	StandardSizes bool

	Subtitles *SubtitleBurn
	PadColor  string
}

// HasAspect reports whether a supported aspect ratio was requested.
func (s ExportSettings) HasAspect() bool { return s.Aspect != 0 }

// ResolveExport fills spec's unset fields from cfg and probe data. p may
// be nil when probing failed. An unsupported format is returned as a
// failure.KindUnsupportedAspectRatio error.
func ResolveExport(spec ExportSpec, cfg *config.Config, p *probe.MediaProbe) (ExportSettings, error) {
	s := ExportSettings{
		Input:     spec.Input,
		Output:    spec.Output,
		Codec:     ParseVideoCodec(spec.Codec),
		CodecName: spec.Codec,
		CRF:       cfg.CRF,
		Preset:    cfg.Preset,
		Tune:      DetectTune(p),
		GOP:       GOPSize(p),
		PadColor:  cfg.PadColor,
	}
	if s.CodecName == "" {
		s.CodecName = "h264"
	}

	// --- Quality overrides ---
	if spec.CRF != nil {
		s.CRF = *spec.CRF
	}
	if spec.Preset != nil && *spec.Preset != "" {
		s.Preset = *spec.Preset
	}
	if spec.Tune != nil && *spec.Tune != "" {
		s.Tune = *spec.Tune
	}

	// --- Geometry ---
	if spec.HasExplicitSize() {
		s.Explicit = &Size{Width: *spec.Width, Height: *spec.Height}
	}
	if spec.Format != nil && *spec.Format != "" {
		// An explicit size overrides the format, so a bad one is ignored.
		ar, err := ParseAspectRatio(*spec.Format)
		switch {
		case err == nil:
			s.Aspect = ar
			s.FormatName = *spec.Format
		case s.Explicit == nil:
			return ExportSettings{}, err
		}
	}
	if spec.UseStandardSizes != nil {
		s.StandardSizes = *spec.UseStandardSizes
	}

	// --- Subtitles ---
	if spec.Subtitles != nil && *spec.Subtitles != "" {
		s.Subtitles = &SubtitleBurn{Path: *spec.Subtitles, FontsDir: cfg.FontsDir}
	}
	return s, nil
}

// DetectTune guesses the x264/x265 tune from the frame rate: exact 24, 30
// or 60 fps usually means synthetic content (animation, games, screen
// captures); anything else is treated as film.
func DetectTune(p *probe.MediaProbe) string {
	if fps, ok := p.FrameRate(); ok {
		for _, exact := range []float64{24, 30, 60} {
			if math.Abs(fps-exact) < 0.01 {
				return "animation"
			}
		}
	}
	return "film"
}

// GOPSize returns a two second keyframe interval for the probed frame rate.
func GOPSize(p *probe.MediaProbe) int {
	if fps, ok := p.FrameRate(); ok {
		// Very low rates would round to zero.
		return max(1, int(math.Round(fps*2)))
	}
	return defaultGOP
}

// ExtractSettings is an ExtractAudioSpec with defaults filled in.
type ExtractSettings struct {
	Input  string
	Output string
	Target AudioTarget
}

// ResolveExtractAudio fills spec's unset fields.
func ResolveExtractAudio(spec ExtractAudioSpec) ExtractSettings {
	s := ExtractSettings{
		Input:  spec.Input,
		Output: DefaultAudioOutput(spec.Input),
		Target: TargetAAC,
	}
	if spec.Output != nil && *spec.Output != "" {
		s.Output = *spec.Output
	}
	if spec.Codec != nil {
		s.Target = ParseAudioTarget(*spec.Codec)
	}
	return s
}

// DefaultAudioOutput replaces input's extension with .m4a.
func DefaultAudioOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".m4a"
}
