package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/backmassage/reframe/internal/failure"
	"github.com/backmassage/reframe/internal/ffmpeg"
)

// Args returns the ffprobe arguments used for path.
func Args(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams", "-show_format",
		path,
	}
}

// Probe runs a single ffprobe JSON call against path and returns the
// parsed record. Spawn failures, non-zero exits and unparsable output are
// all reported as failure.KindProbe.
func Probe(ctx context.Context, runner ffmpeg.Runner, ffprobePath, path string) (*MediaProbe, error) {
	res, err := runner.Run(ctx, ffmpeg.Command{Name: ffprobePath, Args: Args(path)})
	if err != nil {
		ferr := failure.New(failure.KindProbe, "probe", err).
			WithStage("probing").
			WithMessage(fmt.Sprintf("ffprobe %q failed", path))
		if res != nil {
			ferr.WithProcess(ffprobePath, res.ExitCode).WithDiagnostic(ffmpeg.Diagnose(string(res.Stderr)))
		} else {
			ferr.WithProcess(ffprobePath, -1)
		}
		return nil, ferr
	}

	p, err := ParseJSON(res.Stdout)
	if err != nil {
		return nil, failure.New(failure.KindProbe, "probe", err).
			WithStage("probing").
			WithProcess(ffprobePath, res.ExitCode)
	}
	return p, nil
}

// ParseJSON converts raw ffprobe JSON output into a MediaProbe.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*MediaProbe, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecName    string         `json:"codec_name"`
	CodecType    string         `json:"codec_type"`
	Width        *int           `json:"width"`
	Height       *int           `json:"height"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	Duration     string         `json:"duration"`
	BitRate      string         `json:"bit_rate"`
	Disposition  map[string]int `json:"disposition"`
}

// --- Conversion from wire types to the domain record ---

func buildResult(raw *ffprobeOutput) *MediaProbe {
	p := &MediaProbe{}

	var videoDuration *float64
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			// Cover art and thumbnails are video streams too; the first
			// real picture stream is the one that gets mapped.
			if s.Disposition["attached_pic"] == 1 || p.HasVideo {
				continue
			}
			p.HasVideo = true
			p.Width = s.Width
			p.Height = s.Height
			if fps, ok := ParseFrameRate(s.AvgFrameRate); ok {
				p.FPS = &fps
			}
			videoDuration = parseFloat(s.Duration)
		case "audio":
			if p.HasAudio {
				continue
			}
			p.HasAudio = true
			if s.CodecName != "" {
				codec := s.CodecName
				p.AudioCodec = &codec
			}
			p.AudioBitrate = parseInt32(s.BitRate)
		}
	}

	p.Duration = parseFloat(raw.Format.Duration)
	if p.Duration == nil {
		p.Duration = videoDuration
	}
	return p
}

// ParseFrameRate parses ffprobe's rational ("30000/1001") or decimal
// ("29.97") frame rate. A zero denominator or unparsable input reports
// false rather than an error.
func ParseFrameRate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return finite(n / d)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// finite rejects NaN and ±Inf, which ParseFloat accepts.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt32(s string) *int32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil
	}
	v := int32(n)
	return &v
}
