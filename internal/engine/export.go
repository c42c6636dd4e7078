package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/backmassage/reframe/internal/encoder"
	"github.com/backmassage/reframe/internal/ffmpeg"
	"github.com/backmassage/reframe/internal/metrics"
	"github.com/backmassage/reframe/internal/planner"
	"github.com/backmassage/reframe/internal/probe"
)

// ExportResult is returned by a successful Export.
type ExportResult struct {
	Video string `json:"video"`
}

// exportPlan is everything decided before ffmpeg is spawned.
type exportPlan struct {
	Settings planner.ExportSettings
	Encoder  encoder.Kind
	Filter   planner.FilterChain
	Audio    planner.AudioDecision
	Args     []string
}

// Export reframes and encodes spec.Input into spec.Output.
func (e *Engine) Export(ctx context.Context, id string, spec planner.ExportSpec, events chan<- Event) (*ExportResult, error) {
	op := e.begin(ctx, OpExport, id, events)
	res, err := e.export(ctx, op, spec)
	if err != nil {
		return nil, op.finish(err)
	}
	return res, op.finish(nil)
}

func (e *Engine) export(ctx context.Context, op *operation, spec planner.ExportSpec) (*ExportResult, error) {
	// --- Validate ---
	if err := statInput(op.kind, spec.Input); err != nil {
		return nil, err
	}
	// An unsupported format fails before any process is spawned, unless an
	// explicit size makes the format irrelevant.
	if spec.Format != nil && *spec.Format != "" && !spec.HasExplicitSize() {
		if _, err := planner.ParseAspectRatio(*spec.Format); err != nil {
			return nil, err
		}
	}

	// --- Probe ---
	p := e.probeOrDefaults(ctx, op, spec.Input)

	// --- Plan ---
	op.enter(StatePlanning)
	plan, err := e.planExport(ctx, op, spec, p)
	if err != nil {
		return nil, err
	}

	s := plan.Settings
	op.events.log(fmt.Sprintf("Starting export with CRF %d, encoder: %s, preset '%s', tune '%s', audio: %s",
		s.CRF, plan.Encoder.Info(), s.Preset, s.Tune, plan.Audio.Codec))

	if err := ensureOutputDir(op.kind, s.Output); err != nil {
		return nil, err
	}

	// --- Execute ---
	op.enter(StateExecuting)
	total, _ := p.DurationSeconds()
	progress := ffmpeg.NewProgressWriter(total, func(f float64) {
		op.events.progress("Exporting…", f)
	})
	res, err := e.execute(ctx, op, ffmpeg.Command{
		Name:     e.cfg.FFmpegPath,
		Args:     plan.Args,
		Progress: progress,
	})
	if err != nil {
		return nil, e.execFailure(op, err, res, "ffmpeg export failed")
	}

	op.events.log("High-quality export completed successfully")
	op.events.progress("Export complete", 1.0)
	return &ExportResult{Video: s.Output}, nil
}

// planExport resolves defaults, picks the encoder, builds the filter chain
// and audio strategy, and assembles the ffmpeg arguments.
func (e *Engine) planExport(ctx context.Context, op *operation, spec planner.ExportSpec, p *probe.MediaProbe) (*exportPlan, error) {
	s, err := planner.ResolveExport(spec, e.cfg, p)
	if err != nil {
		return nil, err
	}
	plan := &exportPlan{Settings: s, Encoder: encoder.Software}

	// --- Encoder ---
	if s.Codec == planner.CodecH264 {
		if e.detector != nil {
			plan.Encoder = e.detector.Select(ctx)
		}
		metrics.EncoderSelections.WithLabelValues(plan.Encoder.String()).Inc()
		op.events.log(fmt.Sprintf("Using %s for H.264 encoding", plan.Encoder.Label()))
	}

	// --- Geometry and filters ---
	plan.Filter = e.planFilter(op, s, p, plan.Encoder)
	if s.Codec == planner.CodecOther {
		op.events.log(fmt.Sprintf("Unknown codec '%s', using stream copy", s.CodecName))
		if len(plan.Filter) > 0 {
			op.events.log("Video stream copy cannot be filtered, skipping scaling, padding and subtitles")
			plan.Filter = nil
		}
	}

	// --- Audio ---
	plan.Audio = planner.DecideAudioStrategy(p)
	switch {
	case plan.Audio.Fallback:
		metrics.AudioDecisions.WithLabelValues("fallback").Inc()
		op.events.log(plan.Audio.Note)
	case plan.Audio.IsCopy():
		metrics.AudioDecisions.WithLabelValues("copy").Inc()
	default:
		metrics.AudioDecisions.WithLabelValues("reencode").Inc()
	}

	plan.Args = buildExportArgs(s, plan.Encoder, plan.Filter, plan.Audio)
	return plan, nil
}

// planFilter chooses the video filter chain. Explicit dimensions win over
// an aspect-ratio format; a format needs probed dimensions to do anything.
func (e *Engine) planFilter(op *operation, s planner.ExportSettings, p *probe.MediaProbe, enc encoder.Kind) planner.FilterChain {
	switch {
	case s.Explicit != nil:
		op.events.log(fmt.Sprintf("Scaling to %s with letterboxing", s.Explicit))
		return planner.BuildFilterChain(*s.Explicit, s.Subtitles, enc, s.PadColor)

	case s.HasAspect():
		w, h, ok := p.Dimensions()
		if !ok {
			op.events.log("Warning: Could not determine video dimensions for format conversion")
			break
		}
		canvas := planner.FitCanvas(w, h, s.Aspect)
		chain := planner.BuildFilterChain(canvas, s.Subtitles, enc, s.PadColor)
		if std, ok := planner.StandardSizeFor(s.Aspect); ok && s.StandardSizes {
			op.events.log(fmt.Sprintf("High-quality conversion to %s format (%dx%d) with padding and scaling to %s",
				s.FormatName, w, h, std))
			return chain.WithPostScale(std)
		}
		op.events.log(fmt.Sprintf("High-quality conversion to %s format (%dx%d) with padding to %s - no scaling",
			s.FormatName, w, h, canvas))
		return chain
	}

	if s.Subtitles != nil {
		return planner.BuildSubtitleChain(*s.Subtitles, enc)
	}
	return nil
}

// buildExportArgs assembles the full ffmpeg argument vector:
//
//	-y -i IN -sws_flags ... [-vf CHAIN] -fps_mode passthrough -threads 0
//	<video codec block> -c:a ... -map_metadata 0 -map 0:v:0 -map 0:a?
//	-movflags +faststart OUT
func buildExportArgs(s planner.ExportSettings, enc encoder.Kind, filter planner.FilterChain, audio planner.AudioDecision) []string {
	args := []string{
		"-y", "-i", s.Input,
		"-sws_flags", "lanczos+accurate_rnd+full_chroma_int",
	}
	if len(filter) > 0 {
		args = append(args, "-vf", filter.String())
	}
	args = append(args, "-fps_mode", "passthrough", "-threads", "0")
	args = append(args, videoCodecArgs(s, enc)...)
	args = append(args, audio.Args()...)
	return append(args,
		"-map_metadata", "0",
		"-map", "0:v:0",
		"-map", "0:a?",
		"-movflags", "+faststart",
		s.Output,
	)
}

func videoCodecArgs(s planner.ExportSettings, enc encoder.Kind) []string {
	switch s.Codec {
	case planner.CodecH264:
		args := encoder.BuildArgs(enc, s.CRF, s.GOP, s.Preset)
		if !enc.IsHardware() {
			// Hardware encoders tune themselves.
			args = append(args, "-tune", s.Tune)
		}
		return args
	case planner.CodecHEVC:
		return []string{
			"-c:v", "libx265",
			"-preset", s.Preset,
			"-tune", s.Tune,
			"-crf", strconv.Itoa(s.CRF),
			"-g", strconv.Itoa(s.GOP),
			"-pix_fmt", "yuv420p",
		}
	case planner.CodecProRes:
		return []string{"-c:v", "prores_ks", "-profile:v", "3"}
	default:
		return []string{"-c:v", "copy"}
	}
}
