package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/backmassage/reframe/internal/display"
	"github.com/backmassage/reframe/internal/ffmpeg"
	"github.com/backmassage/reframe/internal/planner"
)

// ExtractAudioResult is returned by a successful ExtractAudio.
type ExtractAudioResult struct {
	Audio string `json:"audio"`
}

// ExtractAudio writes the audio track of spec.Input to its own file,
// stream-copying when the source already matches the requested codec.
func (e *Engine) ExtractAudio(ctx context.Context, id string, spec planner.ExtractAudioSpec, events chan<- Event) (*ExtractAudioResult, error) {
	op := e.begin(ctx, OpExtractAudio, id, events)
	res, err := e.extractAudio(ctx, op, spec)
	if err != nil {
		return nil, op.finish(err)
	}
	return res, op.finish(nil)
}

func (e *Engine) extractAudio(ctx context.Context, op *operation, spec planner.ExtractAudioSpec) (*ExtractAudioResult, error) {
	if err := statInput(op.kind, spec.Input); err != nil {
		return nil, err
	}
	s := planner.ResolveExtractAudio(spec)

	p := e.probeOrDefaults(ctx, op, s.Input)

	op.enter(StatePlanning)
	d := planner.DecideExtraction(p, s.Target)
	if d.Copy {
		op.events.log("Using stream copy for audio extraction (no re-encoding needed)")
	} else {
		op.events.log(fmt.Sprintf("Re-encoding audio to %s", s.Target))
	}
	if err := ensureOutputDir(op.kind, s.Output); err != nil {
		return nil, err
	}

	op.enter(StateExecuting)
	res, err := e.execute(ctx, op, ffmpeg.Command{Name: e.cfg.FFmpegPath, Args: extractArgs(s, d)})
	if err != nil {
		return nil, e.execFailure(op, err, res, "ffmpeg audio extraction failed")
	}

	size := "unknown size"
	if fi, err := os.Stat(s.Output); err == nil {
		size = display.FormatBytes(fi.Size())
	}
	op.events.log(fmt.Sprintf("Audio extraction completed: %s (%s)", s.Output, size))
	return &ExtractAudioResult{Audio: s.Output}, nil
}

// extractArgs returns -y -i IN -vn -acodec CODEC [-b:a RATE] OUT.
func extractArgs(s planner.ExtractSettings, d planner.ExtractionDecision) []string {
	args := []string{"-y", "-i", s.Input, "-vn", "-acodec", d.Codec()}
	if d.Bitrate != "" {
		args = append(args, "-b:a", d.Bitrate)
	}
	return append(args, s.Output)
}
