// Package engine sequences probing, planning, and execution for the three
// operation kinds (probe, export, audio extraction) and reports their
// progress as events on a per-operation channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/encoder"
	"github.com/backmassage/reframe/internal/failure"
	"github.com/backmassage/reframe/internal/ffmpeg"
	"github.com/backmassage/reframe/internal/logging"
	"github.com/backmassage/reframe/internal/metrics"
	"github.com/backmassage/reframe/internal/probe"
)

// Operation names, used in errors, logs and metrics labels.
const (
	OpProbe        = "probe"
	OpExport       = "export"
	OpExtractAudio = "extract_audio"
)

// Engine runs operations. It holds no per-operation state, so one Engine
// serves any number of concurrent operations.
type Engine struct {
	cfg      *config.Config
	runner   ffmpeg.Runner
	detector *encoder.Detector
	log      *logging.Logger
}

// New returns an Engine. det may be nil, in which case H.264 exports use
// the software encoder.
func New(cfg *config.Config, runner ffmpeg.Runner, det *encoder.Detector, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{cfg: cfg, runner: runner, detector: det, log: log}
}

// operation tracks one running operation.
type operation struct {
	kind   string
	id     string
	state  State
	start  time.Time
	log    *logging.Logger
	events emitter
}

func (e *Engine) begin(ctx context.Context, kind, id string, events chan<- Event) *operation {
	if id == "" {
		id = uuid.NewString()
	}
	metrics.OperationsInFlight.Inc()
	return &operation{
		kind:   kind,
		id:     id,
		state:  StatePending,
		start:  time.Now(),
		log:    e.log.With("op", kind, "id", id),
		events: emitter{ctx: ctx, id: id, ch: events},
	}
}

// enter moves op to s. Illegal transitions are logged and ignored.
func (op *operation) enter(s State) {
	if !canTransition(op.state, s) {
		op.log.Warn("ignoring state transition %s -> %s", op.state, s)
		return
	}
	op.log.Debug("state %s -> %s", op.state, s)
	op.state = s
}

// finish records the terminal state and returns err, tagged with the
// operation name and the stage it failed in.
func (op *operation) finish(err error) error {
	if err != nil {
		var ferr *failure.Error
		if !errors.As(err, &ferr) {
			ferr = failure.New(failure.KindExecution, op.kind, err)
			err = ferr
		}
		if ferr.Op == "" {
			ferr.Op = op.kind
		}
		if ferr.Stage == "" {
			ferr.Stage = op.state.String()
		}
		op.enter(StateFailed)
		op.log.Debug("failed: %v", err)
	} else {
		op.enter(StateCompleted)
	}
	metrics.OperationsInFlight.Dec()
	metrics.ObserveOperation(op.kind, time.Since(op.start).Seconds(), err)
	return err
}

// Probe returns the metadata of input. Unlike the other operations, a
// probe failure is fatal here.
func (e *Engine) Probe(ctx context.Context, id, input string, events chan<- Event) (*probe.MediaProbe, error) {
	op := e.begin(ctx, OpProbe, id, events)
	p, err := e.probe(ctx, op, input)
	if err != nil {
		return nil, op.finish(err)
	}
	return p, op.finish(nil)
}

func (e *Engine) probe(ctx context.Context, op *operation, input string) (*probe.MediaProbe, error) {
	op.enter(StateProbing)
	op.events.progress("Probing…", 0.05)

	p, err := probe.Probe(ctx, e.runner, e.cfg.FFprobePath, input)
	if err != nil {
		return nil, err
	}
	op.log.Debug("probed %s: %s", input, p.Resolution())
	op.events.progress("Probe complete", 1.0)
	return p, nil
}

// probeOrDefaults is the tolerant probe used by export and extraction: a
// failure is reported as a log event and planning continues without
// media information.
func (e *Engine) probeOrDefaults(ctx context.Context, op *operation, input string) *probe.MediaProbe {
	p, err := e.probe(ctx, op, input)
	if err != nil {
		op.log.Warn("probe failed: %v", err)
		op.events.log(fmt.Sprintf("Probe failed, continuing with defaults: %v", err))
		return nil
	}
	return p
}

// execute runs cmd under the configured timeout.
func (e *Engine) execute(ctx context.Context, op *operation, cmd ffmpeg.Command) (*ffmpeg.Result, error) {
	if e.cfg.ExecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ExecTimeout)
		defer cancel()
	}
	op.log.Debug("exec: %s", cmd)
	return e.runner.Run(ctx, cmd)
}

// execFailure converts a Runner error into a KindExecution failure that
// carries the process identity and the tail of its stderr.
func (e *Engine) execFailure(op *operation, err error, res *ffmpeg.Result, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) && e.cfg.ExecTimeout > 0 {
		msg = fmt.Sprintf("%s: timed out after %s", msg, e.cfg.ExecTimeout)
	}
	ferr := failure.New(failure.KindExecution, op.kind, err).
		WithStage(StateExecuting.String()).
		WithProcess(filepath.Base(e.cfg.FFmpegPath), ffmpeg.ExitCode(err)).
		WithMessage(msg)
	if res != nil && len(res.Stderr) > 0 {
		ferr.WithDiagnostic(ffmpeg.Diagnose(string(res.Stderr)))
	}
	return ferr
}

// statInput checks that input exists and is a regular file.
func statInput(op string, input string) error {
	fi, err := os.Stat(input)
	if err != nil {
		return failure.New(failure.KindIO, op, err).
			WithStage(StatePending.String()).
			WithMessage(fmt.Sprintf("cannot read input %q", input))
	}
	if fi.IsDir() {
		return failure.Newf(failure.KindIO, op, "input %q is a directory", input).
			WithStage(StatePending.String())
	}
	return nil
}

// ensureOutputDir creates the directory that will hold output.
func ensureOutputDir(op, output string) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return failure.New(failure.KindIO, op, err).
			WithStage(StatePlanning.String()).
			WithMessage(fmt.Sprintf("cannot create output directory %q", dir))
	}
	return nil
}
