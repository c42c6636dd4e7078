package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/reframe/internal/check"
	"github.com/backmassage/reframe/internal/display"
	"github.com/backmassage/reframe/internal/engine"
	"github.com/backmassage/reframe/internal/logging"
	"github.com/backmassage/reframe/internal/planner"
	"github.com/backmassage/reframe/internal/rpc"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"probe":         runProbe,
	"export":        runExport,
	"extract-audio": runExtractAudio,
	"check":         runCheck,
	"serve":         runServe,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// usageError marks a bad invocation, as opposed to a failed operation.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(text string) error { return &usageError{err: errors.New("usage: " + text)} }

// parseFlags parses args into fs. Errors other than -h are usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return &usageError{err: err}
}

// printEvents logs an operation's events until the channel is closed,
// then closes done.
func printEvents(log *logging.Logger, events <-chan engine.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.Kind {
		case engine.KindProgress:
			log.Debug("[%s] %s %3.0f%%", ev.ID, ev.Status, ev.Progress*100)
		case engine.KindLog:
			log.Info("%s", ev.Message)
		}
	}
}

// withEvents runs fn with an event channel drained into the logger.
func withEvents(a *app, fn func(events chan<- engine.Event) error) error {
	events := make(chan engine.Event, 16)
	done := make(chan struct{})
	go printEvents(a.log, events, done)
	err := fn(events)
	close(events)
	<-done
	return err
}

func runProbe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("probe")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("reframe probe <input>")
	}

	return withEvents(a, func(events chan<- engine.Event) error {
		p, err := a.eng.Probe(ctx, "", fs.Arg(0), events)
		if err != nil {
			return err
		}
		a.log.Info("%s", display.ProbeSummary(p))
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	})
}

// exportFlags binds export's options. Only flags the user actually set
// end up in the ExportSpec, so config defaults and probe-based detection
// still apply to the rest.
type exportFlags struct {
	codec         string
	crf           int
	preset        string
	tune          string
	width         int
	height        int
	format        string
	standardSizes bool
	subs          string
}

func parseExportArgs(args []string) (planner.ExportSpec, error) {
	var f exportFlags
	fs := newFlagSet("export")
	fs.StringVar(&f.codec, "codec", "h264", "video codec: h264, hevc, prores, or anything else to stream-copy")
	fs.IntVar(&f.crf, "crf", 0, "constant rate factor")
	fs.StringVar(&f.preset, "preset", "", "encoder preset")
	fs.StringVar(&f.tune, "tune", "", "x264/x265 tune (default: detected from frame rate)")
	fs.IntVar(&f.width, "width", 0, "output width (with -height)")
	fs.IntVar(&f.height, "height", 0, "output height (with -width)")
	fs.StringVar(&f.format, "format", "", "target aspect ratio, e.g. 9:16")
	fs.BoolVar(&f.standardSizes, "standard-sizes", false, "scale the padded canvas to the standard size for -format")
	fs.StringVar(&f.subs, "subs", "", "subtitle file to burn in")
	if err := parseFlags(fs, args); err != nil {
		return planner.ExportSpec{}, err
	}
	if fs.NArg() != 2 {
		return planner.ExportSpec{}, usage("reframe export [options] <input> <output>")
	}

	spec := planner.ExportSpec{Input: fs.Arg(0), Output: fs.Arg(1), Codec: f.codec}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "crf":
			spec.CRF = &f.crf
		case "preset":
			spec.Preset = &f.preset
		case "tune":
			spec.Tune = &f.tune
		case "width":
			spec.Width = &f.width
		case "height":
			spec.Height = &f.height
		case "format":
			spec.Format = &f.format
		case "standard-sizes":
			spec.UseStandardSizes = &f.standardSizes
		case "subs":
			spec.Subtitles = &f.subs
		}
	})
	return spec, nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	spec, err := parseExportArgs(args)
	if err != nil {
		return err
	}
	return withEvents(a, func(events chan<- engine.Event) error {
		res, err := a.eng.Export(ctx, "", spec, events)
		if err != nil {
			return err
		}
		a.log.Success("Exported %s", res.Video)
		return nil
	})
}

func parseExtractArgs(args []string) (planner.ExtractAudioSpec, error) {
	var codec, out string
	fs := newFlagSet("extract-audio")
	fs.StringVar(&codec, "codec", "aac", "audio target: aac, m4a, mp3, or an ffmpeg encoder name")
	fs.StringVar(&out, "out", "", "output path (default: input with .m4a extension)")
	if err := parseFlags(fs, args); err != nil {
		return planner.ExtractAudioSpec{}, err
	}
	if fs.NArg() != 1 {
		return planner.ExtractAudioSpec{}, usage("reframe extract-audio [options] <input>")
	}
	spec := planner.ExtractAudioSpec{Input: fs.Arg(0), Codec: &codec}
	if out != "" {
		spec.Output = &out
	}
	return spec, nil
}

func runExtractAudio(ctx context.Context, a *app, args []string) error {
	spec, err := parseExtractArgs(args)
	if err != nil {
		return err
	}
	return withEvents(a, func(events chan<- engine.Event) error {
		res, err := a.eng.ExtractAudio(ctx, "", spec, events)
		if err != nil {
			return err
		}
		a.log.Success("Extracted %s", res.Audio)
		return nil
	})
}

func runCheck(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("check")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	display.PrintBanner(os.Stderr)
	a.log.Info("reframe %s (%s)", version, commit)

	rep := check.RunCheck(ctx, a.cfg, a.runner, a.det, a.log)
	if rep.FFmpegVersion == "" || rep.FFprobeVersion == "" {
		return errors.New("system check failed: ffmpeg and ffprobe are required")
	}
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	metricsAddr := fs.String("metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	cancelOnEOF := fs.Bool("cancel-on-eof", true, "cancel running operations when stdin closes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if err := check.CheckDeps(ctx, a.cfg, a.runner); err != nil {
		return err
	}

	srv := rpc.NewServer(a.eng, a.stdout, a.log)
	srv.CancelOnEOF = *cancelOnEOF

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	if *metricsAddr != "" {
		ln, err := net.Listen("tcp", *metricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		hs := newMetricsServer()
		a.log.Info("Serving metrics on http://%s/metrics", ln.Addr())
		g.Go(func() error {
			if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-serveCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	a.log.Info("Ready for requests on stdin")
	g.Go(func() error {
		defer stopServe()
		err := srv.Serve(serveCtx, os.Stdin)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func newMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
