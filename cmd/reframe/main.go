// Command reframe is the CLI entrypoint for the reframe export engine.
//
// It parses global flags and the optional config file, then runs one
// subcommand: probe, export, extract-audio, check, or serve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/encoder"
	"github.com/backmassage/reframe/internal/engine"
	"github.com/backmassage/reframe/internal/ffmpeg"
	"github.com/backmassage/reframe/internal/logging"
	"github.com/backmassage/reframe/internal/term"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// app is what every subcommand gets.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	runner ffmpeg.Runner
	det    *encoder.Detector
	eng    *engine.Engine
	stdout io.Writer
}

func run(args []string, stdout io.Writer) int {
	// Bootstrap: no logger yet, errors go straight to stderr.
	cfg := config.DefaultConfig()
	rest, err := config.ParseFlags(&cfg, args)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, config.ErrVersion):
		fmt.Fprintf(stdout, "reframe %s (%s)\n", version, commit)
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "reframe: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "reframe: %v\n", err)
		return 2
	}
	if len(rest) == 0 {
		config.PrintUsage(os.Stderr)
		return 2
	}

	term.Configure(cfg.ColorMode)
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reframe: %v\n", err)
		return 1
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := ffmpeg.ExecRunner{}
	det := encoder.NewDetector(runner, cfg.FFmpegPath, cfg.EncoderCacheTTL)
	a := &app{
		cfg:    &cfg,
		log:    log,
		runner: runner,
		det:    det,
		eng:    engine.New(&cfg, runner, det, log),
		stdout: stdout,
	}

	name, cmdArgs := rest[0], rest[1:]
	cmd, ok := commands[name]
	if !ok {
		log.Error("unknown command %q (see reframe --help)", name)
		return 2
	}
	err = cmd(ctx, a, cmdArgs)
	var uerr *usageError
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &uerr):
		log.Error("%v", err)
		return 2
	default:
		log.Error("%v", err)
		return 1
	}
}
