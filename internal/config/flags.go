package config

// This file implements global CLI flag parsing and help text.
// Flags are grouped into tools, export defaults, supervision, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrVersion is returned by ParseFlags when --version was requested.
var ErrVersion = errors.New("version requested")

// ParseFlags parses the global flags in args into cfg and returns the
// remaining arguments (subcommand and its own flags). When -config names
// a file it is loaded first and the flags are re-applied on top, so an
// explicit flag always wins over the file.
//
// --help returns flag.ErrHelp after printing usage; --version returns
// ErrVersion.
func ParseFlags(cfg *Config, args []string) ([]string, error) {
	rest, n, err := parseGlobal(cfg, args)
	if err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := LoadFile(cfg.ConfigFile, cfg); err != nil {
			return nil, err
		}
		if rest, n, err = parseGlobal(cfg, args); err != nil {
			return nil, err
		}
	}

	if n.showHelp {
		PrintUsage(os.Stderr)
		return nil, flag.ErrHelp
	}
	if n.showVersion {
		return nil, ErrVersion
	}
	return rest, nil
}

func parseGlobal(cfg *Config, args []string) ([]string, *negatedFlags, error) {
	fs := flag.NewFlagSet("reframe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var negated negatedFlags

	defineToolFlags(fs, cfg)
	defineExportDefaultFlags(fs, cfg)
	defineSupervisionFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			negated.showHelp = true
			return nil, &negated, nil
		}
		return nil, nil, err
	}

	applyNegatedFlags(cfg, &negated)
	return fs.Args(), &negated, nil
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineToolFlags registers --config, --ffmpeg, --ffprobe.
func defineToolFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "ffprobe binary")
}

// defineExportDefaultFlags registers --crf, --preset, --pad-color, --fonts.
func defineExportDefaultFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.CRF, "crf", cfg.CRF, "Default CRF when a request sets none")
	fs.StringVar(&cfg.Preset, "preset", cfg.Preset, "Default encoder preset")
	fs.StringVar(&cfg.PadColor, "pad-color", cfg.PadColor, "Letterbox fill color")
	fs.StringVar(&cfg.FontsDir, "fonts", cfg.FontsDir, "Fonts directory for subtitle burn-in")
}

// defineSupervisionFlags registers --timeout and --encoder-cache.
func defineSupervisionFlags(fs *flag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.ExecTimeout, "timeout", cfg.ExecTimeout, "Kill a transcode after this long (0 = never)")
	fs.DurationVar(&cfg.EncoderCacheTTL, "encoder-cache", cfg.EncoderCacheTTL, "Reuse hardware detection for this long (0 = detect per export)")
}

// defineDisplayFlags registers --color, --no-color, verbose, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
}

// defineUtilityFlags registers --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// ParseColorMode parses a --color style value.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	}
	return "", fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
}

// PrintUsage writes the help text to w. Column-aligned for readability.
func PrintUsage(w io.Writer) {
	const col1 = 34 // width of "  --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "reframe: aspect-ratio reframing and export engine built on ffmpeg"},
		{"", ""},
		{"  reframe [GLOBAL OPTIONS] <command> [OPTIONS] <args>", ""},
		{"", ""},
		{"Commands", ""},
		{"  probe <input>", "Print media metadata as JSON"},
		{"  export [options] <input> <output>", "Reframe and encode a video"},
		{"  extract-audio [options] <input>", "Extract the audio track"},
		{"  check", "System diagnostics (ffmpeg, encoders, host)"},
		{"  serve", "Read JSON-lines requests on stdin"},
		{"", ""},
		{"Tools", ""},
		{"  --config <path>", "YAML config file"},
		{"  --ffmpeg <path>", "ffmpeg binary (default: ffmpeg)"},
		{"  --ffprobe <path>", "ffprobe binary (default: ffprobe)"},
		{"", ""},
		{"Export defaults", ""},
		{"  --crf <n>", "CRF when a request sets none (default: 18)"},
		{"  --preset <name>", "Encoder preset (default: slow)"},
		{"  --pad-color <color>", "Letterbox fill (default: black)"},
		{"  --fonts <dir>", "Fonts for subtitle burn-in (default: fonts)"},
		{"", ""},
		{"Supervision", ""},
		{"  --timeout <dur>", "Kill a transcode after this long (default: never)"},
		{"  --encoder-cache <dur>", "Reuse hardware detection (default: off)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"  -l, --log <path>", "Append logs to file"},
		{"", ""},
		{"Utility", ""},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
