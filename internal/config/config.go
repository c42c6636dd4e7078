// Package config holds runtime configuration: defaults, an optional YAML
// file, global CLI flags, and validation. Later layers override earlier
// ones: DefaultConfig, then the file named by -config, then flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// --- Enum types for validated string fields ---

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stderr is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// UnmarshalYAML accepts the same spellings as ParseColorMode.
func (m *ColorMode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColorMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by [LoadFile], then adjusted by [ParseFlags] before
// being passed (by pointer) to packages that need it.
type Config struct {
	// External tools.
	FFmpegPath  string `yaml:"ffmpeg"`  // Default: "ffmpeg" (resolved via PATH).
	FFprobePath string `yaml:"ffprobe"` // Default: "ffprobe".

	// Export defaults, applied when a request leaves them unset.
	CRF      int    `yaml:"crf"`       // Default: 18.
	Preset   string `yaml:"preset"`    // Default: "slow".
	PadColor string `yaml:"pad_color"` // Default: "black".
	FontsDir string `yaml:"fonts_dir"` // Default: "fonts". Passed to the subtitles filter.

	// Process supervision.
	ExecTimeout     time.Duration `yaml:"exec_timeout"`      // Default: 0 (no limit).
	EncoderCacheTTL time.Duration `yaml:"encoder_cache_ttl"` // Default: 0 (detect on every export).

	// Display and logging.
	Verbose   bool      `yaml:"verbose"`
	ColorMode ColorMode `yaml:"color"`    // Default: "auto".
	LogFile   string    `yaml:"log_file"` // Optional log file path.

	// serve mode.
	MetricsAddr string `yaml:"metrics_addr"` // Optional listen address for /metrics.

	// ConfigFile is the YAML file loaded by ParseFlags (set from -config).
	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		CRF:         18,
		Preset:      "slow",
		PadColor:    "black",
		FontsDir:    "fonts",
		ColorMode:   ColorAuto,
	}
}

// maxCRF is the top of the x264/x265 CRF scale.
const maxCRF = 51

// Validate checks enum fields and value ranges.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.CRF < 0 || c.CRF > maxCRF {
		return fmt.Errorf("crf must be between 0 and %d (got %d)", maxCRF, c.CRF)
	}
	if strings.TrimSpace(c.Preset) == "" {
		return errors.New("preset must not be empty")
	}
	if strings.TrimSpace(c.PadColor) == "" {
		return errors.New("pad color must not be empty")
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return errors.New("ffmpeg and ffprobe paths must not be empty")
	}
	if c.ExecTimeout < 0 {
		return errors.New("exec timeout must not be negative")
	}
	if c.EncoderCacheTTL < 0 {
		return errors.New("encoder cache TTL must not be negative")
	}
	return nil
}
