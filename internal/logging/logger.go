// Package logging wraps hclog with the leveled printf-style helpers the
// rest of reframe uses. Console output goes to stderr (stdout is reserved
// for probe JSON and the serve protocol); an optional file sink receives
// the same lines without color.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/term"
)

const timeFormat = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	log  hclog.Logger
	file *fileSink // nil on derived loggers and when no log file is set
}

type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

// NewLogger builds a logger writing to stderr and, when cfg.LogFile is
// set, appending to that file. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is NewLogger with the console output redirected to w.
func NewWithWriter(cfg *config.Config, w io.Writer) (*Logger, error) {
	level := hclog.Info
	if cfg.Verbose {
		level = hclog.Debug
	}

	colorOpt := hclog.ColorOff
	if f, ok := w.(*os.File); ok && term.Resolve(cfg.ColorMode, f) {
		colorOpt = hclog.ForceColor
	}

	base := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:       "reframe",
		Level:      level,
		Output:     w,
		TimeFormat: timeFormat,
		Color:      colorOpt,
	})

	l := &Logger{log: base}
	if cfg.LogFile == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	base.RegisterSink(hclog.NewSinkAdapter(&hclog.LoggerOptions{
		Name:       "reframe",
		Level:      level,
		Output:     f,
		TimeFormat: timeFormat,
		Color:      hclog.ColorOff,
	}))
	l.file = &fileSink{f: f}
	return l, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{log: hclog.NewNullLogger()}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.file.mu.Lock()
	defer l.file.mu.Unlock()
	if l.file.f == nil {
		return nil
	}
	err := l.file.f.Close()
	l.file.f = nil
	return err
}

// With returns a logger that attaches the given key/value pairs to every
// line. The derived logger shares the parent's sinks and must not be closed.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{log: l.log.With(args...)}
}

// Hclog exposes the underlying logger.
func (l *Logger) Hclog() hclog.Logger { return l.log }

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

// Success logs at INFO level tagged result=success.
func (l *Logger) Success(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...), "result", "success")
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level; dropped unless the logger was built verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.log.IsDebug() {
		return
	}
	l.log.Debug(fmt.Sprintf(format, args...))
}
