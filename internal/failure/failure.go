// Package failure defines the typed errors surfaced by engine operations.
//
// Every terminal error carries a Kind plus enough context (operation, stage,
// external process, exit status, tool diagnostics) to tell the caller what
// went wrong without re-running anything.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindProbe                  Kind = "probe_failure"
	KindUnsupportedAspectRatio Kind = "unsupported_aspect_ratio"
	KindExecution              Kind = "execution_failure"
	KindIO                     Kind = "io_failure"
)

// Sentinels for errors.Is matching against a Kind.
var (
	ErrProbe                  = errors.New("probe failed")
	ErrUnsupportedAspectRatio = errors.New("unsupported aspect ratio")
	ErrExecution              = errors.New("execution failed")
	ErrIO                     = errors.New("io failure")
)

var sentinels = map[Kind]error{
	KindProbe:                  ErrProbe,
	KindUnsupportedAspectRatio: ErrUnsupportedAspectRatio,
	KindExecution:              ErrExecution,
	KindIO:                     ErrIO,
}

// Error is the single error type returned by engine operations.
type Error struct {
	Kind       Kind
	Op         string // "probe", "export", "extract_audio"
	Stage      string // state the operation was in when it failed
	Process    string // external tool name, if one was involved
	ExitCode   int    // -1 when the process never ran or was killed
	Message    string
	Diagnostic string // tail of the tool's own stderr
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Stage != "" {
			b.WriteString(" (" + e.Stage + ")")
		}
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	if e.Process != "" {
		fmt.Fprintf(&b, " [%s exit %d]", e.Process, e.ExitCode)
	}
	if e.Message != "" && e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinel as well as another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && target == s {
		return true
	}
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New creates an Error of the given kind for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, ExitCode: -1, Err: err}
}

// Newf creates an Error with a formatted message and no wrapped cause.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, ExitCode: -1, Message: fmt.Sprintf(format, args...)}
}

// WithStage records the state the operation was in.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithProcess records the external process identity and exit status.
func (e *Error) WithProcess(name string, exitCode int) *Error {
	e.Process = name
	e.ExitCode = exitCode
	return e
}

// WithMessage sets the human-readable summary.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithDiagnostic attaches tool output for display.
func (e *Error) WithDiagnostic(text string) *Error {
	e.Diagnostic = text
	return e
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
