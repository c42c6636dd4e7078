// Package ffmpeg runs the external media tools (ffmpeg, ffprobe) and
// interprets what they write to stderr.
//
// Callers depend on the [Runner] interface rather than on os/exec directly,
// so planning and orchestration can be exercised with a scripted fake.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command describes a single external process invocation.
type Command struct {
	Name string
	Args []string

	// Progress, when set, receives a live copy of the process stderr in
	// addition to the captured buffer.
	Progress io.Writer
}

// String renders the command line for debug logs.
func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished process.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner spawns a process and waits for it to exit.
//
// Run returns a non-nil error when the process could not be started, was
// stopped by ctx, or exited non-zero (*ExitError). The Result is non-nil
// whenever the process was started.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError is returned by a Runner when the process exits non-zero.
type ExitError struct {
	Name string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

// Run executes cmd, capturing stdout and stderr. Stderr is tee'd to
// cmd.Progress when set so progress can be parsed while the process runs.
func (ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.Progress != nil {
		cmd.Stderr = io.MultiWriter(&stderr, c.Progress)
	} else {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if cmd.ProcessState == nil {
		// Never started.
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}

	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return res, &ExitError{Name: c.Name, Code: res.ExitCode, Err: err}
	}
	return res, fmt.Errorf("%s: %w", c.Name, err)
}

// ExitCode extracts the exit status from a Runner error, or -1 when the
// process did not exit normally.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}
