// Package ffmpegtest provides a scripted ffmpeg.Runner for tests.
package ffmpegtest

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/backmassage/reframe/internal/ffmpeg"
)

// Response is the scripted outcome of one matched command.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// StartErr simulates a spawn failure: no Result is returned.
	StartErr error
}

type rule struct {
	name string
	arg  string
	resp Response
}

// Runner records every command it receives and answers from its rules.
// Rules are matched in registration order; unmatched commands succeed
// with empty output.
type Runner struct {
	mu    sync.Mutex
	rules []rule
	calls []ffmpeg.Command
}

// New returns an empty Runner.
func New() *Runner { return &Runner{} }

// On registers resp for commands named name. When arg is non-empty the
// command must also carry that exact argument.
func (r *Runner) On(name, arg string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{name: name, arg: arg, resp: resp})
	return r
}

// Run implements ffmpeg.Runner.
func (r *Runner) Run(ctx context.Context, cmd ffmpeg.Command) (*ffmpeg.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	resp := r.match(cmd)
	r.mu.Unlock()

	if resp.StartErr != nil {
		return nil, resp.StartErr
	}
	if err := ctx.Err(); err != nil {
		return &ffmpeg.Result{ExitCode: -1}, err
	}
	if cmd.Progress != nil && resp.Stderr != "" {
		_, _ = io.WriteString(cmd.Progress, resp.Stderr)
	}
	res := &ffmpeg.Result{
		ExitCode: resp.ExitCode,
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
	}
	if resp.ExitCode != 0 {
		return res, &ffmpeg.ExitError{Name: cmd.Name, Code: resp.ExitCode}
	}
	return res, nil
}

func (r *Runner) match(cmd ffmpeg.Command) Response {
	for _, ru := range r.rules {
		if ru.name != cmd.Name {
			continue
		}
		if ru.arg == "" || hasArg(cmd.Args, ru.arg) {
			return ru.resp
		}
	}
	return Response{}
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

// Calls returns a copy of every command received so far.
func (r *Runner) Calls() []ffmpeg.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ffmpeg.Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsTo returns the received commands named name.
func (r *Runner) CallsTo(name string) []ffmpeg.Command {
	var out []ffmpeg.Command
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent command named name whose arguments contain
// arg (any arg when empty), and whether one exists.
func (r *Runner) Last(name, arg string) (ffmpeg.Command, bool) {
	calls := r.CallsTo(name)
	for i := len(calls) - 1; i >= 0; i-- {
		if arg == "" || hasArg(calls[i].Args, arg) {
			return calls[i], true
		}
	}
	return ffmpeg.Command{}, false
}

// Joined renders args as a single space-separated string for substring
// assertions.
func Joined(cmd ffmpeg.Command) string {
	return strings.Join(cmd.Args, " ")
}
