// Package rpc serves engine operations over a JSON-lines stream: one
// request per input line, responses and events written as lines to the
// output. Requests run concurrently; each operation's events keep their
// order, and lines from different operations interleave.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/reframe/internal/engine"
	"github.com/backmassage/reframe/internal/failure"
	"github.com/backmassage/reframe/internal/logging"
	"github.com/backmassage/reframe/internal/planner"
	"github.com/backmassage/reframe/internal/probe"
)

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// eventBuffer is the per-operation event channel capacity.
const eventBuffer = 32

// Operations is the engine surface the server dispatches to.
type Operations interface {
	Probe(ctx context.Context, id, input string, events chan<- engine.Event) (*probe.MediaProbe, error)
	Export(ctx context.Context, id string, spec planner.ExportSpec, events chan<- engine.Event) (*engine.ExportResult, error)
	ExtractAudio(ctx context.Context, id string, spec planner.ExtractAudioSpec, events chan<- engine.Event) (*engine.ExtractAudioResult, error)
}

var errUnknownMethod = errors.New("unknown method")

// Server reads requests and writes responses.
type Server struct {
	ops Operations
	log *logging.Logger

	// CancelOnEOF cancels in-flight operations when the input ends. When
	// false, Serve waits for them to finish.
	CancelOnEOF bool

	mu  sync.Mutex // serializes writes
	enc *json.Encoder
}

// NewServer returns a Server writing to w.
func NewServer(ops Operations, w io.Writer, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{ops: ops, log: log, enc: json.NewEncoder(w)}
}

// Serve handles requests from r until it is exhausted or ctx is done, then
// waits for running operations. It returns the read error, or ctx's error
// when ctx ended first.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, opCtx := errgroup.WithContext(opCtx)

	lines, readErr := readLines(ctx, r)

	var err error
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				err = <-readErr
				break loop
			}
			var req Request
			if jerr := json.Unmarshal(line, &req); jerr != nil {
				s.writeError("", kindInvalidRequest, fmt.Sprintf("malformed request: %v", jerr), "")
				continue
			}
			if req.ID == "" {
				// Events and the response are matched by id, so one is required.
				s.writeError("", kindInvalidRequest, "missing request id", "")
				continue
			}
			g.Go(func() error {
				s.handle(opCtx, req)
				return nil
			})
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		}
	}

	if s.CancelOnEOF {
		s.log.Debug("input closed, cancelling in-flight operations")
		cancel()
	}
	_ = g.Wait()
	return err
}

// readLines scans r in its own goroutine so Serve can stop on ctx while a
// read is blocked. Empty lines are skipped. The error channel receives
// exactly one value after lines is closed.
func readLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			if len(sc.Bytes()) == 0 {
				continue
			}
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- sc.Err()
	}()
	return lines, errc
}

// handle runs one request, forwarding its events, then writes its response.
func (s *Server) handle(ctx context.Context, req Request) {
	events := make(chan engine.Event, eventBuffer)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range events {
			s.write(encodeEvent(ev))
		}
	}()

	result, err := s.dispatch(ctx, req, events)
	close(events)
	<-forwarded

	if err != nil {
		s.writeFailure(req.ID, err)
		return
	}
	s.write(resultResponse{ID: req.ID, Result: result})
}

func (s *Server) dispatch(ctx context.Context, req Request, events chan<- engine.Event) (interface{}, error) {
	s.log.Debug("request %s: %s", req.ID, req.Method)
	switch req.Method {
	case MethodProbe:
		var p probeParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.ops.Probe(ctx, req.ID, p.Input, events)
	case MethodExport:
		var p exportParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.ops.Export(ctx, req.ID, p.spec(), events)
	case MethodExtractAudio:
		var p extractAudioParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return s.ops.ExtractAudio(ctx, req.ID, p.spec(), events)
	}
	return nil, fmt.Errorf("%w %q", errUnknownMethod, req.Method)
}

type paramsError struct{ err error }

func (e *paramsError) Error() string { return "invalid params: " + e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &paramsError{err: err}
	}
	return nil
}

func (s *Server) writeFailure(id string, err error) {
	var ferr *failure.Error
	var perr *paramsError
	switch {
	case errors.As(err, &ferr):
		s.writeError(id, string(ferr.Kind), err.Error(), ferr.Diagnostic)
	case errors.As(err, &perr), errors.Is(err, errUnknownMethod):
		s.writeError(id, kindInvalidRequest, err.Error(), "")
	default:
		s.writeError(id, kindInternal, err.Error(), "")
	}
}

func (s *Server) writeError(id, kind, msg, diagnostic string) {
	s.write(errorResponse{ID: id, Error: wireError{Kind: kind, Message: msg, Diagnostic: diagnostic}})
}

func (s *Server) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.Error("write response: %v", err)
	}
}
