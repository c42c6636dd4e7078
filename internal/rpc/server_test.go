package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/engine"
	"github.com/backmassage/reframe/internal/failure"
	"github.com/backmassage/reframe/internal/ffmpeg/ffmpegtest"
	"github.com/backmassage/reframe/internal/logging"
	"github.com/backmassage/reframe/internal/planner"
	"github.com/backmassage/reframe/internal/probe"
)

// fakeOps records the specs it receives and emits one event per call.
type fakeOps struct {
	mu      sync.Mutex
	exports []planner.ExportSpec
	extract []planner.ExtractAudioSpec
	err     error
}

func (f *fakeOps) Probe(ctx context.Context, id, input string, events chan<- engine.Event) (*probe.MediaProbe, error) {
	events <- engine.Event{Kind: engine.KindProgress, ID: id, Status: "Probing…", Progress: 0.05}
	if f.err != nil {
		return nil, f.err
	}
	w, h := 1920, 1080
	return &probe.MediaProbe{Width: &w, Height: &h, HasVideo: true}, nil
}

func (f *fakeOps) Export(ctx context.Context, id string, spec planner.ExportSpec, events chan<- engine.Event) (*engine.ExportResult, error) {
	f.mu.Lock()
	f.exports = append(f.exports, spec)
	f.mu.Unlock()
	events <- engine.Event{Kind: engine.KindLog, ID: id, Message: "Scaling"}
	if f.err != nil {
		return nil, f.err
	}
	return &engine.ExportResult{Video: spec.Output}, nil
}

func (f *fakeOps) ExtractAudio(ctx context.Context, id string, spec planner.ExtractAudioSpec, events chan<- engine.Event) (*engine.ExtractAudioResult, error) {
	f.mu.Lock()
	f.extract = append(f.extract, spec)
	f.mu.Unlock()
	out := "default.m4a"
	if spec.Output != nil {
		out = *spec.Output
	}
	return &engine.ExtractAudioResult{Audio: out}, nil
}

func serve(t *testing.T, ops Operations, input string) []map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	s := NewServer(ops, &out, logging.Discard())
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input)))

	var lines []map[string]interface{}
	dec := json.NewDecoder(&out)
	for dec.More() {
		var m map[string]interface{}
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	return lines
}

func byID(lines []map[string]interface{}, id string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, l := range lines {
		if l["id"] == id {
			out = append(out, l)
		}
	}
	return out
}

func TestServe_Probe(t *testing.T) {
	lines := serve(t, &fakeOps{}, `{"id":"1","method":"probe","params":{"input":"a.mp4"}}`+"\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "progress", lines[0]["event"])
	assert.Equal(t, "Probing…", lines[0]["status"])
	assert.Equal(t, 0.05, lines[0]["progress"])

	result, ok := lines[1]["result"].(map[string]interface{})
	require.True(t, ok, "second line is the result: %v", lines[1])
	assert.Equal(t, 1920.0, result["width"])
	assert.Equal(t, true, result["video"])
	assert.Nil(t, result["duration"])
	assert.Contains(t, result, "audioCodec")
}

func TestServe_ExportParams(t *testing.T) {
	ops := &fakeOps{}
	lines := serve(t, ops, `{"id":"e","method":"export","params":{"input":"in.mov","out":"out.mp4","codec":"h264","format":"9:16","useStandardSizes":true,"crf":20,"subtitles":"a.srt"}}`+"\n")

	require.Len(t, ops.exports, 1)
	spec := ops.exports[0]
	assert.Equal(t, "in.mov", spec.Input)
	assert.Equal(t, "out.mp4", spec.Output)
	assert.Equal(t, "9:16", *spec.Format)
	assert.True(t, *spec.UseStandardSizes)
	assert.Equal(t, 20, *spec.CRF)
	assert.Equal(t, "a.srt", *spec.Subtitles)
	assert.Nil(t, spec.Width)

	require.Len(t, lines, 2)
	assert.Equal(t, map[string]interface{}{"event": "log", "id": "e", "message": "Scaling"}, lines[0])
	assert.Equal(t, map[string]interface{}{"video": "out.mp4"}, lines[1]["result"])
}

func TestServe_ExtractAudioParams(t *testing.T) {
	ops := &fakeOps{}
	lines := serve(t, ops, `{"id":"x","method":"extractAudio","params":{"input":"in.mov","codec":"m4a"}}`+"\n")

	require.Len(t, ops.extract, 1)
	assert.Equal(t, "m4a", *ops.extract[0].Codec)
	assert.Nil(t, ops.extract[0].Output)
	require.Len(t, lines, 1)
	assert.Equal(t, map[string]interface{}{"audio": "default.m4a"}, lines[0]["result"])
}

func TestServe_Errors(t *testing.T) {
	ops := &fakeOps{err: failure.Newf(failure.KindUnsupportedAspectRatio, "export", "Unsupported aspect ratio format: 3:2").
		WithDiagnostic("tail")}
	input := strings.Join([]string{
		`{"id":"u","method":"transcode"}`,
		`this is not json`,
		`{"id":"p","method":"export","params":{"width":"wide"}}`,
		`{"id":"f","method":"export","params":{"input":"a"}}`,
		`{"id":"q","method":"probe","params":{"input":"a"}}`,
	}, "\n") + "\n"
	lines := serve(t, ops, input)

	errOf := func(id string) map[string]interface{} {
		for _, l := range byID(lines, id) {
			if e, ok := l["error"].(map[string]interface{}); ok {
				return e
			}
		}
		t.Fatalf("no error response for %q in %v", id, lines)
		return nil
	}

	assert.Equal(t, "invalid_request", errOf("u")["kind"])
	assert.Contains(t, errOf("u")["message"], `unknown method "transcode"`)

	assert.Equal(t, "invalid_request", errOf("")["kind"])
	assert.Contains(t, errOf("")["message"], "malformed request")

	assert.Equal(t, "invalid_request", errOf("p")["kind"])
	assert.Contains(t, errOf("p")["message"], "invalid params")

	assert.Equal(t, "unsupported_aspect_ratio", errOf("f")["kind"])
	assert.Equal(t, "tail", errOf("f")["diagnostic"])
	assert.Equal(t, "unsupported_aspect_ratio", errOf("q")["kind"])
}

func TestServe_RequiresID(t *testing.T) {
	ops := &fakeOps{}
	lines := serve(t, ops, `{"method":"export","params":{"input":"a","out":"b"}}`+"\n"+
		`{"id":"","method":"probe","params":{"input":"a"}}`+"\n")

	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "", l["id"])
		assert.Nil(t, l["event"])
		assert.Equal(t, map[string]interface{}{"kind": "invalid_request", "message": "missing request id"}, l["error"])
	}
	assert.Empty(t, ops.exports)
}

func TestServe_InternalError(t *testing.T) {
	lines := serve(t, &fakeOps{err: errors.New("disk on fire")}, `{"id":"i","method":"probe","params":{}}`+"\n")
	last := lines[len(lines)-1]
	assert.Equal(t, map[string]interface{}{"kind": "internal", "message": "disk on fire"}, last["error"])
}

func TestServe_EventsPrecedeResponse(t *testing.T) {
	var b strings.Builder
	for _, id := range []string{"a", "b", "c", "d"} {
		b.WriteString(`{"id":"` + id + `","method":"probe","params":{"input":"x"}}` + "\n")
	}
	lines := serve(t, &fakeOps{}, b.String())
	require.Len(t, lines, 8)
	for _, id := range []string{"a", "b", "c", "d"} {
		got := byID(lines, id)
		require.Len(t, got, 2)
		assert.Equal(t, "progress", got[0]["event"])
		assert.Contains(t, got[1], "result")
	}
}

func TestServe_StopsOnContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	s := NewServer(&fakeOps{}, &out, nil)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, pr) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

// blockingOps holds every export until its context ends.
type blockingOps struct {
	fakeOps
	started chan struct{}
}

func (b *blockingOps) Export(ctx context.Context, id string, spec planner.ExportSpec, events chan<- engine.Event) (*engine.ExportResult, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestServe_CancelOnEOF(t *testing.T) {
	ops := &blockingOps{started: make(chan struct{})}
	pr, pw := io.Pipe()
	var out bytes.Buffer
	s := NewServer(ops, &out, nil)
	s.CancelOnEOF = true

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), pr) }()

	_, err := io.WriteString(pw, `{"id":"slow","method":"export","params":{"input":"a"}}`+"\n")
	require.NoError(t, err)
	<-ops.started
	require.NoError(t, pw.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not cancel the running export at EOF")
	}
	assert.Contains(t, out.String(), `"id":"slow"`)
	assert.Contains(t, out.String(), "context canceled")
}

// TestServe_Engine drives a real Engine over the wire with a scripted
// ffmpeg.
func TestServe_Engine(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mov")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	cfg := config.DefaultConfig()
	r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{Stdout: `{
  "streams": [{"codec_type": "video", "width": 1920, "height": 1080, "avg_frame_rate": "25/1"},
              {"codec_type": "audio", "codec_name": "aac", "bit_rate": "128000"}],
  "format": {"duration": "4.0"}
}`})
	eng := engine.New(&cfg, r, nil, logging.Discard())

	req, err := json.Marshal(Request{
		ID:     "job-1",
		Method: MethodExport,
		Params: json.RawMessage(`{"input":` + mustJSON(t, input) + `,"out":` + mustJSON(t, filepath.Join(dir, "out.mp4")) + `,"codec":"h264","format":"9:16"}`),
	})
	require.NoError(t, err)

	lines := serve(t, eng, string(req)+"\n")
	got := byID(lines, "job-1")
	require.NotEmpty(t, got)

	var logs []string
	for _, l := range got {
		if l["event"] == "log" {
			logs = append(logs, l["message"].(string))
		}
	}
	assert.Contains(t, logs, "High-quality conversion to 9:16 format (1920x1080) with padding to 1920x3412 - no scaling")
	assert.Equal(t, map[string]interface{}{"video": filepath.Join(dir, "out.mp4")}, got[len(got)-1]["result"])

	cmd, ok := r.Last("ffmpeg", "-vf")
	require.True(t, ok)
	assert.Contains(t, ffmpegtest.Joined(cmd), "pad=1920:3412:(ow-iw)/2:(oh-ih)/2:black")
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
