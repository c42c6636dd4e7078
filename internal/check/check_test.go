package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/encoder"
	"github.com/backmassage/reframe/internal/ffmpeg/ffmpegtest"
)

type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordLogger) Info(f string, a ...interface{})    { l.add("INFO", f, a...) }
func (l *recordLogger) Success(f string, a ...interface{}) { l.add("SUCCESS", f, a...) }
func (l *recordLogger) Warn(f string, a ...interface{})    { l.add("WARN", f, a...) }
func (l *recordLogger) Error(f string, a ...interface{})   { l.add("ERROR", f, a...) }

func (l *recordLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

const encoderListing = `Encoders:
 V..... libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10
 V..... h264_nvenc           NVIDIA NVENC H.264 encoder (codec h264)
 V..... libopenh264          OpenH264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V..... libx265              libx265 H.265 / HEVC
 A..... aac                  AAC (Advanced Audio Coding)
`

func stubHost(t *testing.T, hi HostInfo, err error) {
	t.Helper()
	prev := hostInfo
	hostInfo = func(context.Context) (HostInfo, error) { return hi, err }
	t.Cleanup(func() { hostInfo = prev })
}

func TestRunCheck(t *testing.T) {
	stubHost(t, HostInfo{
		Platform:     "ubuntu 24.04 (x86_64)",
		LogicalCPUs:  8,
		PhysicalCPUs: 4,
		TotalMemory:  16 << 30,
		FreeMemory:   8 << 30,
	}, nil)

	cfg := config.DefaultConfig()
	r := ffmpegtest.New().
		On("ffmpeg", "-version", ffmpegtest.Response{Stdout: "ffmpeg version 7.1 Copyright (c)\nbuilt with gcc\n"}).
		On("ffprobe", "-version", ffmpegtest.Response{Stdout: "ffprobe version 7.1\n"}).
		On("ffmpeg", "-encoders", ffmpegtest.Response{Stdout: encoderListing})
	det := encoder.NewDetector(r, cfg.FFmpegPath, 0)
	det.GOOS = "linux"
	log := &recordLogger{}

	rep := RunCheck(context.Background(), &cfg, r, det, log)

	assert.Equal(t, "ffmpeg version 7.1 Copyright (c)", rep.FFmpegVersion)
	assert.Equal(t, "ffprobe version 7.1", rep.FFprobeVersion)
	// Every H.264 encoder, and nothing from the HEVC or audio lines.
	require.Len(t, rep.H264Encoders, 3)
	assert.Contains(t, rep.H264Encoders[0], "libx264")
	assert.Contains(t, rep.H264Encoders[1], "h264_nvenc")
	assert.Contains(t, rep.H264Encoders[2], "libopenh264")
	assert.Equal(t, encoder.NVENC, rep.Selected)
	assert.True(t, rep.AAC)
	assert.Equal(t, 8, rep.Host.LogicalCPUs)

	out := log.joined()
	assert.Contains(t, out, "INFO Host: ubuntu 24.04 (x86_64)")
	assert.Contains(t, out, "INFO CPU: 8 logical / 4 physical cores")
	assert.Contains(t, out, "INFO Memory: 8.0 GiB free of 16 GiB")
	assert.Contains(t, out, "SUCCESS AAC encoder works")
	assert.Contains(t, out, "Selected encoder: ")
}

func TestRunCheck_ToolsMissing(t *testing.T) {
	stubHost(t, HostInfo{}, errors.New("no /proc"))

	cfg := config.DefaultConfig()
	spawn := ffmpegtest.Response{StartErr: errors.New("executable file not found in $PATH")}
	r := ffmpegtest.New().On("ffmpeg", "", spawn).On("ffprobe", "", spawn)
	det := encoder.NewDetector(r, cfg.FFmpegPath, 0)
	log := &recordLogger{}

	rep := RunCheck(context.Background(), &cfg, r, det, log)

	assert.Empty(t, rep.FFmpegVersion)
	assert.Empty(t, rep.H264Encoders)
	assert.Equal(t, encoder.Software, rep.Selected)
	assert.False(t, rep.AAC)

	out := log.joined()
	assert.Contains(t, out, "WARN Host info incomplete: no /proc")
	assert.Contains(t, out, "ERROR ffmpeg not usable")
	assert.Contains(t, out, "ERROR AAC encoder test failed")
}

func TestCheckDeps(t *testing.T) {
	cfg := config.DefaultConfig()

	ok := ffmpegtest.New()
	assert.NoError(t, CheckDeps(context.Background(), &cfg, ok))

	noFFmpeg := ffmpegtest.New().On("ffmpeg", "", ffmpegtest.Response{StartErr: errors.New("not found")})
	assert.ErrorIs(t, CheckDeps(context.Background(), &cfg, noFFmpeg), ErrFFmpegNotFound)

	noFFprobe := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{ExitCode: 127})
	assert.ErrorIs(t, CheckDeps(context.Background(), &cfg, noFFprobe), ErrFFprobeNotFound)
}

func TestReadHostInfo(t *testing.T) {
	// Real host; only sanity-check what gopsutil could read.
	hi, _ := readHostInfo(context.Background())
	if hi.LogicalCPUs > 0 {
		assert.GreaterOrEqual(t, hi.LogicalCPUs, hi.PhysicalCPUs)
	}
	if hi.TotalMemory > 0 {
		assert.LessOrEqual(t, hi.FreeMemory, hi.TotalMemory)
	}
}
