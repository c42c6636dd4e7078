// Package check provides system diagnostics (the check subcommand) and
// startup dependency validation (CheckDeps) for ffmpeg, ffprobe, the H.264
// encoders, and AAC.
package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/backmassage/reframe/internal/config"
	"github.com/backmassage/reframe/internal/display"
	"github.com/backmassage/reframe/internal/encoder"
	"github.com/backmassage/reframe/internal/ffmpeg"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found or not runnable")
	ErrFFprobeNotFound = errors.New("ffprobe not found or not runnable")
)

// toolTimeout bounds each diagnostic ffmpeg invocation.
const toolTimeout = 10 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// Report is what RunCheck found.
type Report struct {
	FFmpegVersion  string
	FFprobeVersion string
	H264Encoders   []string
	Selected       encoder.Kind
	AAC            bool
	Host           HostInfo
}

// HostInfo describes the machine for the diagnostics header.
type HostInfo struct {
	Platform     string
	LogicalCPUs  int
	PhysicalCPUs int
	TotalMemory  uint64
	FreeMemory   uint64
	FreeDisk     uint64 // in the working directory
}

// hostInfo is replaced in tests.
var hostInfo = readHostInfo

// RunCheck runs the interactive check flow: host summary, ffmpeg and
// ffprobe versions, the H.264 encoders ffmpeg reports, the encoder the
// detector would pick, and an AAC test encode. It is informational only
// and does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, runner ffmpeg.Runner, det *encoder.Detector, log Logger) Report {
	log.Info("=== System Check ===")
	var r Report

	r.Host = checkHost(ctx, log)
	r.FFmpegVersion = checkVersion(ctx, runner, cfg.FFmpegPath, log)
	r.FFprobeVersion = checkVersion(ctx, runner, cfg.FFprobePath, log)
	r.H264Encoders = checkH264Encoders(ctx, runner, cfg.FFmpegPath, log)

	r.Selected = det.Select(ctx)
	log.Info("Selected encoder: %s", r.Selected.Info())

	r.AAC = checkAAC(ctx, runner, cfg.FFmpegPath, log)
	return r
}

func checkHost(ctx context.Context, log Logger) HostInfo {
	hi, err := hostInfo(ctx)
	if err != nil {
		log.Warn("Host info incomplete: %v", err)
	}
	if hi.Platform != "" {
		log.Info("Host: %s", hi.Platform)
	}
	if hi.LogicalCPUs > 0 {
		log.Info("CPU: %d logical / %d physical cores", hi.LogicalCPUs, hi.PhysicalCPUs)
	}
	if hi.TotalMemory > 0 {
		log.Info("Memory: %s free of %s",
			display.FormatBytes(int64(hi.FreeMemory)), display.FormatBytes(int64(hi.TotalMemory)))
	}
	if hi.FreeDisk > 0 {
		log.Info("Disk: %s free in working directory", display.FormatBytes(int64(hi.FreeDisk)))
	}
	return hi
}

// readHostInfo collects what gopsutil can report; fields it cannot read
// stay zero and the first error is returned.
func readHostInfo(ctx context.Context) (HostInfo, error) {
	var hi HostInfo
	var errs []error

	if h, err := host.InfoWithContext(ctx); err == nil {
		hi.Platform = strings.TrimSpace(fmt.Sprintf("%s %s (%s)", h.Platform, h.PlatformVersion, h.KernelArch))
	} else {
		errs = append(errs, fmt.Errorf("host: %w", err))
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		hi.LogicalCPUs = n
	} else {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		hi.PhysicalCPUs = n
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		hi.TotalMemory = vm.Total
		hi.FreeMemory = vm.Available
	} else {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	}
	if du, err := disk.UsageWithContext(ctx, "."); err == nil {
		hi.FreeDisk = du.Free
	}
	return hi, errors.Join(errs...)
}

// checkVersion runs "<tool> -version" and logs the first line.
func checkVersion(ctx context.Context, runner ffmpeg.Runner, tool string, log Logger) string {
	res, err := runTool(ctx, runner, tool, "-version")
	if err != nil {
		log.Error("%s not usable: %v", tool, err)
		return ""
	}
	first := firstLine(res.Stdout)
	log.Success("%s: %s", tool, first)
	return first
}

// checkH264Encoders lists the H.264 encoders ffmpeg reports.
func checkH264Encoders(ctx context.Context, runner ffmpeg.Runner, ffmpegPath string, log Logger) []string {
	log.Info("H.264 encoders:")
	res, err := runTool(ctx, runner, ffmpegPath, encoder.ListArgs()...)
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return nil
	}
	var found []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if strings.Contains(line, "264") {
			found = append(found, strings.TrimSpace(line))
			log.Info("  %s", strings.TrimSpace(line))
		}
	}
	if len(found) == 0 {
		log.Warn("  none reported")
	}
	return found
}

// checkAAC runs a minimal AAC encode to verify the audio encoder works.
func checkAAC(ctx context.Context, runner ffmpeg.Runner, ffmpegPath string, log Logger) bool {
	log.Info("Testing AAC encoder...")
	if _, err := runTool(ctx, runner, ffmpegPath, aacTestArgs()...); err != nil {
		log.Error("AAC encoder test failed")
		return false
	}
	log.Success("AAC encoder works")
	return true
}

// CheckDeps is the startup validation: it verifies that ffmpeg and
// ffprobe can be executed. Returns a sentinel error on failure.
func CheckDeps(ctx context.Context, cfg *config.Config, runner ffmpeg.Runner) error {
	if _, err := runTool(ctx, runner, cfg.FFmpegPath, "-version"); err != nil {
		return fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	if _, err := runTool(ctx, runner, cfg.FFprobePath, "-version"); err != nil {
		return fmt.Errorf("%w: %v", ErrFFprobeNotFound, err)
	}
	return nil
}

// --- internal helpers ---

func runTool(ctx context.Context, runner ffmpeg.Runner, name string, args ...string) (*ffmpeg.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()
	return runner.Run(ctx, ffmpeg.Command{Name: name, Args: args})
}

// aacTestArgs returns the ffmpeg arguments for a minimal AAC test encode.
func aacTestArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", "aac", "-f", "null", "-",
	}
}

func firstLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
