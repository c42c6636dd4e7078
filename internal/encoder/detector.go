package encoder

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/backmassage/reframe/internal/ffmpeg"
)

// detectTimeout bounds the encoder listing call.
const detectTimeout = 5 * time.Second

// Detector finds the best available H.264 encoder by asking ffmpeg for its
// encoder list. With a zero CacheTTL every Select call queries ffmpeg.
type Detector struct {
	runner     ffmpeg.Runner
	ffmpegPath string

	// GOOS gates VideoToolbox, which only exists on darwin.
	GOOS string
	// CacheTTL keeps a detection result for this long when positive.
	CacheTTL time.Duration

	now func() time.Time

	mu       sync.RWMutex
	cached   Kind
	cachedAt time.Time
	hasCache bool
}

// NewDetector returns a Detector for the host platform.
func NewDetector(runner ffmpeg.Runner, ffmpegPath string, cacheTTL time.Duration) *Detector {
	return &Detector{
		runner:     runner,
		ffmpegPath: ffmpegPath,
		GOOS:       runtime.GOOS,
		CacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// Select returns VideoToolbox, then NVENC, then Software, in that order of
// preference. A failed listing means no hardware encoder is available.
func (d *Detector) Select(ctx context.Context) Kind {
	if k, ok := d.fromCache(); ok {
		return k
	}

	k := d.detect(ctx)

	if d.CacheTTL > 0 {
		d.mu.Lock()
		d.cached = k
		d.cachedAt = d.now()
		d.hasCache = true
		d.mu.Unlock()
	}
	return k
}

func (d *Detector) fromCache() (Kind, bool) {
	if d.CacheTTL <= 0 {
		return Software, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.hasCache || d.now().Sub(d.cachedAt) >= d.CacheTTL {
		return Software, false
	}
	return d.cached, true
}

func (d *Detector) detect(ctx context.Context) Kind {
	listing, ok := d.listEncoders(ctx)
	if !ok {
		return Software
	}
	if d.GOOS == "darwin" && bytes.Contains(listing, []byte(VideoToolbox.String())) {
		return VideoToolbox
	}
	if bytes.Contains(listing, []byte(NVENC.String())) {
		return NVENC
	}
	return Software
}

// listEncoders returns ffmpeg's combined encoder listing output.
func (d *Detector) listEncoders(ctx context.Context) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	res, err := d.runner.Run(ctx, ffmpeg.Command{
		Name: d.ffmpegPath,
		Args: ListArgs(),
	})
	if err != nil || res == nil {
		return nil, false
	}
	out := make([]byte, 0, len(res.Stdout)+len(res.Stderr))
	out = append(out, res.Stdout...)
	out = append(out, res.Stderr...)
	return out, true
}

// ListArgs returns the arguments for ffmpeg's encoder listing.
func ListArgs() []string {
	return []string{"-hide_banner", "-encoders"}
}
