package ffmpeg

import (
	"bytes"
	"regexp"
	"strconv"
	"sync"
)

// reTime matches the running position ffmpeg prints with -stats, e.g.
// "frame=  240 fps= 60 q=18.0 size=  1024kB time=00:00:10.00 bitrate=...".
var reTime = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseProgressTime returns the position in seconds reported by a stats
// line. It returns false for lines without a position (or "time=N/A").
func ParseProgressTime(line string) (float64, bool) {
	m := reTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(mins)*60 + secs, true
}

// minProgressStep is the smallest fraction advance reported to the callback.
const minProgressStep = 0.01

// ProgressWriter is an io.Writer that turns ffmpeg stats output into a
// completion fraction. Stats lines are separated by '\r' while ffmpeg is
// running and by '\n' in log output; both are handled.
type ProgressWriter struct {
	mu       sync.Mutex
	total    float64
	report   func(fraction float64)
	pending  []byte
	reported float64
}

// NewProgressWriter reports fractions of totalSeconds to report. A
// non-positive total disables reporting; the writer still accepts output.
func NewProgressWriter(totalSeconds float64, report func(fraction float64)) *ProgressWriter {
	return &ProgressWriter{total: totalSeconds, report: report, reported: -1}
}

func (w *ProgressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexAny(w.pending, "\r\n")
		if i < 0 {
			break
		}
		w.line(string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *ProgressWriter) line(s string) {
	if w.total <= 0 || w.report == nil {
		return
	}
	pos, ok := ParseProgressTime(s)
	if !ok {
		return
	}
	f := pos / w.total
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	if w.reported >= 0 && f-w.reported < minProgressStep {
		return
	}
	w.reported = f
	w.report(f)
}
