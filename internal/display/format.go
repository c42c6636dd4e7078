// Package display formats sizes, bitrates, and probe summaries for
// human-facing output.
package display

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/backmassage/reframe/internal/probe"
)

// FormatBytes returns a human-readable size in IEC units (e.g. "4.7 GiB").
// Negative sizes are reported as "0 B".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatBitrateLabel returns a short label for bitrate in kbps (e.g. "1200 kbps").
func FormatBitrateLabel(kbps int64) string {
	if kbps < 1000 {
		return fmt.Sprintf("%d kbps", kbps)
	}
	return fmt.Sprintf("%.1f Mbps", float64(kbps)/1000)
}

// ProbeSummary renders p as a single line, e.g.
// "1920x1080 @ 29.97 fps, 1m 2.5s, audio aac 128 kbps". Unknown fields are
// left out.
func ProbeSummary(p *probe.MediaProbe) string {
	if p == nil {
		return "no media information"
	}
	var parts []string

	if p.HasVideo {
		v := "video"
		if w, h, ok := p.Dimensions(); ok {
			v = fmt.Sprintf("%dx%d", w, h)
		}
		if fps, ok := p.FrameRate(); ok {
			v += fmt.Sprintf(" @ %s fps", humanize.FtoaWithDigits(fps, 2))
		}
		parts = append(parts, v)
	}
	if d, ok := p.DurationSeconds(); ok {
		parts = append(parts, FormatDuration(d))
	}
	if p.HasAudio {
		a := "audio"
		if c := p.AudioCodecName(); c != "" {
			a += " " + c
		}
		if p.AudioBitrate != nil && *p.AudioBitrate > 0 {
			a += " " + FormatBitrateLabel(int64(*p.AudioBitrate)/1000)
		}
		parts = append(parts, a)
	}
	if len(parts) == 0 {
		return "no video or audio streams"
	}
	return strings.Join(parts, ", ")
}

// FormatDuration renders seconds as "1h 2m 3.5s", dropping leading zero units.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	secs := humanize.FtoaWithDigits(s, 1) + "s"
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %s", h, m, secs)
	case m > 0:
		return fmt.Sprintf("%dm %s", m, secs)
	}
	return secs
}
