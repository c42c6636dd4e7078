package probe

import (
	"math"
	"strconv"
)

// MediaProbe is the normalized metadata record for one input file. It is
// built once per operation and treated as read-only afterwards.
type MediaProbe struct {
	Duration     *float64 `json:"duration"` // seconds
	Width        *int     `json:"width"`
	Height       *int     `json:"height"`
	FPS          *float64 `json:"fps"`
	HasVideo     bool     `json:"video"`
	HasAudio     bool     `json:"audio"`
	AudioCodec   *string  `json:"audioCodec"`
	AudioBitrate *int32   `json:"audioBitrate"` // bits/sec
}

// Dimensions returns the video frame size when both values are known and
// positive.
func (p *MediaProbe) Dimensions() (w, h int, ok bool) {
	if p == nil || p.Width == nil || p.Height == nil || *p.Width <= 0 || *p.Height <= 0 {
		return 0, 0, false
	}
	return *p.Width, *p.Height, true
}

// FrameRate returns the average frame rate when known and positive.
func (p *MediaProbe) FrameRate() (float64, bool) {
	if p == nil || p.FPS == nil || !(*p.FPS > 0) || math.IsInf(*p.FPS, 0) {
		return 0, false
	}
	return *p.FPS, true
}

// DurationSeconds returns the duration when known and positive.
func (p *MediaProbe) DurationSeconds() (float64, bool) {
	if p == nil || p.Duration == nil || *p.Duration <= 0 {
		return 0, false
	}
	return *p.Duration, true
}

// Resolution returns "WxH", or "unknown".
func (p *MediaProbe) Resolution() string {
	w, h, ok := p.Dimensions()
	if !ok {
		return "unknown"
	}
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}

// AudioCodecName returns the audio codec or "".
func (p *MediaProbe) AudioCodecName() string {
	if p == nil || p.AudioCodec == nil {
		return ""
	}
	return *p.AudioCodec
}
