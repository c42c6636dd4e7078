package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/reframe/internal/failure"
	"github.com/backmassage/reframe/internal/ffmpeg/ffmpegtest"
)

// Realistic ffprobe JSON for an MP4 with:
//   - an attached cover picture (must not be used as the video stream)
//   - 1 H.264 1920x1080 video stream at 30000/1001
//   - 1 AAC stereo stream at 128 kbps
const sampleLandscape = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "width": 600,
      "height": 900,
      "avg_frame_rate": "0/0",
      "disposition": { "default": 0, "attached_pic": 1 }
    },
    {
      "index": 1,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001",
      "duration": "12.012000",
      "bit_rate": "8000000",
      "disposition": { "default": 1, "attached_pic": 0 }
    },
    {
      "index": 2,
      "codec_name": "aac",
      "codec_type": "audio",
      "bit_rate": "128000",
      "disposition": { "default": 1, "attached_pic": 0 }
    },
    {
      "index": 3,
      "codec_name": "mp3",
      "codec_type": "audio",
      "bit_rate": "320000"
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "duration": "12.050000"
  }
}`

// WebM without container duration; the video stream carries it.
const sampleNoFormatDuration = `{
  "streams": [
    {
      "codec_name": "vp9",
      "codec_type": "video",
      "width": 1080,
      "height": 1920,
      "avg_frame_rate": "24",
      "duration": "5.5"
    }
  ],
  "format": {}
}`

// Audio-only WAV: huge bitrate that does not fit int32 is dropped.
const sampleAudioOnly = `{
  "streams": [
    {
      "codec_name": "pcm_s16le",
      "codec_type": "audio",
      "bit_rate": "9999999999"
    }
  ],
  "format": { "duration": "N/A" }
}`

func TestParseJSON_Landscape(t *testing.T) {
	p, err := ParseJSON([]byte(sampleLandscape))
	require.NoError(t, err)

	assert.True(t, p.HasVideo)
	assert.True(t, p.HasAudio)

	w, h, ok := p.Dimensions()
	require.True(t, ok)
	assert.Equal(t, 1920, w, "cover art must be skipped")
	assert.Equal(t, 1080, h)
	assert.Equal(t, "1920x1080", p.Resolution())

	fps, ok := p.FrameRate()
	require.True(t, ok)
	assert.InDelta(t, 29.97, fps, 0.001)

	require.NotNil(t, p.Duration)
	assert.Equal(t, 12.05, *p.Duration, "container duration wins")

	assert.Equal(t, "aac", p.AudioCodecName(), "first audio stream wins")
	require.NotNil(t, p.AudioBitrate)
	assert.Equal(t, int32(128000), *p.AudioBitrate)
}

func TestParseJSON_DurationFallback(t *testing.T) {
	p, err := ParseJSON([]byte(sampleNoFormatDuration))
	require.NoError(t, err)

	require.NotNil(t, p.Duration)
	assert.Equal(t, 5.5, *p.Duration)
	assert.False(t, p.HasAudio)
	assert.Nil(t, p.AudioCodec)
	fps, ok := p.FrameRate()
	require.True(t, ok)
	assert.Equal(t, 24.0, fps)
}

func TestParseJSON_AudioOnly(t *testing.T) {
	p, err := ParseJSON([]byte(sampleAudioOnly))
	require.NoError(t, err)

	assert.False(t, p.HasVideo)
	assert.Equal(t, "unknown", p.Resolution())
	assert.Nil(t, p.Duration, "N/A is not a duration")
	assert.Nil(t, p.AudioBitrate, "bitrate overflowing int32 is unknown")
	assert.Equal(t, "pcm_s16le", p.AudioCodecName())
}

func TestParseJSON_Invalid(t *testing.T) {
	_, err := ParseJSON([]byte(`{"streams": "nope"}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseJSON_Deterministic(t *testing.T) {
	a, err := ParseJSON([]byte(sampleLandscape))
	require.NoError(t, err)
	b, err := ParseJSON([]byte(sampleLandscape))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"30000/1001", 29.97, true},
		{"24/1", 24.0, true},
		{"25", 25.0, true},
		{"23.976", 23.976, true},
		{"0/0", 0, false},
		{"30/0", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"x/1", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"-Inf", 0, false},
		{"1e400/1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFrameRate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestNilProbeAccessors(t *testing.T) {
	var p *MediaProbe
	_, _, ok := p.Dimensions()
	assert.False(t, ok)
	_, ok = p.FrameRate()
	assert.False(t, ok)
	_, ok = p.DurationSeconds()
	assert.False(t, ok)
	assert.Equal(t, "", p.AudioCodecName())
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{Stdout: sampleLandscape})
		p, err := Probe(ctx, r, "ffprobe", "clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, "1920x1080", p.Resolution())

		calls := r.CallsTo("ffprobe")
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"-v", "error", "-print_format", "json", "-show_streams", "-show_format", "clip.mp4"}, calls[0].Args)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{
			ExitCode: 1,
			Stderr:   "missing.mp4: No such file or directory\n",
		})
		_, err := Probe(ctx, r, "ffprobe", "missing.mp4")
		require.Error(t, err)
		assert.ErrorIs(t, err, failure.ErrProbe)

		var ferr *failure.Error
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "ffprobe", ferr.Process)
		assert.Equal(t, 1, ferr.ExitCode)
		assert.Contains(t, ferr.Diagnostic, "input file not found")
	})

	t.Run("spawn failure", func(t *testing.T) {
		r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{StartErr: errors.New("executable file not found")})
		_, err := Probe(ctx, r, "ffprobe", "clip.mp4")
		assert.ErrorIs(t, err, failure.ErrProbe)
		assert.Equal(t, -1, err.(*failure.Error).ExitCode)
	})

	t.Run("unparsable output", func(t *testing.T) {
		r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{Stdout: "garbage"})
		_, err := Probe(ctx, r, "ffprobe", "clip.mp4")
		assert.ErrorIs(t, err, failure.ErrProbe)
	})

	t.Run("idempotent", func(t *testing.T) {
		r := ffmpegtest.New().On("ffprobe", "", ffmpegtest.Response{Stdout: sampleLandscape})
		a, err := Probe(ctx, r, "ffprobe", "clip.mp4")
		require.NoError(t, err)
		b, err := Probe(ctx, r, "ffprobe", "clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
