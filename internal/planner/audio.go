package planner

import (
	"fmt"
	"strings"

	"github.com/backmassage/reframe/internal/probe"
)

// aacCopyMaxBitrate is the upper bound (inclusive) for copying an AAC
// stream. AAC above it is re-encoded to keep output size in check.
const aacCopyMaxBitrate int32 = 160_000 // 160 kbps

// CodecCopy is the ffmpeg codec name for stream copy.
const CodecCopy = "copy"

// defaultAudioCodec is the re-encode target for export audio.
const defaultAudioCodec = "aac"

// vbrQuality is the AAC variable bitrate quality used for re-encodes.
var vbrQuality = []string{"-q:a", "2"}

// AudioDecision is the export audio strategy.
type AudioDecision struct {
	Codec     string   // "copy" or the encoder name
	ExtraArgs []string // encoder options following -c:a
	Fallback  bool     // codec was not in any known list
	Note      string   // diagnostic for fallback decisions
}

// IsCopy reports whether audio is passed through untouched.
func (d AudioDecision) IsCopy() bool { return d.Codec == CodecCopy }

// Args returns the -c:a argument block.
func (d AudioDecision) Args() []string {
	return append([]string{"-c:a", d.Codec}, d.ExtraArgs...)
}

// Codecs passed through as-is: already efficient lossy formats.
var audioCopyCodecs = map[string]bool{
	"mp3": true, "opus": true, "vorbis": true,
	"ac3": true, "eac3": true, "dts": true, "mp2": true,
}

// Codecs always re-encoded: lossless or legacy formats.
var audioReencodeCodecs = map[string]bool{
	"flac": true, "alac": true, "ape": true, "wavpack": true,
	"gsm": true, "speex": true,
}

// DecideAudioStrategy picks copy vs re-encode for export audio. The rules
// are evaluated in order:
//
//   - no probe, no audio, or unknown codec: re-encode to AAC VBR
//   - PCM / ADPCM: re-encode
//   - AAC at or below 160 kbps, or of unknown bitrate: copy
//   - known efficient codecs: copy
//   - lossless / legacy codecs: re-encode
//   - anything else (including AAC above 160 kbps): re-encode, flagged as a fallback
func DecideAudioStrategy(p *probe.MediaProbe) AudioDecision {
	reencode := AudioDecision{Codec: defaultAudioCodec, ExtraArgs: append([]string(nil), vbrQuality...)}

	if p == nil || !p.HasAudio || p.AudioCodec == nil {
		return reencode
	}

	codec := strings.ToLower(*p.AudioCodec)

	if strings.HasPrefix(codec, "pcm_") || strings.HasPrefix(codec, "adpcm_") {
		return reencode
	}

	if codec == "aac" && (p.AudioBitrate == nil || *p.AudioBitrate <= aacCopyMaxBitrate) {
		return AudioDecision{Codec: CodecCopy}
	}

	switch {
	case audioCopyCodecs[codec]:
		return AudioDecision{Codec: CodecCopy}
	case audioReencodeCodecs[codec]:
		return reencode
	}

	reencode.Fallback = true
	reencode.Note = fmt.Sprintf("Codec '%s' - re-encoding with VBR for optimal quality/size", *p.AudioCodec)
	return reencode
}

// ExtractionDecision is the audio-only extraction strategy.
type ExtractionDecision struct {
	Copy    bool
	Encoder string // ffmpeg encoder when not copying
	Bitrate string // "-b:a" value, empty for none
}

// extractAACBitrate is the bitrate used when extraction re-encodes to AAC.
const extractAACBitrate = "160k"

// Codec returns the -acodec value.
func (d ExtractionDecision) Codec() string {
	if d.Copy {
		return CodecCopy
	}
	return d.Encoder
}

// DecideExtraction chooses between copying the probed audio stream and
// re-encoding it to target. A missing probe always re-encodes.
func DecideExtraction(p *probe.MediaProbe, target AudioTarget) ExtractionDecision {
	family := target.CodecFamily()
	if p != nil && p.AudioCodec != nil && family != "" && strings.EqualFold(*p.AudioCodec, family) {
		return ExtractionDecision{Copy: true}
	}
	d := ExtractionDecision{Encoder: target.Encoder()}
	if d.Encoder == "aac" {
		d.Bitrate = extractAACBitrate
	}
	return d
}
