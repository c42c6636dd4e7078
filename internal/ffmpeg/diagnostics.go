package ffmpeg

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for summarizing why an ffmpeg or ffprobe run
// failed. Checked in order by [Classify]; the first match wins.
var diagnosticPatterns = []struct {
	re   *regexp.Regexp
	hint string
}{
	{
		regexp.MustCompile(`(?i)No NVENC capable devices found|Cannot load libcuda|OpenEncodeSessionEx failed|` +
			`Error creating a VideoToolbox session|cannot create compression session`),
		"hardware encoder unavailable at runtime",
	},
	{
		regexp.MustCompile(`(?i)Unknown encoder|Encoder .* not found|Unrecognized option`),
		"encoder or option not supported by this ffmpeg build",
	},
	{
		regexp.MustCompile(`(?i)Error (?:re)?initializing (?:complex )?filters?|No such filter|` +
			`Unable to open .*\.(?:srt|ass|ssa|vtt)|Unable to parse option value`),
		"filter graph rejected",
	},
	{
		regexp.MustCompile(`(?i)Permission denied`),
		"permission denied",
	},
	{
		regexp.MustCompile(`(?i)No such file or directory|does not exist`),
		"input file not found",
	},
	{
		regexp.MustCompile(`(?i)Invalid data found when processing input|moov atom not found`),
		"input is not a readable media file",
	},
	{
		regexp.MustCompile(`(?i)No space left on device`),
		"disk full",
	},
}

// Classify returns a short hint describing the failure in stderr, or ""
// when no known pattern matches.
func Classify(stderr string) string {
	for _, p := range diagnosticPatterns {
		if p.re.MatchString(stderr) {
			return p.hint
		}
	}
	return ""
}

// Tail returns the last n non-empty lines of s. Carriage-return separated
// stats updates are treated as lines.
func Tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			kept = append(kept, l)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// diagnosticTailLines is how much tool output is kept on a failure.
const diagnosticTailLines = 20

// Diagnose builds the diagnostic text attached to a failed run: the
// classification hint (if any) followed by the stderr tail.
func Diagnose(stderr string) string {
	tail := Tail(stderr, diagnosticTailLines)
	if hint := Classify(stderr); hint != "" {
		if tail == "" {
			return hint
		}
		return hint + "\n" + tail
	}
	return tail
}
