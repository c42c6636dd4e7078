// Package probe provides ffprobe-based media inspection. A single JSON call
// per file yields a [MediaProbe]: the handful of facts (dimensions, frame
// rate, duration, audio codec and bitrate) that planning decisions need.
//
// Optional facts are pointers; nil means ffprobe did not report the value
// or reported something unparsable, which planners treat as "unknown".
package probe
