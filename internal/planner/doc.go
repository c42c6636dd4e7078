// Package planner turns caller intent plus probe data into concrete
// decisions: output geometry, the ffmpeg filter chain, and the audio
// strategy. Everything here is pure; nothing spawns a process.
//
//   - AspectRatio, FitCanvas, StandardSizeFor: canvas geometry (aspect.go, canvas.go)
//   - BuildFilterChain, EscapeSubtitlePath: ordered filter stages (filter.go)
//   - DecideAudioStrategy, DecideExtraction: copy vs re-encode (audio.go)
//   - ResolveExport, ResolveExtractAudio: one-shot default resolution (resolve.go)
package planner
