package rpc

import (
	"encoding/json"

	"github.com/backmassage/reframe/internal/engine"
	"github.com/backmassage/reframe/internal/planner"
)

// Request is one JSON line read from the client.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Method names.
const (
	MethodProbe        = "probe"
	MethodExport       = "export"
	MethodExtractAudio = "extractAudio"
)

type resultResponse struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result"`
}

type errorResponse struct {
	ID    string    `json:"id"`
	Error wireError `json:"error"`
}

type wireError struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Error kinds for failures that happen before an operation starts.
const (
	kindInvalidRequest = "invalid_request"
	kindInternal       = "internal"
)

type progressEvent struct {
	Event    string  `json:"event"`
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

type logEvent struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

func encodeEvent(ev engine.Event) interface{} {
	if ev.Kind == engine.KindProgress {
		return progressEvent{Event: "progress", ID: ev.ID, Status: ev.Status, Progress: ev.Progress}
	}
	return logEvent{Event: "log", ID: ev.ID, Message: ev.Message}
}

// --- params ---

type probeParams struct {
	Input string `json:"input"`
}

type exportParams struct {
	Input            string  `json:"input"`
	Out              string  `json:"out"`
	Codec            string  `json:"codec"`
	CRF              *int    `json:"crf"`
	Preset           *string `json:"preset"`
	Tune             *string `json:"tune"`
	Width            *int    `json:"width"`
	Height           *int    `json:"height"`
	Format           *string `json:"format"`
	UseStandardSizes *bool   `json:"useStandardSizes"`
	Subtitles        *string `json:"subtitles"`
}

func (p exportParams) spec() planner.ExportSpec {
	return planner.ExportSpec{
		Input:            p.Input,
		Output:           p.Out,
		Codec:            p.Codec,
		Width:            p.Width,
		Height:           p.Height,
		Format:           p.Format,
		UseStandardSizes: p.UseStandardSizes,
		CRF:              p.CRF,
		Preset:           p.Preset,
		Tune:             p.Tune,
		Subtitles:        p.Subtitles,
	}
}

type extractAudioParams struct {
	Input string  `json:"input"`
	Out   *string `json:"out"`
	Codec *string `json:"codec"`
}

func (p extractAudioParams) spec() planner.ExtractAudioSpec {
	return planner.ExtractAudioSpec{Input: p.Input, Output: p.Out, Codec: p.Codec}
}
