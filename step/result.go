package step

import (
	"encoding/json"
	"time"
)

// Result is the outcome of one step execution.
type Result struct {
	StepName string `json:"step"`
	Success  bool   `json:"success"`
	Output   any    `json:"output,omitempty"`
	// Error is set iff Success is false.
	Error string `json:"error,omitempty"`
	// Cause keeps the classified error for the chain runner.
	Cause      error  `json:"-"`
	DurationMs int64  `json:"duration_ms"`
	NextStep   string `json:"next_step,omitempty"`
	// Cached is set when the step's input came from the disk cache or
	// staging instead of the network.
	Cached bool `json:"cached,omitempty"`
}

// HasNext reports whether the step named a successor.
func (r Result) HasNext() bool {
	return r.NextStep != ""
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// Failed builds a failing Result attributed to name.
func Failed(name string, err error, durationMs int64) Result {
	return Result{
		StepName:   name,
		Error:      err.Error(),
		Cause:      err,
		DurationMs: durationMs,
	}
}

// MarshalIndent renders the result for step output files and the CLI.
func (r Result) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
