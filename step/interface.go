package step

import (
	"context"
)

// Metadata describes a step variant. It never changes after construction.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// ContinuesOnFailure lets the chain end normally, or follow NextStep,
	// when the step fails.
	ContinuesOnFailure bool `json:"continues_on_failure"`
}

// Step represents one named unit of recipe processing.
type Step interface {
	Metadata() Metadata

	// Execute never panics on purpose and never returns a Go error: every
	// outcome, including failure, is reported through Result. The chain
	// runner still recovers panics.
	Execute(ctx context.Context, sc *Context) Result
}
