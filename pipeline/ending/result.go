package ending

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// StatusKind classifies how an input's chain ended.
type StatusKind int

const (
	KindSucceeded StatusKind = iota // chain reached a terminal step
	KindFailedAt                    // chain aborted at a step
	KindSkipped                     // chain never started
)

// String returns a string representation of the StatusKind.
func (k StatusKind) String() string {
	switch k {
	case KindSucceeded:
		return "succeeded"
	case KindFailedAt:
		return "failed"
	case KindSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("unknown_status_%d", int(k))
	}
}

// FinalStatus is the per-input outcome of a batch run.
type FinalStatus struct {
	Kind StatusKind
	// Step is the aborting step for KindFailedAt.
	Step string
}

func Succeeded() FinalStatus { return FinalStatus{Kind: KindSucceeded} }

func FailedAt(step string) FinalStatus { return FinalStatus{Kind: KindFailedAt, Step: step} }

func Skipped() FinalStatus { return FinalStatus{Kind: KindSkipped} }

func (s FinalStatus) IsSucceeded() bool { return s.Kind == KindSucceeded }

func (s FinalStatus) IsFailed() bool { return s.Kind == KindFailedAt }

func (s FinalStatus) IsSkipped() bool { return s.Kind == KindSkipped }

// String renders "Succeeded", "FailedAt(save_recipe)" or "Skipped".
func (s FinalStatus) String() string {
	switch s.Kind {
	case KindSucceeded:
		return "Succeeded"
	case KindFailedAt:
		return "FailedAt(" + s.Step + ")"
	case KindSkipped:
		return "Skipped"
	default:
		return s.Kind.String()
	}
}

func (s FinalStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FinalStatus) UnmarshalText(b []byte) error {
	text := string(b)
	switch {
	case text == "Succeeded":
		*s = Succeeded()
	case text == "Skipped":
		*s = Skipped()
	case strings.HasPrefix(text, "FailedAt(") && strings.HasSuffix(text, ")"):
		*s = FailedAt(strings.TrimSuffix(strings.TrimPrefix(text, "FailedAt("), ")"))
	default:
		return errors.Errorf("unknown final status %q", text)
	}
	return nil
}
