// Package errdefs holds the error taxonomy shared by the HTTP client, the
// steps and the chain runner.
package errdefs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrFetchFailed         = errors.New("fetch failed")
	ErrInvalidEncoding     = errors.New("invalid encoding")
	ErrOffline             = errors.New("offline mode: url not in cache")
	ErrStepNotFound        = errors.New("step not found")
	ErrPipelineCycle       = errors.New("pipeline cycle")
	ErrStepExecutionFailed = errors.New("step execution failed")
	ErrSinkFailed          = errors.New("sink failed")
)

// FetchError is returned by the HTTP client for any failed fetch. It matches
// ErrFetchFailed and unwraps to the underlying cause.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// NewFetchError wraps cause as a FetchError for url.
func NewFetchError(url string, cause error) error {
	return &FetchError{URL: url, Cause: cause}
}

// InvalidURL wraps ErrInvalidURL with the offending value.
func InvalidURL(raw string, reason string) error {
	return errors.Wrapf(ErrInvalidURL, "%q: %s", raw, reason)
}

// StepNotFound reports a missing step name together with the valid set.
func StepNotFound(name string, valid []string) error {
	if len(valid) == 0 {
		return errors.Wrapf(ErrStepNotFound, "unknown step %s", name)
	}
	return errors.Wrapf(ErrStepNotFound, "unknown step %s, valid steps are: %s", name, strings.Join(valid, ", "))
}

// Cycle reports that name was reached twice within one chain.
func Cycle(name string, path []string) error {
	return errors.Wrapf(ErrPipelineCycle, "step %s already ran in this chain (%s)", name, strings.Join(path, " -> "))
}

// StepFailed classifies a step's own domain failure.
func StepFailed(cause error) error {
	if cause == nil {
		return ErrStepExecutionFailed
	}
	return &stepError{cause: cause}
}

// SinkFailed classifies an output sink rejection.
func SinkFailed(cause error) error {
	return &sinkError{cause: cause}
}

// IsChainFatal reports whether err is a configuration defect that aborts a
// chain regardless of the failing step's continue-on-failure policy.
func IsChainFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrPipelineCycle)
}

type stepError struct{ cause error }

func (e *stepError) Error() string        { return e.cause.Error() }
func (e *stepError) Unwrap() error        { return e.cause }
func (e *stepError) Is(target error) bool { return target == ErrStepExecutionFailed }

type sinkError struct{ cause error }

func (e *sinkError) Error() string        { return "save failed: " + e.cause.Error() }
func (e *sinkError) Unwrap() error        { return e.cause }
func (e *sinkError) Is(target error) bool { return target == ErrSinkFailed }
