package step

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/logger"
)

// BaseStep provides common fields and helpers for concrete steps.
type BaseStep struct {
	meta Metadata
}

// NewBaseStep is a helper constructor for initializing common BaseStep fields.
// Concrete steps can call this in their own constructors.
func NewBaseStep(name, description string, continuesOnFailure bool) BaseStep {
	return BaseStep{meta: Metadata{
		Name:               name,
		Description:        description,
		ContinuesOnFailure: continuesOnFailure,
	}}
}

func (bs *BaseStep) Metadata() Metadata {
	return bs.meta
}

// Name returns the name of the step.
func (bs *BaseStep) Name() string {
	return bs.meta.Name
}

// Log returns the context's logger, or a global one scoped to this step.
func (bs *BaseStep) Log(sc *Context) *logrus.Entry {
	if sc != nil && sc.Logger != nil {
		return sc.Logger.WithField(common.StepName, bs.meta.Name)
	}
	url := ""
	if sc != nil {
		url = sc.URL
	}
	return logger.Log.ForStep(bs.meta.Name, url)
}

// Succeed builds a successful Result timed from start.
func (bs *BaseStep) Succeed(start time.Time, output any, next string) Result {
	return Result{
		StepName:   bs.meta.Name,
		Success:    true,
		Output:     output,
		DurationMs: elapsedMs(start),
		NextStep:   next,
	}
}

// Fail builds a failing Result timed from start. Errors that are not yet
// classified become errdefs.ErrStepExecutionFailed.
func (bs *BaseStep) Fail(start time.Time, err error, next string) Result {
	if err == nil {
		err = errors.New("step failed without an error")
	}
	if !classified(err) {
		err = errdefs.StepFailed(err)
	}
	res := Failed(bs.meta.Name, err, elapsedMs(start))
	res.NextStep = next
	return res
}

func classified(err error) bool {
	for _, target := range []error{
		errdefs.ErrInvalidURL,
		errdefs.ErrFetchFailed,
		errdefs.ErrStepNotFound,
		errdefs.ErrPipelineCycle,
		errdefs.ErrStepExecutionFailed,
		errdefs.ErrSinkFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
