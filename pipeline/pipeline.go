// Package pipeline runs a chain of steps for one input.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/hook"
	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/pipeline/ending"
	"github.com/mensylisir/xmrecipe/step"
)

// AllStepsResult is every step result of one chain, in execution order.
type AllStepsResult struct {
	Input     string        `json:"input"`
	StartStep string        `json:"start_step"`
	Results   []step.Result `json:"results"`
	// TotalDurationMs is the sum of step durations.
	TotalDurationMs int64  `json:"total_duration_ms"`
	Aborted         bool   `json:"aborted"`
	AbortReason     string `json:"abort_reason,omitempty"`
}

// Status classifies the chain. A nil result means the input never ran.
func (r *AllStepsResult) Status() ending.FinalStatus {
	if r == nil {
		return ending.Skipped()
	}
	if r.Aborted {
		last, _ := r.Last()
		return ending.FailedAt(last.StepName)
	}
	return ending.Succeeded()
}

// Last returns the final step result.
func (r *AllStepsResult) Last() (step.Result, bool) {
	if r == nil || len(r.Results) == 0 {
		return step.Result{}, false
	}
	return r.Results[len(r.Results)-1], true
}

// Step returns the result recorded for name.
func (r *AllStepsResult) Step(name string) (step.Result, bool) {
	if r == nil {
		return step.Result{}, false
	}
	for _, res := range r.Results {
		if res.StepName == name {
			return res, true
		}
	}
	return step.Result{}, false
}

// FailedSteps lists the names of every failing step, including tolerated
// failures.
func (r *AllStepsResult) FailedSteps() []string {
	var names []string
	if r == nil {
		return names
	}
	for _, res := range r.Results {
		if !res.Success {
			names = append(names, res.StepName)
		}
	}
	return names
}

// RunPipeline executes the chain starting at start. Steps run strictly in
// sequence. The chain aborts when a step fails without ContinuesOnFailure,
// when a failure is chain-fatal, when a successor is not registered, or
// when a step would run twice. A panicking step becomes a failing result.
func RunPipeline(ctx context.Context, reg *step.Registry, start string, sc *step.Context) *AllStepsResult {
	result := &AllStepsResult{Input: sc.URL, StartStep: start}
	log := sc.Logger
	if log == nil {
		log = logger.Log.WithField(common.URLName, sc.URL)
	}
	if sc.Outputs == nil {
		sc.Outputs = step.NewMemoryOutputStore()
	}

	visited := make(map[string]bool)
	var path []string
	name := start
	for {
		s, err := reg.Lookup(name)
		if err != nil {
			result.abort(step.Failed(name, err, 0))
			break
		}
		if visited[name] {
			result.abort(step.Failed(name, errdefs.Cycle(name, append(path, name)), 0))
			break
		}
		visited[name] = true
		path = append(path, name)

		meta := s.Metadata()
		log.Infof("===> Executing Step: %s (%s)", meta.Name, meta.Description)
		res := execute(ctx, s, sc)
		result.Results = append(result.Results, res)
		result.TotalDurationMs += res.DurationMs

		if !res.Success {
			if errdefs.IsChainFatal(res.Cause) || !meta.ContinuesOnFailure {
				log.WithFields(logrus.Fields{common.StepName: name}).Warnf("chain aborted: %s", res.Error)
				result.Aborted = true
				result.AbortReason = res.Error
				break
			}
			log.WithFields(logrus.Fields{common.StepName: name}).Debugf("tolerated failure: %s", res.Error)
		} else if err := sc.Outputs.Put(name, res.Output); err != nil {
			log.Warnf("failed to store output of %s: %v", name, err)
		}

		if !res.HasNext() {
			break
		}
		name = res.NextStep
	}
	return result
}

func (r *AllStepsResult) abort(res step.Result) {
	r.Results = append(r.Results, res)
	r.Aborted = true
	r.AbortReason = res.Error
}

func execute(ctx context.Context, s step.Step, sc *step.Context) step.Result {
	name := s.Metadata().Name
	start := time.Now()
	var res step.Result
	err := hook.Call(hook.Func{
		TryFunc: func() error {
			res = s.Execute(ctx, sc)
			return nil
		},
	})
	if err != nil {
		logger.Log.ErrorfStep(name, err, "step crashed for %s", sc.URL)
		return step.Failed(name, errdefs.StepFailed(err), time.Since(start).Milliseconds())
	}
	if res.StepName == "" {
		res.StepName = name
	}
	if !res.Success && res.Error == "" {
		res.Error = "step failed"
	}
	if !res.Success && res.Cause == nil {
		res.Cause = errdefs.StepFailed(nil)
	}
	return res
}
