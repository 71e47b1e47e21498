package recipe

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/step"
)

var ErrEnrichmentUnavailable = errors.New("enrichment not implemented")

// EnrichStep is the terminal enrichment hook. No enrichment backend is
// wired, so it always fails; its failure never fails the chain.
type EnrichStep struct {
	step.BaseStep
}

var _ step.Step = (*EnrichStep)(nil)

func NewEnrichStep() *EnrichStep {
	return &EnrichStep{
		BaseStep: step.NewBaseStep(common.StepEnrich, "Enrich recipe", true),
	}
}

func (s *EnrichStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	res := s.Fail(time.Now(), ErrEnrichmentUnavailable, "")
	res.Output = map[string]bool{"success": false}
	return res
}
