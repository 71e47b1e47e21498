package recipe

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/extract"
	"github.com/mensylisir/xmrecipe/step"
)

// ExtractRecipeStep parses the fetched page into a RawRecipe.
type ExtractRecipeStep struct {
	step.BaseStep
	next string
}

var _ step.Step = (*ExtractRecipeStep)(nil)

// NewExtractRecipeStep chains to next on success; an empty next means
// fetch_images.
func NewExtractRecipeStep(next string) *ExtractRecipeStep {
	if next == "" {
		next = common.StepFetchImages
	}
	return &ExtractRecipeStep{
		BaseStep: step.NewBaseStep(common.StepExtractRecipe, "Extract recipe from HTML", false),
		next:     next,
	}
}

func (s *ExtractRecipeStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	start := time.Now()

	page, ok := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	if !ok || page.HTML == "" {
		return s.Fail(start, errdefs.StepFailed(errors.Errorf("%s output not found", common.StepFetchHTML)), "")
	}

	result, err := extract.Recipe(page.HTML, sc.URL)
	if err != nil {
		res := s.Fail(start, err, "")
		if result != nil {
			res.Output = result
		}
		return res
	}
	s.Log(sc).Debugf("extracted %q via %s (%d/%d ingredients parsed)",
		result.RawRecipe.Title, result.MethodUsed, result.Ingredients.Parsed, result.Ingredients.Total)
	return s.Succeed(start, result, s.next)
}
