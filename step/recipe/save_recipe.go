package recipe

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/extract"
	"github.com/mensylisir/xmrecipe/sink"
	"github.com/mensylisir/xmrecipe/step"
)

// SaveRecipeStep hands the extracted recipe, plus any stored photos, to the
// runtime's sink.
type SaveRecipeStep struct {
	step.BaseStep
}

var _ step.Step = (*SaveRecipeStep)(nil)

func NewSaveRecipeStep() *SaveRecipeStep {
	return &SaveRecipeStep{
		BaseStep: step.NewBaseStep(common.StepSaveRecipe, "Save recipe", false),
	}
}

func (s *SaveRecipeStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	start := time.Now()

	extracted, ok := step.Output[ExtractOutput](sc, common.StepExtractRecipe)
	if !ok {
		return s.Fail(start, errdefs.StepFailed(errors.Errorf("%s output not found", common.StepExtractRecipe)), "")
	}
	if sc.Runtime == nil || sc.Runtime.Sink() == nil {
		return s.Fail(start, errdefs.SinkFailed(errors.New("no sink configured")), "")
	}

	content := Content(extracted.RawRecipe)
	if images, ok := step.Output[FetchImagesOutput](sc, common.StepFetchImages); ok {
		content.PhotoIDs = images.PhotoIDs
	}

	saved, err := sc.Runtime.Sink().Save(ctx, content)
	if err != nil {
		return s.Fail(start, errdefs.SinkFailed(err), "")
	}
	s.Log(sc).Infof("saved recipe %s (%q)", saved.ID, content.Title)
	return s.Succeed(start, SaveOutput{
		RecipeID: saved.ID,
		Title:    content.Title,
		PhotoIDs: saved.PhotoIDs,
	}, common.StepEnrich)
}

// Content converts an extracted recipe into what sinks store.
func Content(raw extract.RawRecipe) sink.RecipeContent {
	ingredients, _ := extract.ParseIngredients(raw.Ingredients)
	return sink.RecipeContent{
		Title:        raw.Title,
		Description:  raw.Description,
		Ingredients:  ingredients,
		Instructions: raw.Instructions,
		SourceURL:    raw.SourceURL,
		SourceName:   raw.SourceName,
		ImageURLs:    raw.ImageURLs,
	}
}
