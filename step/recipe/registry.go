package recipe

import (
	"github.com/mensylisir/xmrecipe/step"
)

// Options selects step variants for NewRegistry.
type Options struct {
	// FetchImages registers the downloading fetch_images step instead of
	// the no-op variant.
	FetchImages   bool
	MaxImages     int
	MaxImageBytes int
	// ExtractNext overrides the successor of extract_recipe.
	ExtractNext string
}

// NewRegistry registers the full recipe chain.
func NewRegistry(opts Options) *step.Registry {
	var images step.Step = NewNoOpFetchImagesStep()
	if opts.FetchImages {
		images = NewFetchImagesStep(opts.MaxImages, opts.MaxImageBytes)
	}
	return step.NewRegistry(
		NewFetchHTMLStep(),
		NewExtractRecipeStep(opts.ExtractNext),
		images,
		NewSaveRecipeStep(),
		NewEnrichStep(),
	)
}
