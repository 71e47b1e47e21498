package recipe

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/step"
)

const (
	DefaultMaxImages     = 1
	DefaultMaxImageBytes = 10 << 20
)

// FetchImagesStep downloads the recipe's images into the photo store. A
// failed image is recorded in the output and does not fail the step.
type FetchImagesStep struct {
	step.BaseStep
	maxImages int
	maxBytes  int
}

var _ step.Step = (*FetchImagesStep)(nil)

// NewFetchImagesStep stores at most maxImages images of at most maxBytes
// each. Non-positive values take the defaults.
func NewFetchImagesStep(maxImages, maxBytes int) *FetchImagesStep {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &FetchImagesStep{
		BaseStep:  step.NewBaseStep(common.StepFetchImages, "Fetch and store recipe images", true),
		maxImages: maxImages,
		maxBytes:  maxBytes,
	}
}

func (s *FetchImagesStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	start := time.Now()
	log := s.Log(sc)

	extracted, ok := step.Output[ExtractOutput](sc, common.StepExtractRecipe)
	if !ok {
		return s.Fail(start, errdefs.StepFailed(errors.Errorf("%s output not found", common.StepExtractRecipe)), common.StepSaveRecipe)
	}
	if sc.Runtime == nil || sc.Runtime.Photos() == nil {
		return s.Fail(start, errdefs.StepFailed(errors.New("photo storage not configured")), common.StepSaveRecipe)
	}

	out := FetchImagesOutput{PhotoIDs: []string{}}
	urls := extracted.RawRecipe.ImageURLs
	if len(urls) > s.maxImages {
		urls = urls[:s.maxImages]
	}
	for _, url := range urls {
		id, err := s.store(ctx, sc, url)
		if err != nil {
			log.Warnf("failed to fetch image %s: %v", url, err)
			out.FailedURLs = append(out.FailedURLs, FailedImage{URL: url, Error: err.Error()})
			continue
		}
		out.PhotoIDs = append(out.PhotoIDs, id)
	}
	return s.Succeed(start, out, common.StepSaveRecipe)
}

func (s *FetchImagesStep) store(ctx context.Context, sc *step.Context, url string) (string, error) {
	data, contentType, err := sc.Runtime.HTTPClient().FetchBytes(ctx, url)
	if err != nil {
		return "", err
	}
	if len(data) > s.maxBytes {
		return "", errors.Errorf("image too large: %d bytes (max %d)", len(data), s.maxBytes)
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.Errorf("not an image: %s", contentType)
	}
	return sc.Runtime.Photos().Put(ctx, data, contentType)
}

// NoOpFetchImagesStep stands in for fetch_images when no photo storage
// exists.
type NoOpFetchImagesStep struct {
	step.BaseStep
}

var _ step.Step = (*NoOpFetchImagesStep)(nil)

func NewNoOpFetchImagesStep() *NoOpFetchImagesStep {
	return &NoOpFetchImagesStep{
		BaseStep: step.NewBaseStep(common.StepFetchImages, "Skip image fetching", true),
	}
}

func (s *NoOpFetchImagesStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	return s.Succeed(time.Now(), FetchImagesOutput{PhotoIDs: []string{}, Skipped: true}, common.StepSaveRecipe)
}
