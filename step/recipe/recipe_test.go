package recipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmrecipe/buildid"
	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/httpcache"
	"github.com/mensylisir/xmrecipe/photostore"
	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/sink"
	"github.com/mensylisir/xmrecipe/staging"
	"github.com/mensylisir/xmrecipe/step"
)

const recipeURL = "https://example.test/recipe"

const recipePage = `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":"Lemon Pasta",
 "image":"https://img.example.test/pasta.png",
 "recipeIngredient":["200 g spaghetti","1 lemon, zested","salt"],
 "recipeInstructions":[{"@type":"HowToStep","text":"Boil pasta."},{"@type":"HowToStep","text":"Toss with lemon."}]}
</script></head><body></body></html>`

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fixture struct {
	client  *httpcache.FakeClient
	sink    *sink.MemorySink
	photos  *photostore.BlobStore
	staging *staging.Store
	rt      runtime.Runtime
}

func newFixture(t *testing.T, withPhotos bool) *fixture {
	t.Helper()
	f := &fixture{
		client:  httpcache.NewFakeClient().WithHTML(recipeURL, recipePage),
		sink:    sink.NewMemorySink(),
		staging: staging.NewStore(t.TempDir()),
	}
	cfg := runtime.Config{
		HTTPClient: f.client,
		Sink:       f.sink,
		Staging:    f.staging,
		BuildID:    buildid.ID("build-a"),
		WorkDir:    t.TempDir(),
	}
	if withPhotos {
		photos, err := photostore.NewBlobStore(context.Background(), "mem://", "")
		require.NoError(t, err)
		t.Cleanup(func() { _ = photos.Close() })
		f.photos = photos
		cfg.Photos = photos
	}
	rt, err := runtime.NewRuntime(cfg)
	require.NoError(t, err)
	f.rt = rt
	return f
}

func (f *fixture) context(url string) *step.Context {
	return step.NewContext(url, f.rt)
}

func runStep(t *testing.T, s step.Step, sc *step.Context) step.Result {
	t.Helper()
	res := s.Execute(context.Background(), sc)
	if res.Success {
		require.NoError(t, sc.Outputs.Put(res.StepName, res.Output))
	}
	return res
}

func TestFetchHTML_Network(t *testing.T) {
	f := newFixture(t, false)
	sc := f.context(recipeURL)

	res := runStep(t, NewFetchHTMLStep(), sc)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, common.StepExtractRecipe, res.NextStep)
	assert.False(t, res.Cached)

	out, ok := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	require.True(t, ok)
	assert.Equal(t, recipePage, out.HTML)
	assert.Equal(t, SourceNetwork, out.Source)
	assert.Equal(t, 1, f.client.Calls(recipeURL))
}

func TestFetchHTML_InvalidURLIsChainFatal(t *testing.T) {
	f := newFixture(t, false)
	res := runStep(t, NewFetchHTMLStep(), f.context("ftp://example.test/x"))
	assert.False(t, res.Success)
	assert.True(t, errdefs.IsChainFatal(res.Cause))
	assert.Empty(t, res.NextStep)
}

func TestFetchHTML_FetchFailure(t *testing.T) {
	f := newFixture(t, false)
	res := runStep(t, NewFetchHTMLStep(), f.context("https://example.test/missing"))
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Cause, errdefs.ErrFetchFailed)
	assert.False(t, errdefs.IsChainFatal(res.Cause))
}

func TestFetchHTML_StagedPath(t *testing.T) {
	f := newFixture(t, false)
	path := filepath.Join(t.TempDir(), "saved.html")
	require.NoError(t, os.WriteFile(path, []byte(recipePage), common.FileMode0644))

	sc := f.context(recipeURL)
	sc.StagedPath = path
	res := runStep(t, NewFetchHTMLStep(), sc)
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Cached)
	assert.Equal(t, 0, f.client.Calls(recipeURL))

	out, _ := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	assert.Equal(t, SourceStaged, out.Source)

	sc = f.context(recipeURL)
	sc.StagedPath = filepath.Join(t.TempDir(), "gone.html")
	res = runStep(t, NewFetchHTMLStep(), sc)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Cause, errdefs.ErrFetchFailed)
}

func TestFetchHTML_StagingBuildID(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.staging.Put(recipeURL, []byte(recipePage), f.rt.BuildID())
	require.NoError(t, err)

	res := runStep(t, NewFetchHTMLStep(), f.context(recipeURL))
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Cached)
	assert.Equal(t, 0, f.client.Calls(recipeURL))

	forced := f.context(recipeURL)
	forced.ForceFetch = true
	res = runStep(t, NewFetchHTMLStep(), forced)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, f.client.Calls(recipeURL))

	_, err = f.staging.Put(recipeURL, []byte(recipePage), buildid.ID("build-b"))
	require.NoError(t, err)
	res = runStep(t, NewFetchHTMLStep(), f.context(recipeURL))
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, f.client.Calls(recipeURL))
}

func TestFetchHTML_StagedMetaCharsetPage(t *testing.T) {
	const latin1 = "<html><head><meta charset=\"iso-8859-1\"></head><body>Cr\xe8me br\xfbl\xe9e</body></html>"
	f := newFixture(t, false)

	src := filepath.Join(t.TempDir(), "saved.html")
	require.NoError(t, os.WriteFile(src, []byte(latin1), common.FileMode0644))
	_, err := f.staging.Import(src, recipeURL, f.rt.BuildID())
	require.NoError(t, err)

	sc := f.context(recipeURL)
	res := runStep(t, NewFetchHTMLStep(), sc)
	require.True(t, res.Success, res.Error)
	out, _ := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	assert.Contains(t, out.HTML, "Crème brûlée")

	// Staging the decoded page again must not decode it a second time.
	_, err = f.staging.Put(recipeURL, []byte(out.HTML), f.rt.BuildID())
	require.NoError(t, err)
	sc = f.context(recipeURL)
	res = runStep(t, NewFetchHTMLStep(), sc)
	require.True(t, res.Success, res.Error)
	again, _ := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	assert.Equal(t, out.HTML, again.HTML)

	sc = f.context(recipeURL)
	sc.StagedPath = src
	res = runStep(t, NewFetchHTMLStep(), sc)
	require.True(t, res.Success, res.Error)
	raw, _ := step.Output[FetchHTMLOutput](sc, common.StepFetchHTML)
	assert.Equal(t, out.HTML, raw.HTML)
	assert.Equal(t, 0, f.client.Calls(recipeURL))
}

func TestExtractRecipe(t *testing.T) {
	f := newFixture(t, false)
	sc := f.context(recipeURL)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)

	res := runStep(t, NewExtractRecipeStep(""), sc)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, common.StepFetchImages, res.NextStep)

	out, ok := step.Output[ExtractOutput](sc, common.StepExtractRecipe)
	require.True(t, ok)
	assert.Equal(t, "Lemon Pasta", out.RawRecipe.Title)
	assert.Equal(t, 3, out.Ingredients.Total)

	res = NewExtractRecipeStep(common.StepSaveRecipe).Execute(context.Background(), sc)
	assert.Equal(t, common.StepSaveRecipe, res.NextStep)
}

func TestExtractRecipe_Failures(t *testing.T) {
	f := newFixture(t, false)

	res := runStep(t, NewExtractRecipeStep(""), f.context(recipeURL))
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Cause, errdefs.ErrStepExecutionFailed)

	sc := f.context(recipeURL)
	require.NoError(t, sc.Outputs.Put(common.StepFetchHTML, FetchHTMLOutput{URL: recipeURL, HTML: "<html><p>no recipe</p></html>"}))
	res = runStep(t, NewExtractRecipeStep(""), sc)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Cause, errdefs.ErrStepExecutionFailed)
	assert.Empty(t, res.NextStep)
	require.IsType(t, &ExtractOutput{}, res.Output)
	assert.Len(t, res.Output.(*ExtractOutput).AllAttempts, 2)
}

func TestFetchImages(t *testing.T) {
	f := newFixture(t, true)
	f.client.WithBytes("https://img.example.test/pasta.png", pngBytes)
	sc := f.context(recipeURL)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)
	require.True(t, runStep(t, NewExtractRecipeStep(""), sc).Success)

	res := runStep(t, NewFetchImagesStep(0, 0), sc)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, common.StepSaveRecipe, res.NextStep)

	out, _ := step.Output[FetchImagesOutput](sc, common.StepFetchImages)
	require.Len(t, out.PhotoIDs, 1)
	assert.Equal(t, photostore.ID(pngBytes), out.PhotoIDs[0])
	_, contentType, err := f.photos.Get(context.Background(), out.PhotoIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
}

func TestFetchImages_FailedImageIsRecorded(t *testing.T) {
	f := newFixture(t, true)
	sc := f.context(recipeURL)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)
	require.True(t, runStep(t, NewExtractRecipeStep(""), sc).Success)

	res := runStep(t, NewFetchImagesStep(1, 4), sc)
	require.True(t, res.Success, res.Error)
	out := res.Output.(FetchImagesOutput)
	assert.Empty(t, out.PhotoIDs)
	require.Len(t, out.FailedURLs, 1)
	assert.Equal(t, "https://img.example.test/pasta.png", out.FailedURLs[0].URL)
}

func TestFetchImages_NoStorageStillChainsToSave(t *testing.T) {
	f := newFixture(t, false)
	sc := f.context(recipeURL)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)
	require.True(t, runStep(t, NewExtractRecipeStep(""), sc).Success)

	s := NewFetchImagesStep(0, 0)
	assert.True(t, s.Metadata().ContinuesOnFailure)
	res := runStep(t, s, sc)
	assert.False(t, res.Success)
	assert.Equal(t, common.StepSaveRecipe, res.NextStep)
}

func TestNoOpFetchImages(t *testing.T) {
	f := newFixture(t, false)
	res := runStep(t, NewNoOpFetchImagesStep(), f.context(recipeURL))
	require.True(t, res.Success)
	assert.Equal(t, common.StepSaveRecipe, res.NextStep)
	assert.Equal(t, FetchImagesOutput{PhotoIDs: []string{}, Skipped: true}, res.Output)
}

func TestSaveRecipe(t *testing.T) {
	f := newFixture(t, false)
	sc := f.context(recipeURL)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)
	require.True(t, runStep(t, NewExtractRecipeStep(""), sc).Success)
	require.NoError(t, sc.Outputs.Put(common.StepFetchImages, FetchImagesOutput{PhotoIDs: []string{"p1"}}))

	res := runStep(t, NewSaveRecipeStep(), sc)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, common.StepEnrich, res.NextStep)

	saved := f.sink.Recipes()
	require.Len(t, saved, 1)
	assert.Equal(t, "Lemon Pasta", saved[0].Title)
	assert.Equal(t, []string{"p1"}, saved[0].PhotoIDs)
	assert.Len(t, saved[0].Ingredients, 3)
	assert.Equal(t, "200", saved[0].Ingredients[0].Amount)

	out := res.Output.(SaveOutput)
	assert.Equal(t, sink.RecipeID(saved[0]), out.RecipeID)
}

func TestSaveRecipe_SinkFailure(t *testing.T) {
	f := newFixture(t, false)
	failing := sink.NewFailingSink(errors.New("read-only database"))
	rt, err := runtime.NewRuntime(runtime.Config{HTTPClient: f.client, Sink: failing})
	require.NoError(t, err)

	sc := step.NewContext(recipeURL, rt)
	require.True(t, runStep(t, NewFetchHTMLStep(), sc).Success)
	require.True(t, runStep(t, NewExtractRecipeStep(""), sc).Success)

	s := NewSaveRecipeStep()
	assert.False(t, s.Metadata().ContinuesOnFailure)
	res := runStep(t, s, sc)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Cause, errdefs.ErrSinkFailed)
	assert.Contains(t, res.Error, "read-only database")
	assert.Empty(t, res.NextStep)
}

func TestEnrich(t *testing.T) {
	s := NewEnrichStep()
	assert.True(t, s.Metadata().ContinuesOnFailure)
	res := s.Execute(context.Background(), step.NewContext(recipeURL, nil))
	assert.False(t, res.Success)
	assert.Equal(t, "enrichment not implemented", res.Error)
	assert.Empty(t, res.NextStep)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(Options{})
	assert.Equal(t, common.StepNames, reg.Names())
	images, err := reg.Lookup(common.StepFetchImages)
	require.NoError(t, err)
	assert.IsType(t, &NoOpFetchImagesStep{}, images)

	reg = NewRegistry(Options{FetchImages: true})
	images, err = reg.Lookup(common.StepFetchImages)
	require.NoError(t, err)
	assert.IsType(t, &FetchImagesStep{}, images)
}
