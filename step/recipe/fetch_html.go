package recipe

import (
	"context"
	"os"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/errdefs"
	"github.com/mensylisir/xmrecipe/httpcache"
	"github.com/mensylisir/xmrecipe/step"
)

// FetchHTMLStep loads the page for the context URL. It prefers, in order,
// an explicit staged file, a staged entry written by the current build,
// and the caching HTTP client.
type FetchHTMLStep struct {
	step.BaseStep
}

var _ step.Step = (*FetchHTMLStep)(nil)

func NewFetchHTMLStep() *FetchHTMLStep {
	return &FetchHTMLStep{
		BaseStep: step.NewBaseStep(common.StepFetchHTML, "Fetch the recipe page", false),
	}
}

func (s *FetchHTMLStep) Execute(ctx context.Context, sc *step.Context) step.Result {
	start := time.Now()
	log := s.Log(sc)

	if _, err := httpcache.ValidateURL(sc.URL); err != nil {
		return s.Fail(start, err, "")
	}

	if sc.StagedPath != "" {
		out, err := readStaged(sc.URL, sc.StagedPath, true)
		if err != nil {
			return s.Fail(start, err, "")
		}
		log.Debugf("using staged file %s", sc.StagedPath)
		return s.cached(start, out)
	}

	if rt := sc.Runtime; rt != nil && !sc.ForceFetch && rt.Staging() != nil {
		if entry, ok := rt.Staging().Lookup(sc.URL, rt.BuildID()); ok {
			out, err := readStaged(sc.URL, entry.Path, false)
			if err == nil {
				log.Debugf("using staged entry from build %s", entry.BuildID)
				return s.cached(start, out)
			}
			log.Warnf("ignoring unreadable staged entry: %v", err)
		}
	}

	if sc.Runtime == nil || sc.Runtime.HTTPClient() == nil {
		return s.Fail(start, errdefs.StepFailed(errors.New("no http client configured")), "")
	}
	page, err := sc.Runtime.HTTPClient().FetchHTML(ctx, sc.URL)
	if err != nil {
		return s.Fail(start, err, "")
	}
	source := SourceNetwork
	if page.FromCache {
		source = SourceCache
	}
	res := s.Succeed(start, FetchHTMLOutput{
		URL:         sc.URL,
		HTML:        page.HTML,
		ContentType: page.ContentType,
		Source:      source,
		Size:        len(page.HTML),
	}, common.StepExtractRecipe)
	res.Cached = page.FromCache
	return res
}

func (s *FetchHTMLStep) cached(start time.Time, out FetchHTMLOutput) step.Result {
	res := s.Succeed(start, out, common.StepExtractRecipe)
	res.Cached = true
	return res
}

// readStaged loads a staged page. Staging store entries are UTF-8 already;
// a raw file given on the command line still goes through charset detection.
func readStaged(url, path string, raw bool) (FetchHTMLOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FetchHTMLOutput{}, errdefs.NewFetchError(url, errors.Wrap(err, "failed to read staged file"))
	}
	html := string(data)
	if raw {
		if html, err = httpcache.DecodeHTML(data, ""); err != nil {
			return FetchHTMLOutput{}, errdefs.NewFetchError(url, err)
		}
	} else if !utf8.Valid(data) {
		return FetchHTMLOutput{}, errdefs.NewFetchError(url, errors.Wrap(errdefs.ErrInvalidEncoding, "staged file is not valid utf-8"))
	}
	return FetchHTMLOutput{
		URL:    url,
		HTML:   html,
		Source: SourceStaged,
		Size:   len(html),
	}, nil
}
