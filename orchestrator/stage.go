package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/logger"
)

// StageReport summarizes a staging pass.
type StageReport struct {
	Staged  int
	Skipped int
	// Cancelled counts inputs never attempted because ctx ended first.
	Cancelled int
	// Failed maps URL to the fetch error.
	Failed map[string]string
}

// Stage fetches every input into the staging directory under the current
// build id so later runs read pages from disk. Inputs already staged for this
// build are skipped unless ForceFetch is set. Per-URL fetch failures are
// reported, not returned. Every input lands in exactly one of the report's
// buckets.
func (o *Orchestrator) Stage(ctx context.Context, inputs []Input) (*StageReport, error) {
	st := o.rt.Staging()
	if st == nil {
		return nil, errors.New("no staging directory configured")
	}
	if err := file.CreateDir(st.Dir()); err != nil {
		return nil, errors.Wrapf(err, "failed to create staging directory %s", st.Dir())
	}

	id := o.rt.BuildID()
	client := o.rt.HTTPClient()
	report := &StageReport{Failed: make(map[string]string)}
	var mu sync.Mutex
	p := newProgress(o.out, len(inputs))

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	cancelled := func() {
		mu.Lock()
		report.Cancelled++
		mu.Unlock()
	}
	for _, in := range inputs {
		in := in // per-iteration copy for the goroutine (go < 1.22 loop semantics)
		if ctx.Err() != nil {
			cancelled()
			continue
		}
		if !o.cfg.ForceFetch {
			if _, ok := st.Lookup(in.URL, id); ok {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				continue
			}
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				cancelled()
				return nil
			}
			p.start(in.URL, false)
			page, err := client.FetchHTML(ctx, in.URL)
			if err == nil {
				_, err = st.Put(in.URL, []byte(page.HTML), id)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[in.URL] = err.Error()
				logger.Log.ErrorURL(in.URL, err, "staging failed")
				return nil
			}
			report.Staged++
			return nil
		})
	}
	_ = g.Wait()

	logger.Log.InfoPipeline(common.AppName, "staging finished", logrus.Fields{
		"staged":    report.Staged,
		"skipped":   report.Skipped,
		"failed":    len(report.Failed),
		"cancelled": report.Cancelled,
	})
	fmt.Fprintf(o.out, "\nStaged %d, already staged %d, failed %d", report.Staged, report.Skipped, len(report.Failed))
	if report.Cancelled > 0 {
		fmt.Fprintf(o.out, ", cancelled %d", report.Cancelled)
	}
	fmt.Fprintf(o.out, " (%s)\n", st.Dir())
	return report, ctx.Err()
}
