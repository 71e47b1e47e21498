package orchestrator

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/mensylisir/xmrecipe/timeutil"
	"github.com/mensylisir/xmrecipe/util"
)

const maxSummarySites = 10

// progress prints one line per started input. Lines from different workers
// never interleave.
type progress struct {
	mu    sync.Mutex
	out   io.Writer
	total int
	n     int
}

func newProgress(out io.Writer, total int) *progress {
	return &progress{out: out, total: total}
}

func (p *progress) start(url string, cached bool) {
	state := "fetching..."
	if cached {
		state = "cached"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintf(p.out, "[%d/%d] %s (%s)\n", p.n, p.total, util.TruncateString(url, 100, "..."), state)
}

func (o *Orchestrator) printHeader(runID string, inputs int) {
	fmt.Fprintf(o.out, "Pipeline run %s\n", runID)
	fmt.Fprintf(o.out, "Processing %d URLs with concurrency %d\n\n", inputs, o.cfg.Concurrency)
}

func (o *Orchestrator) printSummary(r *Report) {
	WriteSummary(o.out, r)
}

// WriteSummary renders the end-of-run summary for r.
func WriteSummary(w io.Writer, r *Report) {
	s := r.Stats
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nSUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total:      %d\n", s.Total)
	fmt.Fprintf(w, "Succeeded:  %d (%.1f%%)\n", s.Succeeded, util.Percent(s.Succeeded, s.Total))
	fmt.Fprintf(w, "Failed:     %d (%.1f%%)\n", s.Failed, util.Percent(s.Failed, s.Total))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:    %d (%.1f%%)\n", s.Skipped, util.Percent(s.Skipped, s.Total))
	}
	fetched := s.CacheHits + s.CacheMisses
	fmt.Fprintf(w, "Cache hits: %d/%d (%.1f%%)\n", s.CacheHits, fetched, util.Percent(s.CacheHits, fetched))
	fmt.Fprintf(w, "Wall time:  %s (avg step time per URL %s)\n",
		timeutil.ShortDur(r.Wall.Round(1e6)), timeutil.FormatMillis(timeutil.Average(s.TotalDurationMs, s.Total-s.Skipped)))

	if len(s.FailedByStep) > 0 {
		fmt.Fprintf(w, "\nFailures by step:\n")
		for _, name := range sortedKeysByCount(s.FailedByStep) {
			fmt.Fprintf(w, "  %-16s %d\n", name, s.FailedByStep[name])
		}
	}

	if len(s.Methods) > 0 {
		fmt.Fprintf(w, "\nExtraction methods:\n")
		for _, name := range sortedKeysByCount(s.Methods) {
			fmt.Fprintf(w, "  %-16s %d\n", name, s.Methods[name])
		}
	}

	if s.Ingredients.Total > 0 {
		fmt.Fprintf(w, "\nIngredients: %d lines, %d parsed (%.1f%%), %d unparsed\n",
			s.Ingredients.Total, s.Ingredients.Parsed,
			util.Percent(s.Ingredients.Parsed, s.Ingredients.Total), s.Ingredients.Unparsed)
	}

	sites := s.Sites()
	if len(sites) > 0 {
		fmt.Fprintf(w, "\nBy site:\n")
		for i, site := range sites {
			if i == maxSummarySites {
				fmt.Fprintf(w, "  ... and %d more sites\n", len(sites)-maxSummarySites)
				break
			}
			fmt.Fprintf(w, "  %-40s %d/%d (%.1f%%)\n", util.TruncateString(site.Domain, 40, "..."),
				site.Succeeded, site.Total, util.Percent(site.Succeeded, site.Total))
		}
	}

	if r.RunDir != "" {
		fmt.Fprintf(w, "\nArtifacts saved to: %s\n", r.RunDir)
	}
}

func sortedKeysByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
