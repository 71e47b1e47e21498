package orchestrator

import (
	"sort"
	"sync"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/extract"
	"github.com/mensylisir/xmrecipe/pipeline"
	"github.com/mensylisir/xmrecipe/pipeline/ending"
	"github.com/mensylisir/xmrecipe/step"
	"github.com/mensylisir/xmrecipe/step/recipe"
)

// URLReport is the batch report entry for one input.
type URLReport struct {
	Index           int                `json:"index"`
	URL             string             `json:"url"`
	Site            string             `json:"site"`
	Status          ending.FinalStatus `json:"final_status"`
	Steps           []step.Result      `json:"steps"`
	TotalDurationMs int64              `json:"total_duration_ms"`
	AbortReason     string             `json:"abort_reason,omitempty"`
	// Recipe is the extracted recipe when the chain succeeded.
	Recipe *extract.RawRecipe `json:"recipe,omitempty"`
}

// NewURLReport folds a chain result into a report entry. A nil result is
// a skipped input.
func NewURLReport(in Input, res *pipeline.AllStepsResult) URLReport {
	report := URLReport{
		Index:  in.Index,
		URL:    in.URL,
		Site:   in.Site,
		Status: res.Status(),
		Steps:  []step.Result{},
	}
	if res == nil {
		return report
	}
	report.Steps = compactSteps(res.Results)
	report.TotalDurationMs = res.TotalDurationMs
	report.AbortReason = res.AbortReason
	if report.Status.IsSucceeded() {
		if extracted, ok := extractOutput(res); ok {
			raw := extracted.RawRecipe
			report.Recipe = &raw
		}
	}
	return report
}

// compactSteps drops page bodies from fetch_html outputs; the HTML stays in
// the cache and the step output files.
func compactSteps(results []step.Result) []step.Result {
	out := make([]step.Result, len(results))
	copy(out, results)
	for i := range out {
		if page, ok := out[i].Output.(recipe.FetchHTMLOutput); ok {
			page.HTML = ""
			out[i].Output = page
		}
	}
	return out
}

func extractOutput(res *pipeline.AllStepsResult) (*recipe.ExtractOutput, bool) {
	r, ok := res.Step(common.StepExtractRecipe)
	if !ok {
		return nil, false
	}
	out, ok := r.Output.(*recipe.ExtractOutput)
	return out, ok && out != nil
}

// SiteStats aggregates one domain.
type SiteStats struct {
	Domain    string `json:"domain"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// Stats aggregates a batch. It is derived entirely from the URL reports.
type Stats struct {
	Total           int                     `json:"total"`
	Succeeded       int                     `json:"succeeded"`
	Failed          int                     `json:"failed"`
	Skipped         int                     `json:"skipped"`
	FailedByStep    map[string]int          `json:"failed_by_step"`
	CacheHits       int                     `json:"cache_hits"`
	CacheMisses     int                     `json:"cache_misses"`
	Methods         map[string]int          `json:"extraction_methods"`
	BySite          map[string]*SiteStats   `json:"by_site"`
	Ingredients     extract.IngredientStats `json:"ingredient_stats"`
	TotalDurationMs int64                   `json:"total_step_duration_ms"`
}

func newStats() Stats {
	return Stats{
		FailedByStep: make(map[string]int),
		Methods:      make(map[string]int),
		BySite:       make(map[string]*SiteStats),
	}
}

// Add folds one report into s.
func (s *Stats) Add(r URLReport, res *pipeline.AllStepsResult) {
	s.Total++
	site := s.BySite[r.Site]
	if site == nil {
		site = &SiteStats{Domain: r.Site}
		s.BySite[r.Site] = site
	}
	site.Total++

	switch {
	case r.Status.IsSucceeded():
		s.Succeeded++
		site.Succeeded++
	case r.Status.IsFailed():
		s.Failed++
		site.Failed++
		s.FailedByStep[r.Status.Step]++
	default:
		s.Skipped++
		site.Skipped++
	}
	if res == nil {
		return
	}

	s.TotalDurationMs += res.TotalDurationMs
	if fetch, ok := res.Step(common.StepFetchHTML); ok && fetch.Success {
		if fetch.Cached {
			s.CacheHits++
		} else {
			s.CacheMisses++
		}
	}
	if extracted, ok := extractOutput(res); ok {
		s.Methods[string(extracted.MethodUsed)]++
		s.Ingredients.Add(extracted.Ingredients)
	}
}

// Sites returns per-site stats ordered by success rate, then domain.
func (s *Stats) Sites() []SiteStats {
	sites := make([]SiteStats, 0, len(s.BySite))
	for _, site := range s.BySite {
		sites = append(sites, *site)
	}
	sort.Slice(sites, func(i, j int) bool {
		ri := float64(sites[i].Succeeded) / float64(sites[i].Total)
		rj := float64(sites[j].Succeeded) / float64(sites[j].Total)
		if ri != rj {
			return ri > rj
		}
		return sites[i].Domain < sites[j].Domain
	})
	return sites
}

// collector is the only state shared between workers.
type collector struct {
	mu      sync.Mutex
	reports []URLReport
	stats   Stats
}

func newCollector(capacity int) *collector {
	return &collector{reports: make([]URLReport, 0, capacity), stats: newStats()}
}

func (c *collector) add(in Input, res *pipeline.AllStepsResult) URLReport {
	report := NewURLReport(in, res)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	c.stats.Add(report, res)
	return report
}

// snapshot returns reports sorted by input index and a copy of the stats.
func (c *collector) snapshot() ([]URLReport, Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reports := make([]URLReport, len(c.reports))
	copy(reports, c.reports)
	sort.Slice(reports, func(i, j int) bool { return reports[i].Index < reports[j].Index })

	stats := c.stats
	stats.FailedByStep = copyCounts(c.stats.FailedByStep)
	stats.Methods = copyCounts(c.stats.Methods)
	stats.BySite = make(map[string]*SiteStats, len(c.stats.BySite))
	for k, v := range c.stats.BySite {
		site := *v
		stats.BySite[k] = &site
	}
	return reports, stats
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
