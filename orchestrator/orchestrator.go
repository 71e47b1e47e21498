// Package orchestrator fans the recipe chain out over a batch of inputs
// with bounded parallelism and collects per-input reports and statistics.
package orchestrator

import (
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/config"
	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/pipeline"
	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/step"
	"github.com/mensylisir/xmrecipe/timeutil"
)

// Config controls a batch run.
type Config struct {
	Concurrency int
	OutputDir   string
	// Deadline stops new inputs from starting once it has elapsed. In-flight
	// chains finish. Zero disables it.
	Deadline time.Duration
	Shuffle  bool
	// Seed makes shuffling reproducible; zero seeds from the clock.
	Seed       int64
	StartStep  string
	ForceFetch bool
	// SaveStepOutputs mirrors step outputs under <run>/urls/.
	SaveStepOutputs bool

	// Recorded in the manifest only.
	InputsFile string
	Site       string
	Limit      int

	// RunID overrides the timestamp-based id.
	RunID string
	// Out receives progress lines and the summary; nil means os.Stdout.
	Out io.Writer
}

// ConfigFromSpec maps the run section of a pipeline config.
func ConfigFromSpec(spec config.RunSpec) Config {
	return Config{
		Concurrency:     spec.Concurrency,
		OutputDir:       spec.OutputDir,
		Deadline:        spec.Deadline,
		Shuffle:         spec.Shuffle,
		Seed:            spec.Seed,
		ForceFetch:      spec.ForceFetch,
		SaveStepOutputs: spec.SaveStepOutputs,
		Site:            spec.Site,
		Limit:           spec.Limit,
	}
}

// Report is the outcome of a batch run.
type Report struct {
	RunID  string
	RunDir string
	Stats  Stats
	// URLs holds one entry per input, ordered by input index.
	URLs []URLReport
	Wall time.Duration
}

// Orchestrator runs batches against one runtime and step registry.
type Orchestrator struct {
	cfg      Config
	rt       runtime.Runtime
	registry *step.Registry
	out      io.Writer
	now      func() time.Time
}

func New(cfg Config, rt runtime.Runtime, registry *step.Registry) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultConcurrency
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputDir()
	}
	if cfg.StartStep == "" {
		cfg.StartStep = common.StepFetchHTML
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{cfg: cfg, rt: rt, registry: registry, out: out, now: time.Now}
}

// Run processes every input and always reports each one. Only failing to
// create or write the run directory is an error.
func (o *Orchestrator) Run(ctx context.Context, inputs []Input) (*Report, error) {
	if _, err := o.registry.Lookup(o.cfg.StartStep); err != nil {
		return nil, err
	}

	startedAt := o.now()
	runID := o.cfg.RunID
	if runID == "" {
		runID = timeutil.RunID(startedAt)
	}
	runDir := filepath.Join(o.cfg.OutputDir, runID)
	if err := file.CreateDir(runDir); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory %s", runDir)
	}
	log := logger.Log.ForRun(runID)

	order := make([]Input, len(inputs))
	copy(order, inputs)
	if o.cfg.Shuffle {
		seed := o.cfg.Seed
		if seed == 0 {
			seed = startedAt.UnixNano()
		}
		rand.New(rand.NewSource(seed)).Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	manifest := &Manifest{
		RunID:     runID,
		BuildID:   o.rt.BuildID().String(),
		StartedAt: startedAt.UTC(),
		Status:    common.StateRunning,
		Config: ManifestConfig{
			InputsFile:  o.cfg.InputsFile,
			Inputs:      len(order),
			Concurrency: o.cfg.Concurrency,
			StartStep:   o.cfg.StartStep,
			Site:        o.cfg.Site,
			Limit:       o.cfg.Limit,
			Shuffle:     o.cfg.Shuffle,
			ForceFetch:  o.cfg.ForceFetch,
		},
	}
	if o.cfg.Deadline > 0 {
		manifest.Config.Deadline = o.cfg.Deadline.String()
	}
	manifestPath := filepath.Join(runDir, manifestFile)
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, err
	}

	o.printHeader(runID, len(order))
	log.WithFields(logrus.Fields{"inputs": len(order), "concurrency": o.cfg.Concurrency}).Info("batch run started")

	var deadline time.Time
	if o.cfg.Deadline > 0 {
		deadline = startedAt.Add(o.cfg.Deadline)
	}

	col := newCollector(len(order))
	results := newResultsWriter(runDir, runID, startedAt, o.now)
	checkpoint := func() {
		if _, _, err := results.write(col); err != nil {
			log.Warnf("failed to update results: %v", err)
		}
	}
	checkpoint()

	progress := newProgress(o.out, len(order))
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, in := range order {
		in := in // per-iteration copy for the goroutine (go < 1.22 loop semantics)
		if o.refuse(ctx, deadline) {
			col.add(in, nil)
			continue
		}
		g.Go(func() error {
			if o.refuse(ctx, deadline) {
				col.add(in, nil)
				return nil
			}
			res := o.runOne(ctx, runDir, log, progress, in)
			report := col.add(in, res)
			checkpoint()
			log.WithFields(logrus.Fields{common.URLName: in.URL}).Debugf("finished: %s", report.Status)
			return nil
		})
	}
	_ = g.Wait()

	final, wall, err := results.write(col)
	reports, stats := final.URLs, final.Stats
	if err != nil {
		logger.Log.ErrorPipeline(common.AppName, err, "failed to write results", logrus.Fields{common.RunID: runID})
		manifest.Status = common.StateFailed
		manifest.Error = err.Error()
		_ = writeJSON(manifestPath, manifest)
		return nil, err
	}

	completedAt := o.now().UTC()
	manifest.CompletedAt = &completedAt
	manifest.Status = common.StateCompleted
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, err
	}

	report := &Report{RunID: runID, RunDir: runDir, Stats: stats, URLs: reports, Wall: wall}
	o.printSummary(report)
	log.WithFields(logrus.Fields{
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
	}).Info("batch run completed")
	return report, nil
}

func (o *Orchestrator) refuse(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && !o.now().Before(deadline)
}

// cacheProbe is implemented by clients that can report cache presence.
type cacheProbe interface {
	IsCached(url string) bool
}

func (o *Orchestrator) runOne(ctx context.Context, runDir string, log *logrus.Entry, p *progress, in Input) *pipeline.AllStepsResult {
	sc := &step.Context{
		URL:        in.URL,
		StagedPath: in.StagedPath,
		ForceFetch: o.cfg.ForceFetch,
		Runtime:    o.rt,
		Logger:     log.WithField(common.URLName, in.URL),
	}
	if o.cfg.SaveStepOutputs {
		sc.Outputs = step.NewFileOutputStore(runDir, in.URL)
	} else {
		sc.Outputs = step.NewMemoryOutputStore()
	}
	p.start(in.URL, o.cached(in))
	return pipeline.RunPipeline(ctx, o.registry, o.cfg.StartStep, sc)
}

func (o *Orchestrator) cached(in Input) bool {
	if in.StagedPath != "" {
		return true
	}
	if o.cfg.ForceFetch {
		return false
	}
	if st := o.rt.Staging(); st != nil {
		if _, ok := st.Lookup(in.URL, o.rt.BuildID()); ok {
			return true
		}
	}
	if probe, ok := o.rt.HTTPClient().(cacheProbe); ok {
		return probe.IsCached(in.URL)
	}
	return false
}
