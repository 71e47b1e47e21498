package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/file"
	"github.com/mensylisir/xmrecipe/timeutil"
)

const (
	manifestFile = "manifest.json"
	resultsFile  = "results.json"
)

// Manifest describes a run and is rewritten as the run progresses.
type Manifest struct {
	RunID       string                `json:"run_id"`
	BuildID     string                `json:"build_id"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Status      common.OperationState `json:"status"`
	Error       string                `json:"error,omitempty"`
	Config      ManifestConfig        `json:"config"`
}

// ManifestConfig records the options a run was started with.
type ManifestConfig struct {
	InputsFile  string `json:"inputs_file,omitempty"`
	Inputs      int    `json:"inputs"`
	Concurrency int    `json:"concurrency"`
	StartStep   string `json:"start_step"`
	Site        string `json:"site_filter,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Shuffle     bool   `json:"shuffle"`
	ForceFetch  bool   `json:"force_fetch"`
	Deadline    string `json:"deadline,omitempty"`
}

// Results is the content of results.json.
type Results struct {
	RunID  string      `json:"run_id"`
	Stats  Stats       `json:"stats"`
	URLs   []URLReport `json:"url_results"`
	WallMs int64       `json:"wall_ms"`
}

// resultsWriter rewrites results.json from the collector after every
// input, so an interrupted run keeps what it finished.
type resultsWriter struct {
	mu    sync.Mutex
	path  string
	runID string
	start time.Time
	now   func() time.Time
}

func newResultsWriter(runDir, runID string, start time.Time, now func() time.Time) *resultsWriter {
	return &resultsWriter{path: filepath.Join(runDir, resultsFile), runID: runID, start: start, now: now}
}

// write snapshots col and replaces results.json. Snapshot and write happen
// under one lock so an older snapshot never overwrites a newer one.
func (w *resultsWriter) write(col *collector) (*Results, time.Duration, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	reports, stats := col.snapshot()
	wall := w.now().Sub(w.start)
	results := &Results{RunID: w.runID, Stats: stats, URLs: reports, WallMs: timeutil.Millis(wall)}
	return results, wall, writeJSON(w.path, results)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}
	return file.AtomicWriteFile(path, data)
}

// ReadManifest loads the manifest of a run directory.
func ReadManifest(runDir string) (*Manifest, error) {
	m := &Manifest{}
	if err := readJSON(filepath.Join(runDir, manifestFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadResults loads results.json of a run directory.
func ReadResults(runDir string) (*Results, error) {
	r := &Results{}
	if err := readJSON(filepath.Join(runDir, resultsFile), r); err != nil {
		return nil, err
	}
	return r, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}
