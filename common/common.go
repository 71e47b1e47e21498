package common

import (
	"io/fs"
	"path/filepath"
)

const (
	AppName    = "xmrecipe"
	AppDirName = ".ramekin"
	TmpDirBase = "/tmp/"
)

func GetTmpDir() string {
	return filepath.Join(TmpDirBase, AppName) + "/"
}

// Log field names. The formatter prints them in this order when present.
const (
	PipelineName = "Pipeline"
	StepName     = "Step"
	URLName      = "URL"
	RunID        = "RunID"
)

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
)

// Step name vocabulary. These strings are the chain's only link format.
const (
	StepFetchHTML     = "fetch_html"
	StepExtractRecipe = "extract_recipe"
	StepFetchImages   = "fetch_images"
	StepSaveRecipe    = "save_recipe"
	StepEnrich        = "enrich"
)

// StepNames lists the vocabulary in chain order.
var StepNames = []string{
	StepFetchHTML,
	StepExtractRecipe,
	StepFetchImages,
	StepSaveRecipe,
	StepEnrich,
}

const (
	EnvHTTPCache = "RAMEKIN_HTTP_CACHE"
	EnvOffline   = "RAMEKIN_OFFLINE"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; Ramekin/1.0; +https://ramekin.app)"
)

// OperationState is the lifecycle of a batch run as written to its manifest.
type OperationState int

const (
	StatePending OperationState = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s OperationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets manifests carry the state as its name.
func (s OperationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OperationState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatePending
	case "running":
		*s = StateRunning
	case "completed":
		*s = StateCompleted
	case "failed":
		*s = StateFailed
	default:
		*s = StatePending
	}
	return nil
}

const NanosPerMillisecond int64 = 1000 * 1000
