package runtime

import (
	"github.com/mensylisir/xmrecipe/config"
)

// CliArgs holds command-line flags that override the pipeline config.
// Zero values leave the config untouched.
type CliArgs struct {
	Concurrency int
	Limit       int
	Site        string
	OutputDir   string
	ForceFetch  bool
	Offline     bool
	NoShuffle   bool

	Debug bool // set by --verbose
}

// NewCliArgs creates a new instance of CliArgs with default values.
func NewCliArgs() *CliArgs {
	return &CliArgs{}
}

// Apply copies every set flag onto spec.
func (a *CliArgs) Apply(spec *config.PipelineSpec) {
	if a == nil {
		return
	}
	if a.Concurrency > 0 {
		spec.Run.Concurrency = a.Concurrency
	}
	if a.Limit > 0 {
		spec.Run.Limit = a.Limit
	}
	if a.Site != "" {
		spec.Run.Site = a.Site
	}
	if a.OutputDir != "" {
		spec.Run.OutputDir = a.OutputDir
	}
	if a.ForceFetch {
		spec.Run.ForceFetch = true
	}
	if a.Offline {
		spec.Fetch.Offline = true
	}
	if a.NoShuffle {
		spec.Run.Shuffle = false
	}
}
