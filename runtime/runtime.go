package runtime

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmrecipe/buildid"
	"github.com/mensylisir/xmrecipe/config"
	"github.com/mensylisir/xmrecipe/httpcache"
	"github.com/mensylisir/xmrecipe/logger"
	"github.com/mensylisir/xmrecipe/photostore"
	"github.com/mensylisir/xmrecipe/sink"
	"github.com/mensylisir/xmrecipe/staging"
)

// baseRuntime implements the Runtime interface.
type baseRuntime struct {
	httpClient httpcache.Client
	sink       sink.Sink
	photos     photostore.Store
	staging    *staging.Store
	buildID    buildid.ID
	workDir    string
	verbose    bool
}

// Config for creating a new baseRuntime.
type Config struct {
	HTTPClient httpcache.Client
	Sink       sink.Sink
	Photos     photostore.Store
	Staging    *staging.Store
	BuildID    buildid.ID
	WorkDir    string
	Verbose    bool
}

// NewRuntime creates a new instance of Runtime. A missing BuildID is
// generated.
func NewRuntime(cfg Config) (Runtime, error) {
	if cfg.HTTPClient == nil {
		return nil, errors.New("runtime: http client cannot be nil")
	}
	if cfg.Sink == nil {
		return nil, errors.New("runtime: sink cannot be nil")
	}
	if cfg.BuildID == "" {
		cfg.BuildID = buildid.Random()
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = config.DefaultOutputDir()
	}

	return &baseRuntime{
		httpClient: cfg.HTTPClient,
		sink:       cfg.Sink,
		photos:     cfg.Photos,
		staging:    cfg.Staging,
		buildID:    cfg.BuildID,
		workDir:    cfg.WorkDir,
		verbose:    cfg.Verbose,
	}, nil
}

// FromConfig wires the collaborators described by cfg.
func FromConfig(ctx context.Context, cfg *config.PipelineConfig, id buildid.ID, verbose bool) (Runtime, error) {
	spec := cfg.Spec

	client := httpcache.NewCachingClient(httpcache.Options{
		CacheDir:    spec.Cache.Dir,
		MaxAge:      spec.Cache.MaxAge,
		Timeout:     spec.Fetch.Timeout,
		UserAgent:   spec.Fetch.UserAgent,
		RateLimit:   spec.Fetch.RateLimit,
		Offline:     spec.Fetch.Offline,
		CacheErrors: spec.Fetch.CacheErrors,
		ForceFetch:  spec.Run.ForceFetch,
		BuildID:     id.String(),
	})

	out, err := sink.New(spec.Sink)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sink")
	}

	rtCfg := Config{
		HTTPClient: client,
		Sink:       out,
		BuildID:    id,
		WorkDir:    spec.Run.OutputDir,
		Verbose:    verbose,
	}
	if spec.Staging.Dir != "" {
		rtCfg.Staging = staging.NewStore(spec.Staging.Dir)
	}
	if spec.Photos.Enabled {
		photos, err := photostore.NewBlobStore(ctx, spec.Photos.BucketURL, "")
		if err != nil {
			closeQuietly(out)
			return nil, err
		}
		rtCfg.Photos = photos
	}
	logger.Log.DebugPipeline(cfg.Metadata.Name, "runtime ready", logrus.Fields{
		"build_id": id.String(),
		"sink":     spec.Sink.Type,
		"photos":   spec.Photos.Enabled,
		"offline":  spec.Fetch.Offline,
	})
	return NewRuntime(rtCfg)
}

func (r *baseRuntime) HTTPClient() httpcache.Client {
	return r.httpClient
}

func (r *baseRuntime) Sink() sink.Sink {
	return r.sink
}

func (r *baseRuntime) Photos() photostore.Store {
	return r.photos
}

func (r *baseRuntime) Staging() *staging.Store {
	return r.staging
}

func (r *baseRuntime) BuildID() buildid.ID {
	return r.buildID
}

func (r *baseRuntime) WorkDir() string {
	return r.workDir
}

func (r *baseRuntime) Verbose() bool {
	return r.verbose
}

func (r *baseRuntime) Close() error {
	var msgs []string
	for _, c := range []any{r.httpClient, r.sink, r.photos} {
		closer, ok := c.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.Errorf("runtime close: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func closeQuietly(c any) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
