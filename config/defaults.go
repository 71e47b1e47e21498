package config

import (
	"path/filepath"
	"time"

	"github.com/mensylisir/xmrecipe/common"
	"github.com/mensylisir/xmrecipe/util"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 200 * time.Millisecond
	DefaultRedisPrefix = "xmrecipe:recipe:"
)

// DefaultCacheDir is where fetched pages are cached.
func DefaultCacheDir() string { return util.AppDir("pipeline-cache", "html") }

func DefaultStagingDir() string { return util.AppDir("cache-staging") }

func DefaultOutputDir() string { return util.AppDir("pipeline-runs") }

// ApplyEnv overrides file values with RAMEKIN_HTTP_CACHE and RAMEKIN_OFFLINE.
func ApplyEnv(cfg *PipelineConfig) {
	if dir := util.GetenvOrDefault(common.EnvHTTPCache, ""); dir != "" {
		cfg.Spec.Cache.Dir = dir
	}
	if util.GetenvBool(common.EnvOffline) {
		cfg.Spec.Fetch.Offline = true
	}
}

// SetDefaults fills every unset field. Paths starting with "~/" are expanded.
func SetDefaults(cfg *PipelineConfig) {
	spec := &cfg.Spec

	if spec.Fetch.Timeout <= 0 {
		spec.Fetch.Timeout = DefaultTimeout
	}
	if spec.Fetch.UserAgent == "" {
		spec.Fetch.UserAgent = common.DefaultUserAgent
	}
	if spec.Fetch.RateLimit == 0 {
		spec.Fetch.RateLimit = DefaultRateLimit
	}

	spec.Cache.Dir = defaultPath(spec.Cache.Dir, DefaultCacheDir)
	spec.Staging.Dir = defaultPath(spec.Staging.Dir, DefaultStagingDir)
	spec.Run.OutputDir = defaultPath(spec.Run.OutputDir, DefaultOutputDir)

	if spec.Run.Concurrency == 0 {
		spec.Run.Concurrency = DefaultConcurrency
	}

	if spec.Sink.Type == "" {
		spec.Sink.Type = SinkTypeFile
	}
	if spec.Sink.Type == SinkTypeFile && spec.Sink.Dir == "" {
		spec.Sink.Dir = filepath.Join(util.AppDir(), "recipes")
	}
	spec.Sink.Dir = util.ExpandHome(spec.Sink.Dir)
	if spec.Sink.Type == SinkTypeRedis {
		if spec.Sink.Redis.Addr == "" {
			spec.Sink.Redis.Addr = "localhost:6379"
		}
		if spec.Sink.Redis.Prefix == "" {
			spec.Sink.Redis.Prefix = DefaultRedisPrefix
		}
	}

	if spec.Photos.Enabled && spec.Photos.BucketURL == "" {
		spec.Photos.BucketURL = "file://" + filepath.ToSlash(util.AppDir("photos")) + "?create_dir=true"
	}
}

func defaultPath(value string, def func() string) string {
	if value == "" {
		return def()
	}
	return util.ExpandHome(value)
}
