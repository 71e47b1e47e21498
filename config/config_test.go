package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmrecipe/common"
)

const samplePipelineConfigYAML = `
apiVersion: xmrecipe.mensylisir.io/v1alpha1
kind: PipelineConfig
metadata:
  name: nightly
spec:
  fetch:
    timeout: 10s
    userAgent: "test-agent/1.0"
    rateLimit: 1s
    cacheErrors: true
  cache:
    dir: /tmp/xmrecipe-test/cache
    maxAge: 168h
  staging:
    dir: /tmp/xmrecipe-test/staging
  run:
    concurrency: 8
    outputDir: /tmp/xmrecipe-test/runs
    deadline: 15m
    shuffle: true
    seed: 42
    limit: 100
    site: seriouseats
    saveStepOutputs: true
  sink:
    type: redis
    redis:
      addr: "127.0.0.1:6380"
      db: 2
  photos:
    enabled: true
    bucketURL: "mem://"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), common.FileMode0644))
	return path
}

func TestLoader_Load(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, samplePipelineConfigYAML)).Load()
	require.NoError(t, err)

	assert.Equal(t, Kind, cfg.Kind)
	assert.Equal(t, "nightly", cfg.Metadata.Name)

	spec := cfg.Spec
	assert.Equal(t, 10*time.Second, spec.Fetch.Timeout)
	assert.Equal(t, "test-agent/1.0", spec.Fetch.UserAgent)
	assert.Equal(t, time.Second, spec.Fetch.RateLimit)
	assert.True(t, spec.Fetch.CacheErrors)
	assert.Equal(t, 168*time.Hour, spec.Cache.MaxAge)
	assert.Equal(t, 8, spec.Run.Concurrency)
	assert.Equal(t, 15*time.Minute, spec.Run.Deadline)
	assert.True(t, spec.Run.Shuffle)
	assert.Equal(t, int64(42), spec.Run.Seed)
	assert.Equal(t, 100, spec.Run.Limit)
	assert.Equal(t, "seriouseats", spec.Run.Site)
	assert.True(t, spec.Run.SaveStepOutputs)
	assert.Equal(t, SinkTypeRedis, spec.Sink.Type)
	assert.Equal(t, "127.0.0.1:6380", spec.Sink.Redis.Addr)
	assert.Equal(t, 2, spec.Sink.Redis.DB)
	assert.True(t, spec.Photos.Enabled)
	assert.Equal(t, "mem://", spec.Photos.BucketURL)
}

func TestLoader_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty file", "", "is empty"},
		{"bad yaml", "apiVersion: [", "failed to unmarshal"},
		{"missing apiVersion", "kind: PipelineConfig\nmetadata:\n  name: x\n", "apiVersion is a required field"},
		{"wrong kind", "apiVersion: v1\nkind: ClusterConfig\nmetadata:\n  name: x\n", "kind must be 'PipelineConfig'"},
		{"missing name", "apiVersion: v1\nkind: PipelineConfig\n", "metadata.name is a required field"},
		{"negative concurrency", "apiVersion: v1\nkind: PipelineConfig\nmetadata:\n  name: x\nspec:\n  run:\n    concurrency: -1\n", "must not be negative"},
		{"unknown sink", "apiVersion: v1\nkind: PipelineConfig\nmetadata:\n  name: x\nspec:\n  sink:\n    type: postgres\n", "unknown sink type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.content)).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("empty path", func(t *testing.T) {
		_, err := NewLoader("").Load()
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
		assert.Error(t, err)
	})
}

func TestSetDefaults(t *testing.T) {
	cfg := &PipelineConfig{}
	SetDefaults(cfg)
	spec := cfg.Spec

	assert.Equal(t, DefaultTimeout, spec.Fetch.Timeout)
	assert.Equal(t, common.DefaultUserAgent, spec.Fetch.UserAgent)
	assert.Equal(t, DefaultRateLimit, spec.Fetch.RateLimit)
	assert.Equal(t, DefaultConcurrency, spec.Run.Concurrency)
	assert.Equal(t, time.Duration(0), spec.Cache.MaxAge, "entries never expire by default")
	assert.True(t, strings.HasSuffix(spec.Cache.Dir, filepath.Join("pipeline-cache", "html")))
	assert.True(t, strings.HasSuffix(spec.Staging.Dir, "cache-staging"))
	assert.True(t, strings.HasSuffix(spec.Run.OutputDir, "pipeline-runs"))
	assert.Equal(t, SinkTypeFile, spec.Sink.Type)
	assert.NotEmpty(t, spec.Sink.Dir)
	assert.False(t, spec.Photos.Enabled)
	assert.Empty(t, spec.Photos.BucketURL)
}

func TestSetDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &PipelineConfig{Spec: PipelineSpec{
		Fetch:  FetchSpec{Timeout: time.Second, RateLimit: -1},
		Run:    RunSpec{Concurrency: 1, OutputDir: "/srv/runs"},
		Sink:   SinkSpec{Type: SinkTypeRedis},
		Photos: PhotoSpec{Enabled: true},
	}}
	SetDefaults(cfg)

	assert.Equal(t, time.Second, cfg.Spec.Fetch.Timeout)
	assert.Equal(t, time.Duration(-1), cfg.Spec.Fetch.RateLimit, "negative rate limit disables limiting")
	assert.Equal(t, 1, cfg.Spec.Run.Concurrency)
	assert.Equal(t, "/srv/runs", cfg.Spec.Run.OutputDir)
	assert.Equal(t, "localhost:6379", cfg.Spec.Sink.Redis.Addr)
	assert.Equal(t, DefaultRedisPrefix, cfg.Spec.Sink.Redis.Prefix)
	assert.True(t, strings.HasPrefix(cfg.Spec.Photos.BucketURL, "file://"))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(common.EnvHTTPCache, "/tmp/override-cache")
	t.Setenv(common.EnvOffline, "1")

	cfg, err := Load(writeConfig(t, samplePipelineConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override-cache", cfg.Spec.Cache.Dir)
	assert.True(t, cfg.Spec.Fetch.Offline)
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv(common.EnvHTTPCache, "")
	t.Setenv(common.EnvOffline, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Kind, cfg.Kind)
	assert.False(t, cfg.Spec.Fetch.Offline)
	assert.Equal(t, DefaultConcurrency, cfg.Spec.Run.Concurrency)
}
