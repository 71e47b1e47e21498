package config

import (
	"time"
)

const (
	APIVersion = "xmrecipe.mensylisir.io/v1alpha1"
	Kind       = "PipelineConfig"
)

// PipelineConfig is the top-level configuration structure.
type PipelineConfig struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   MetadataSpec `yaml:"metadata"`
	Spec       PipelineSpec `yaml:"spec"`
}

// MetadataSpec defines metadata for the pipeline configuration.
type MetadataSpec struct {
	Name string `yaml:"name"`
}

// PipelineSpec groups the settings for every collaborator of a run.
type PipelineSpec struct {
	Fetch   FetchSpec   `yaml:"fetch"`
	Cache   CacheSpec   `yaml:"cache"`
	Staging StagingSpec `yaml:"staging"`
	Run     RunSpec     `yaml:"run"`
	Sink    SinkSpec    `yaml:"sink"`
	Photos  PhotoSpec   `yaml:"photos"`
}

// FetchSpec configures the caching HTTP client.
type FetchSpec struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
	// RateLimit is the minimum gap between two network requests to one host.
	RateLimit   time.Duration `yaml:"rateLimit"`
	Offline     bool          `yaml:"offline,omitempty"`
	CacheErrors bool          `yaml:"cacheErrors,omitempty"`
}

// CacheSpec configures the on-disk HTTP cache.
type CacheSpec struct {
	Dir string `yaml:"dir"`
	// MaxAge of 0 means entries never expire.
	MaxAge time.Duration `yaml:"maxAge,omitempty"`
}

type StagingSpec struct {
	Dir string `yaml:"dir"`
}

// RunSpec configures batch runs.
type RunSpec struct {
	Concurrency     int           `yaml:"concurrency"`
	OutputDir       string        `yaml:"outputDir"`
	Deadline        time.Duration `yaml:"deadline,omitempty"`
	Shuffle         bool          `yaml:"shuffle,omitempty"`
	Seed            int64         `yaml:"seed,omitempty"`
	Limit           int           `yaml:"limit,omitempty"`
	Site            string        `yaml:"site,omitempty"`
	ForceFetch      bool          `yaml:"forceFetch,omitempty"`
	SaveStepOutputs bool          `yaml:"saveStepOutputs,omitempty"`
}

const (
	SinkTypeFile  = "file"
	SinkTypeRedis = "redis"
)

// SinkSpec selects where extracted recipes are saved.
type SinkSpec struct {
	Type  string    `yaml:"type"`
	Dir   string    `yaml:"dir,omitempty"`
	Redis RedisSpec `yaml:"redis,omitempty"`
}

type RedisSpec struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// PhotoSpec enables image download into a blob bucket. With Enabled false
// the no-op fetch_images step is registered.
type PhotoSpec struct {
	Enabled   bool   `yaml:"enabled"`
	BucketURL string `yaml:"bucketURL,omitempty"`
}
