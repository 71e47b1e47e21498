package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and initial parsing of the PipelineConfig from a file.
type Loader struct {
	filePath string
}

// NewLoader creates a new configuration loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the configuration file, unmarshals it into PipelineConfig,
// and performs basic structural validation. Defaulting is handled separately.
func (l *Loader) Load() (*PipelineConfig, error) {
	if l.filePath == "" {
		return nil, errors.New("configuration file path is empty")
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file '%s'", l.filePath)
	}
	if len(content) == 0 {
		return nil, errors.Errorf("configuration file '%s' is empty", l.filePath)
	}
	return Parse(content, l.filePath)
}

// Parse validates raw YAML. source only appears in error messages.
func Parse(content []byte, source string) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config YAML from '%s'", source)
	}

	if cfg.APIVersion == "" {
		return nil, errors.Errorf("config validation failed: apiVersion is a required field in '%s'", source)
	}
	if cfg.Kind != Kind {
		return nil, errors.Errorf("config validation failed: kind must be '%s' in '%s', got '%s'", Kind, source, cfg.Kind)
	}
	if cfg.Metadata.Name == "" {
		return nil, errors.Errorf("config validation failed: metadata.name is a required field in '%s'", source)
	}
	if cfg.Spec.Run.Concurrency < 0 {
		return nil, errors.Errorf("config validation failed: run.concurrency must not be negative in '%s'", source)
	}
	switch cfg.Spec.Sink.Type {
	case "", SinkTypeFile, SinkTypeRedis:
	default:
		return nil, errors.Errorf("config validation failed: unknown sink type '%s' in '%s'", cfg.Spec.Sink.Type, source)
	}
	return &cfg, nil
}

// Load reads filePath when it is set, or starts from an empty config, then
// applies environment overrides and defaults.
func Load(filePath string) (*PipelineConfig, error) {
	cfg := &PipelineConfig{APIVersion: APIVersion, Kind: Kind, Metadata: MetadataSpec{Name: "default"}}
	if filePath != "" {
		loaded, err := NewLoader(filePath).Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	ApplyEnv(cfg)
	SetDefaults(cfg)
	return cfg, nil
}
