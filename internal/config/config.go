// Package config handles configuration loading and validation for casegraph.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".casegraph"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
)

// Storage backends.
const (
	StorageEmbedded = "embedded"
	StorageMemory   = "memory"
)

// Config holds all configuration for casegraph.
type Config struct {
	// Project contains project metadata.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Storage contains knowledge graph and vector index storage configuration.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	// Embedding contains embedding generator configuration.
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	// Generation contains retrieval and scoring parameters.
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	// Lexicon points at an optional YAML keyword-lexicon override file.
	Lexicon LexiconConfig `mapstructure:"lexicon" yaml:"lexicon"`
	// Ingest contains historical-artifact ingestion configuration.
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`
}

// ProjectConfig holds project metadata.
type ProjectConfig struct {
	// Name is the project name.
	Name string `mapstructure:"name" yaml:"name"`
}

// StorageConfig holds storage backend configuration.
type StorageConfig struct {
	// Backend is the storage backend (embedded or memory).
	Backend string `mapstructure:"backend" yaml:"backend"`
	// GraphPath is the BadgerDB path for the knowledge graph.
	GraphPath string `mapstructure:"graph_path" yaml:"graph_path"`
	// VectorPath is the BadgerDB path for the vector index.
	VectorPath string `mapstructure:"vector_path" yaml:"vector_path"`
	// SnapshotPath is the YAML snapshot file used by the memory backend.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
}

// EmbeddingConfig holds embedding generator configuration.
type EmbeddingConfig struct {
	// Dims is the embedding vector dimensionality.
	Dims int `mapstructure:"dims" yaml:"dims"`
}

// GenerationConfig holds retrieval and scoring parameters. The weights and
// threshold are tuning values with defaults, not fixed constants.
type GenerationConfig struct {
	// TopK is the number of similar historical cases retrieved per story.
	TopK int `mapstructure:"top_k" yaml:"top_k"`
	// VectorWeight scales the cosine-similarity score component.
	VectorWeight float64 `mapstructure:"vector_weight" yaml:"vector_weight"`
	// OverlapWeight scales the entity-overlap score component.
	OverlapWeight float64 `mapstructure:"overlap_weight" yaml:"overlap_weight"`
	// MinScore is the combined-score threshold for using retrieved cases.
	MinScore float64 `mapstructure:"min_score" yaml:"min_score"`
}

// LexiconConfig holds the lexicon override file location.
type LexiconConfig struct {
	// Path is a YAML file overriding the built-in keyword lexicon.
	Path string `mapstructure:"path" yaml:"path"`
}

// IngestConfig holds historical-artifact ingestion configuration.
type IngestConfig struct {
	// Paths lists directories scanned for test-case YAML documents.
	Paths []string `mapstructure:"paths" yaml:"paths"`
	// Exclude lists glob patterns to skip during ingestion and watching.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// DebounceMillis is the watch-mode event debounce interval.
	DebounceMillis int `mapstructure:"debounce_millis" yaml:"debounce_millis"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("CASEGRAPH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with all defaults applied and no file or
// environment input.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")
	v.SetDefault("storage.backend", StorageEmbedded)
	v.SetDefault("storage.graph_path", ".casegraph/graph.db")
	v.SetDefault("storage.vector_path", ".casegraph/vector.db")
	v.SetDefault("storage.snapshot_path", ".casegraph/graph.yaml")
	v.SetDefault("embedding.dims", 384)
	v.SetDefault("generation.top_k", 5)
	v.SetDefault("generation.vector_weight", 0.7)
	v.SetDefault("generation.overlap_weight", 0.3)
	v.SetDefault("generation.min_score", 0.35)
	v.SetDefault("lexicon.path", "")
	v.SetDefault("ingest.paths", []string{})
	v.SetDefault("ingest.exclude", []string{})
	v.SetDefault("ingest.debounce_millis", 500)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageEmbedded:
		if c.Storage.GraphPath == "" {
			return fmt.Errorf("storage.graph_path is required for the embedded backend")
		}
		if c.Storage.VectorPath == "" {
			return fmt.Errorf("storage.vector_path is required for the embedded backend")
		}
	case StorageMemory:
		// snapshot path optional: the memory backend may stay volatile
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			StorageEmbedded, StorageMemory, c.Storage.Backend)
	}
	if c.Embedding.Dims <= 0 {
		return fmt.Errorf("embedding.dims must be positive, got %d", c.Embedding.Dims)
	}
	if c.Generation.TopK <= 0 {
		return fmt.Errorf("generation.top_k must be positive, got %d", c.Generation.TopK)
	}
	if c.Generation.VectorWeight < 0 || c.Generation.OverlapWeight < 0 {
		return fmt.Errorf("generation weights must be non-negative")
	}
	if c.Generation.VectorWeight == 0 && c.Generation.OverlapWeight == 0 {
		return fmt.Errorf("at least one generation weight must be positive")
	}
	return nil
}
