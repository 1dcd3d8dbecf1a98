package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Backend != StorageEmbedded {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, StorageEmbedded)
	}
	if cfg.Storage.GraphPath != ".casegraph/graph.db" {
		t.Errorf("GraphPath = %q", cfg.Storage.GraphPath)
	}
	if cfg.Embedding.Dims != 384 {
		t.Errorf("Dims = %d, want 384", cfg.Embedding.Dims)
	}
	if cfg.Generation.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Generation.TopK)
	}
	if cfg.Generation.VectorWeight != 0.7 || cfg.Generation.OverlapWeight != 0.3 {
		t.Errorf("weights = %v/%v, want 0.7/0.3",
			cfg.Generation.VectorWeight, cfg.Generation.OverlapWeight)
	}
	if cfg.Generation.MinScore != 0.35 {
		t.Errorf("MinScore = %v, want 0.35", cfg.Generation.MinScore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `project:
  name: shop-uat
storage:
  backend: memory
  snapshot_path: kb.yaml
generation:
  top_k: 3
  min_score: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	viper.Set("config_file", path)
	t.Cleanup(func() { viper.Set("config_file", "") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.Name != "shop-uat" {
		t.Errorf("Name = %q, want shop-uat", cfg.Project.Name)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Storage.SnapshotPath != "kb.yaml" {
		t.Errorf("SnapshotPath = %q, want kb.yaml", cfg.Storage.SnapshotPath)
	}
	if cfg.Generation.TopK != 3 {
		t.Errorf("TopK = %d, want 3", cfg.Generation.TopK)
	}
	if cfg.Generation.MinScore != 0.5 {
		t.Errorf("MinScore = %v, want 0.5", cfg.Generation.MinScore)
	}
	// Unset keys keep their defaults.
	if cfg.Embedding.Dims != 384 {
		t.Errorf("Dims = %d, want 384", cfg.Embedding.Dims)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	viper.Set("config_file", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != StorageEmbedded {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, StorageEmbedded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, "storage.backend"},
		{"embedded without graph path", func(c *Config) { c.Storage.GraphPath = "" }, "graph_path"},
		{"embedded without vector path", func(c *Config) { c.Storage.VectorPath = "" }, "vector_path"},
		{"memory without snapshot", func(c *Config) {
			c.Storage.Backend = StorageMemory
			c.Storage.SnapshotPath = ""
		}, ""},
		{"zero dims", func(c *Config) { c.Embedding.Dims = 0 }, "dims"},
		{"zero top_k", func(c *Config) { c.Generation.TopK = 0 }, "top_k"},
		{"negative weight", func(c *Config) { c.Generation.VectorWeight = -1 }, "non-negative"},
		{"all-zero weights", func(c *Config) {
			c.Generation.VectorWeight = 0
			c.Generation.OverlapWeight = 0
		}, "at least one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate: %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".casegraph.yaml")

	cfg := Default()
	cfg.Project.Name = "billing-uat"
	cfg.Generation.TopK = 7
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "# casegraph configuration\n") {
		t.Error("missing header comment")
	}

	viper.Set("config_file", path)
	t.Cleanup(func() { viper.Set("config_file", "") })

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Project.Name != "billing-uat" {
		t.Errorf("Name = %q, want billing-uat", loaded.Project.Name)
	}
	if loaded.Generation.TopK != 7 {
		t.Errorf("TopK = %d, want 7", loaded.Generation.TopK)
	}
}
