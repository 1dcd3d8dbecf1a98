package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/graph"
)

// LexiconFile is the on-disk format for keyword lexicon overrides. Loaded
// once at process start; the compiled lexicon is immutable afterwards.
type LexiconFile struct {
	// Entities maps an entity category to its keyword list. Categories
	// present here replace the built-in list for that category.
	Entities map[string][]string `yaml:"entities"`
	// ConfigVariables maps configuration-variable keywords to optional
	// default values, replacing the built-in config lexicon when non-empty.
	ConfigVariables map[string]string `yaml:"config_variables"`
}

// LoadLexicon reads a lexicon override file and merges it over the built-in
// defaults. An empty path returns the defaults unchanged.
func LoadLexicon(path string) (extractor.Lexicon, map[string]string, error) {
	base := extractor.DefaultLexicon()
	if path == "" {
		return base, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read lexicon file: %w", err)
	}
	var file LexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse lexicon file %s: %w", path, err)
	}

	override := make(extractor.Lexicon, len(file.Entities))
	for category, keywords := range file.Entities {
		t := graph.EntityType(category)
		switch t {
		case graph.EntityUserRole, graph.EntityFunctionalArea, graph.EntityTestType,
			graph.EntityAction, graph.EntityObject:
			override[t] = keywords
		default:
			return nil, nil, fmt.Errorf("lexicon file %s: unknown entity category %q", path, category)
		}
	}

	var configVars map[string]string
	if len(file.ConfigVariables) > 0 {
		configVars = file.ConfigVariables
	}
	return extractor.Merge(base, override), configVars, nil
}
