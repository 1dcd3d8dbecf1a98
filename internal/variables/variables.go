// Package variables post-processes generated test cases to find placeholder
// variables and classify them. Identification is purely derived: it never
// mutates the case, and results are recomputed per call unless the caller
// explicitly persists them.
package variables

import (
	"regexp"
	"sort"
	"strings"

	"github.com/casegraph/casegraph/internal/graph"
)

// Category classifies where a variable slots into a test case.
type Category string

const (
	CategoryInput         Category = "Input"
	CategoryExpectedValue Category = "ExpectedValue"
	CategoryConfig        Category = "Config"
)

// Variable is a placeholder identified in a generated test case.
type Variable struct {
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	DefaultValue string   `json:"default_value,omitempty"`
	SourceCaseID string   `json:"source_case_id"`
}

// bracketRe matches the bracketed-token placeholder convention, e.g. [role].
var bracketRe = regexp.MustCompile(`\[([A-Za-z0-9][A-Za-z0-9 _-]*)\]`)

// DefaultConfigLexicon returns the built-in configuration-keyword lexicon:
// free-form terms that indicate an environment-level variable, with optional
// default values.
func DefaultConfigLexicon() map[string]string {
	return map[string]string{
		"environment": "staging",
		"browser":     "chrome",
		"timeout":     "30s",
		"locale":      "en-US",
		"url":         "",
		"endpoint":    "",
		"credentials": "",
		"config":      "",
	}
}

// Identifier scans test cases for variables using a compiled config lexicon.
type Identifier struct {
	configDefaults map[string]string
	configPatterns []*compiledKeyword
}

type compiledKeyword struct {
	keyword string
	re      *regexp.Regexp
}

// New creates an Identifier. A nil lexicon uses the built-in defaults.
func New(configLexicon map[string]string) *Identifier {
	if configLexicon == nil {
		configLexicon = DefaultConfigLexicon()
	}
	keywords := make([]string, 0, len(configLexicon))
	for kw := range configLexicon {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	id := &Identifier{configDefaults: configLexicon}
	for _, kw := range keywords {
		id.configPatterns = append(id.configPatterns, &compiledKeyword{
			keyword: kw,
			re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return id
}

// Identify returns the deduplicated set of variables found in the case,
// sorted by (category, name). Bracketed tokens in Steps classify as Input,
// in ExpectedResult as ExpectedValue; configuration-keyword matches anywhere
// classify as Config.
func (id *Identifier) Identify(c *graph.CaseNode) []Variable {
	if c == nil {
		return nil
	}
	type key struct {
		name     string
		category Category
	}
	seen := make(map[key]struct{})
	var result []Variable
	add := func(name string, cat Category, def string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		k := key{name: name, category: cat}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		result = append(result, Variable{
			Name:         name,
			Category:     cat,
			DefaultValue: def,
			SourceCaseID: c.ID,
		})
	}

	for _, step := range c.Steps {
		for _, m := range bracketRe.FindAllStringSubmatch(step, -1) {
			add(m[1], CategoryInput, "")
		}
	}
	for _, m := range bracketRe.FindAllStringSubmatch(c.ExpectedResult, -1) {
		add(m[1], CategoryExpectedValue, "")
	}

	text := c.Text()
	for _, kw := range id.configPatterns {
		if kw.re.MatchString(text) {
			add(kw.keyword, CategoryConfig, id.configDefaults[kw.keyword])
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns the distinct variable names, preserving the sorted order of
// vars. Used when persisting uses-variable links.
func Names(vars []Variable) []string {
	var names []string
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if _, ok := seen[v.Name]; ok {
			continue
		}
		seen[v.Name] = struct{}{}
		names = append(names, v.Name)
	}
	return names
}
