// Package extractor pulls typed entities out of free-text user stories using
// a static keyword lexicon. Extraction is a pure function of the input text
// and the lexicon; it never fails on malformed input.
package extractor

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/casegraph/casegraph/internal/graph"
)

// Lexicon maps an entity category to the ordered list of keywords that match
// it. Keywords are matched case-insensitively on word boundaries. Categories
// are kept disjoint so a token maps to exactly one entity type.
type Lexicon map[graph.EntityType][]string

// DefaultLexicon returns the built-in UAT keyword lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		graph.EntityUserRole: {
			"user", "admin", "administrator", "manager", "customer", "client",
			"tester", "developer", "analyst", "operator", "guest",
		},
		graph.EntityFunctionalArea: {
			"authentication", "authorization", "payment processing", "reporting",
			"dashboard", "checkout", "billing", "administration", "onboarding",
			"settings", "inventory",
		},
		graph.EntityTestType: {
			"functional", "regression", "integration", "unit", "performance",
			"security", "usability", "acceptance", "smoke",
		},
		graph.EntityAction: {
			"login", "log in", "logout", "log out", "register", "sign up",
			"search", "filter", "sort", "export", "import", "create", "update",
			"delete", "upload", "download", "submit", "cancel", "approve",
			"reject", "pay", "subscribe", "reset", "view", "edit",
		},
		graph.EntityObject: {
			"account", "report", "profile", "order", "invoice", "file",
			"record", "notification", "password", "cart", "document", "form",
			"ticket", "subscription", "transaction", "statement",
		},
	}
}

// requiredTypes are the categories that degrade to "unspecified" when the
// text produces no match, because the generator's template depends on them.
var requiredTypes = []graph.EntityType{
	graph.EntityUserRole,
	graph.EntityAction,
	graph.EntityObject,
}

// orderedTypes fixes the category iteration order for deterministic output.
var orderedTypes = []graph.EntityType{
	graph.EntityUserRole,
	graph.EntityFunctionalArea,
	graph.EntityTestType,
	graph.EntityAction,
	graph.EntityObject,
}

// Extractor matches text against a compiled lexicon.
type Extractor struct {
	patterns map[graph.EntityType][]*compiledKeyword
}

type compiledKeyword struct {
	value string
	re    *regexp.Regexp
}

// New compiles the given lexicon into an Extractor. A nil lexicon uses the
// built-in defaults. The lexicon is treated as immutable after compilation.
func New(lex Lexicon) (*Extractor, error) {
	if lex == nil {
		lex = DefaultLexicon()
	}
	patterns := make(map[graph.EntityType][]*compiledKeyword, len(lex))
	for t, keywords := range lex {
		for _, kw := range keywords {
			norm := graph.NormalizeValue(kw)
			if norm == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(norm) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compile keyword %q for %s: %w", kw, t, err)
			}
			patterns[t] = append(patterns[t], &compiledKeyword{value: norm, re: re})
		}
	}
	return &Extractor{patterns: patterns}, nil
}

// Extract returns the deduplicated entity set found in text, sorted by
// (type, value). Required categories with no match yield an entity with the
// value "unspecified"; extraction never returns an error for any string
// input.
func (x *Extractor) Extract(text string) []graph.Entity {
	found := make(map[graph.EntityType]map[string]struct{})
	for _, t := range orderedTypes {
		for _, kw := range x.patterns[t] {
			if !kw.re.MatchString(text) {
				continue
			}
			if found[t] == nil {
				found[t] = make(map[string]struct{})
			}
			found[t][kw.value] = struct{}{}
		}
	}
	for _, t := range requiredTypes {
		if len(found[t]) == 0 {
			found[t] = map[string]struct{}{graph.UnspecifiedValue: {}}
		}
	}

	var entities []graph.Entity
	for _, t := range orderedTypes {
		values := make([]string, 0, len(found[t]))
		for v := range found[t] {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			entities = append(entities, graph.Entity{Type: t, Value: v})
		}
	}
	return entities
}

// Value returns the first extracted value for the given type, or
// "unspecified" when the set contains none.
func Value(entities []graph.Entity, t graph.EntityType) string {
	for _, e := range entities {
		if e.Type == t {
			return e.Value
		}
	}
	return graph.UnspecifiedValue
}

// IDs returns the sorted set of graph node ids for the given entities.
func IDs(entities []graph.Entity) []string {
	ids := make([]string, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		id := e.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge overlays non-empty categories from override onto base, returning a
// new lexicon. Used to apply user-provided lexicon files over the defaults.
func Merge(base, override Lexicon) Lexicon {
	merged := make(Lexicon, len(base))
	for t, kws := range base {
		merged[t] = append([]string(nil), kws...)
	}
	for t, kws := range override {
		if len(kws) > 0 {
			merged[t] = append([]string(nil), kws...)
		}
	}
	return merged
}
