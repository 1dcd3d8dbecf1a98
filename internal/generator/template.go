package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/graph"
)

// Placeholder tokens used when a required entity category is unspecified.
// The bracketed convention is what the variable identifier scans for, so an
// unfilled slot in a generated case surfaces as a test variable.
const (
	placeholderRole   = "[role]"
	placeholderAction = "[action]"
	placeholderObject = "[object]"
)

// templateTypes are the entity categories substituted during adaptation.
var templateTypes = []graph.EntityType{
	graph.EntityUserRole,
	graph.EntityAction,
	graph.EntityObject,
}

var placeholderByType = map[graph.EntityType]string{
	graph.EntityUserRole: placeholderRole,
	graph.EntityAction:   placeholderAction,
	graph.EntityObject:   placeholderObject,
}

// adaptCase templates a new case over a historical case's structure,
// substituting the story's extracted role, action, and object for the
// historical case's own. The historical case is not mutated.
func adaptCase(hist *graph.CaseNode, entities []graph.Entity) *graph.CaseNode {
	subs := buildSubstitutions(hist, entities)

	title := applySubstitutions(hist.Title, subs)
	steps := make([]string, len(hist.Steps))
	for i, step := range hist.Steps {
		steps[i] = applySubstitutions(step, subs)
	}
	expected := applySubstitutions(hist.ExpectedResult, subs)

	return &graph.CaseNode{
		ID:             graph.NewCaseID(title, steps, expected),
		Title:          title,
		Steps:          steps,
		ExpectedResult: expected,
	}
}

// bareTemplate generates a test case directly from the extracted entities,
// used when no historical candidate clears the score threshold. Unspecified
// slots keep their bracketed placeholder.
func bareTemplate(entities []graph.Entity) *graph.CaseNode {
	role := slotValue(entities, graph.EntityUserRole)
	action := slotValue(entities, graph.EntityAction)
	object := slotValue(entities, graph.EntityObject)

	title := fmt.Sprintf("Verify %s can %s %s", role, action, object)
	steps := []string{
		fmt.Sprintf("Sign in as %s", role),
		fmt.Sprintf("Navigate to the %s section", object),
		fmt.Sprintf("Perform the %s operation", action),
		"Verify the outcome",
	}
	expected := fmt.Sprintf("The %s completes successfully and the %s reflects the result", action, object)

	return &graph.CaseNode{
		ID:             graph.NewCaseID(title, steps, expected),
		Title:          title,
		Steps:          steps,
		ExpectedResult: expected,
	}
}

// slotValue returns the extracted value for a template slot, or its
// bracketed placeholder when the category is unspecified.
func slotValue(entities []graph.Entity, t graph.EntityType) string {
	v := extractor.Value(entities, t)
	if v == graph.UnspecifiedValue {
		return placeholderByType[t]
	}
	return v
}

// substitution replaces occurrences of a pattern with the new value.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

// buildSubstitutions derives the rewrite rules from the historical case's
// entities and the story's extracted entities: each template category maps
// the historical value (and the bracketed placeholder) to the new value.
func buildSubstitutions(hist *graph.CaseNode, entities []graph.Entity) []substitution {
	oldByType := entityValuesByType(hist.EntityIDs)

	var subs []substitution
	for _, t := range templateTypes {
		newVal := extractor.Value(entities, t)
		if newVal == graph.UnspecifiedValue {
			continue // no replacement value; historical text stands
		}
		subs = append(subs, substitution{
			re:   regexp.MustCompile(regexp.QuoteMeta(placeholderByType[t])),
			repl: newVal,
		})
		oldVal := oldByType[t]
		if oldVal == "" || oldVal == graph.UnspecifiedValue || oldVal == newVal {
			continue
		}
		subs = append(subs, substitution{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(oldVal) + `\b`),
			repl: newVal,
		})
	}
	return subs
}

func applySubstitutions(text string, subs []substitution) string {
	for _, s := range subs {
		text = s.re.ReplaceAllString(text, s.repl)
	}
	return text
}

// entityValuesByType parses entity node ids ("Type:value") back into a
// per-type first value.
func entityValuesByType(entityIDs []string) map[graph.EntityType]string {
	byType := make(map[graph.EntityType]string)
	for _, id := range entityIDs {
		t, v, ok := strings.Cut(id, ":")
		if !ok {
			continue
		}
		et := graph.EntityType(t)
		if _, exists := byType[et]; !exists {
			byType[et] = v
		}
	}
	return byType
}
