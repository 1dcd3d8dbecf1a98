package variables

import (
	"reflect"
	"testing"

	"github.com/casegraph/casegraph/internal/graph"
)

func TestIdentifyBracketedTokens(t *testing.T) {
	id := New(nil)
	c := &graph.CaseNode{
		ID:             "case-1",
		Title:          "Verify login",
		Steps:          []string{"Sign in as [role]", "Enter [username] and [password]"},
		ExpectedResult: "The dashboard shows [welcome message]",
	}

	vars := id.Identify(c)

	byName := make(map[string]Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	for _, name := range []string{"role", "username", "password"} {
		v, ok := byName[name]
		if !ok {
			t.Errorf("missing variable %q", name)
			continue
		}
		if v.Category != CategoryInput {
			t.Errorf("%s category = %q, want Input", name, v.Category)
		}
		if v.SourceCaseID != "case-1" {
			t.Errorf("%s SourceCaseID = %q, want case-1", name, v.SourceCaseID)
		}
	}
	if v, ok := byName["welcome message"]; !ok || v.Category != CategoryExpectedValue {
		t.Errorf("welcome message = %+v, want ExpectedValue", v)
	}
}

func TestIdentifyConfigKeywords(t *testing.T) {
	id := New(nil)
	c := &graph.CaseNode{
		ID:             "case-2",
		Title:          "Verify timeout handling",
		Steps:          []string{"Open the app in the staging environment", "Use the Chrome browser"},
		ExpectedResult: "The request completes before the timeout",
	}

	vars := id.Identify(c)

	want := map[string]string{
		"browser":     "chrome",
		"environment": "staging",
		"timeout":     "30s",
	}
	got := make(map[string]string)
	for _, v := range vars {
		if v.Category != CategoryConfig {
			t.Errorf("unexpected non-config variable %+v", v)
			continue
		}
		got[v.Name] = v.DefaultValue
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("config variables = %v, want %v", got, want)
	}
}

func TestIdentifyDeduplicates(t *testing.T) {
	id := New(nil)
	c := &graph.CaseNode{
		ID:    "case-3",
		Steps: []string{"Enter [amount]", "Confirm [amount]", "Enter [Amount]"},
	}

	vars := id.Identify(c)
	if len(vars) != 1 {
		t.Fatalf("variable count = %d, want 1 (%v)", len(vars), vars)
	}
	if vars[0].Name != "amount" {
		t.Errorf("name = %q, want amount", vars[0].Name)
	}
}

func TestIdentifySortedByCategoryThenName(t *testing.T) {
	id := New(nil)
	c := &graph.CaseNode{
		ID:             "case-4",
		Steps:          []string{"Enter [zzz] and [aaa] in the staging environment"},
		ExpectedResult: "Shows [result]",
	}

	vars := id.Identify(c)

	var names []string
	for _, v := range vars {
		names = append(names, string(v.Category)+":"+v.Name)
	}
	want := []string{
		"Config:environment",
		"ExpectedValue:result",
		"Input:aaa",
		"Input:zzz",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestIdentifyNilAndEmptyCase(t *testing.T) {
	id := New(nil)

	if vars := id.Identify(nil); vars != nil {
		t.Errorf("Identify(nil) = %v, want nil", vars)
	}
	if vars := id.Identify(&graph.CaseNode{ID: "empty"}); len(vars) != 0 {
		t.Errorf("Identify(empty) = %v, want none", vars)
	}
}

func TestIdentifyCustomLexicon(t *testing.T) {
	id := New(map[string]string{"tenant": "acme"})
	c := &graph.CaseNode{
		ID:    "case-5",
		Steps: []string{"Switch to the tenant in the staging environment"},
	}

	vars := id.Identify(c)
	if len(vars) != 1 {
		t.Fatalf("variable count = %d, want 1 (%v)", len(vars), vars)
	}
	if vars[0].Name != "tenant" || vars[0].DefaultValue != "acme" {
		t.Errorf("variable = %+v, want tenant/acme", vars[0])
	}
}

func TestNames(t *testing.T) {
	vars := []Variable{
		{Name: "browser", Category: CategoryConfig},
		{Name: "amount", Category: CategoryInput},
		{Name: "amount", Category: CategoryExpectedValue},
	}
	got := Names(vars)
	want := []string{"browser", "amount"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}
