package extractor

import (
	"reflect"
	"testing"

	"github.com/casegraph/casegraph/internal/graph"
)

func newTestExtractor(t *testing.T, lex Lexicon) *Extractor {
	t.Helper()
	x, err := New(lex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return x
}

func TestExtractUserStory(t *testing.T) {
	x := newTestExtractor(t, nil)

	entities := x.Extract("As a tester, I want to login so that I can access my account")

	want := []graph.Entity{
		{Type: graph.EntityUserRole, Value: "tester"},
		{Type: graph.EntityAction, Value: "login"},
		{Type: graph.EntityObject, Value: "account"},
	}
	if !reflect.DeepEqual(entities, want) {
		t.Errorf("Extract = %v, want %v", entities, want)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	x := newTestExtractor(t, nil)

	for _, text := range []string{"", "   ", "lorem ipsum dolor"} {
		entities := x.Extract(text)
		if len(entities) != 3 {
			t.Fatalf("Extract(%q) returned %d entities, want 3", text, len(entities))
		}
		for _, e := range entities {
			if e.Value != graph.UnspecifiedValue {
				t.Errorf("Extract(%q) entity %s = %q, want %q", text, e.Type, e.Value, graph.UnspecifiedValue)
			}
		}
	}
}

func TestExtractCaseInsensitiveAndDeduplicated(t *testing.T) {
	x := newTestExtractor(t, nil)

	entities := x.Extract("The Admin and the ADMIN both login to review an Account")

	count := 0
	for _, e := range entities {
		if e.Type == graph.EntityUserRole {
			count++
			if e.Value != "admin" {
				t.Errorf("UserRole value = %q, want %q", e.Value, "admin")
			}
		}
	}
	if count != 1 {
		t.Errorf("UserRole entity count = %d, want 1", count)
	}
}

func TestExtractWordBoundaries(t *testing.T) {
	x := newTestExtractor(t, nil)

	// "cartography" must not match the keyword "cart".
	entities := x.Extract("A manager studies cartography")
	for _, e := range entities {
		if e.Type == graph.EntityObject && e.Value == "cart" {
			t.Error("matched substring inside a longer word")
		}
	}
}

func TestExtractMultiWordKeyword(t *testing.T) {
	x := newTestExtractor(t, nil)

	entities := x.Extract("The customer uses payment processing to pay an invoice")
	if got := Value(entities, graph.EntityFunctionalArea); got != "payment processing" {
		t.Errorf("FunctionalArea = %q, want %q", got, "payment processing")
	}
}

func TestExtractDeterministicOrder(t *testing.T) {
	x := newTestExtractor(t, nil)
	text := "An admin and a customer login, logout, search and export a report and invoice"

	first := x.Extract(text)
	for i := 0; i < 10; i++ {
		if got := x.Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestExtractCustomLexicon(t *testing.T) {
	x := newTestExtractor(t, Lexicon{
		graph.EntityUserRole: {"auditor"},
		graph.EntityAction:   {"reconcile"},
		graph.EntityObject:   {"ledger"},
	})

	entities := x.Extract("The auditor must reconcile the ledger")
	want := []graph.Entity{
		{Type: graph.EntityUserRole, Value: "auditor"},
		{Type: graph.EntityAction, Value: "reconcile"},
		{Type: graph.EntityObject, Value: "ledger"},
	}
	if !reflect.DeepEqual(entities, want) {
		t.Errorf("Extract = %v, want %v", entities, want)
	}
}

func TestValueFallback(t *testing.T) {
	if got := Value(nil, graph.EntityAction); got != graph.UnspecifiedValue {
		t.Errorf("Value(nil) = %q, want %q", got, graph.UnspecifiedValue)
	}
}

func TestIDsSortedUnique(t *testing.T) {
	entities := []graph.Entity{
		{Type: graph.EntityObject, Value: "report"},
		{Type: graph.EntityAction, Value: "login"},
		{Type: graph.EntityObject, Value: "report"},
	}
	got := IDs(entities)
	want := []string{"Action:login", "Object:report"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
}

func TestMergeOverridesNonEmptyCategories(t *testing.T) {
	base := DefaultLexicon()
	merged := Merge(base, Lexicon{
		graph.EntityUserRole: {"auditor"},
	})

	if got := merged[graph.EntityUserRole]; len(got) != 1 || got[0] != "auditor" {
		t.Errorf("merged UserRole = %v, want [auditor]", got)
	}
	if len(merged[graph.EntityAction]) != len(base[graph.EntityAction]) {
		t.Error("merge dropped untouched category")
	}
}
