package graph

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func testCase(title string, entities ...Entity) (*CaseNode, []Entity) {
	steps := []string{"Sign in", "Do the thing", "Check the result"}
	expected := "The thing is done"
	c := &CaseNode{
		ID:             NewCaseID(title, steps, expected),
		Title:          title,
		Steps:          steps,
		ExpectedResult: expected,
	}
	return c, entities
}

func TestAddGetCase(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, ents := testCase("Verify login",
		Entity{Type: EntityUserRole, Value: "admin"},
		Entity{Type: EntityAction, Value: "login"},
	)
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase: %v", err)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Title != "Verify login" {
		t.Errorf("Title = %q, want %q", got.Title, "Verify login")
	}
	wantIDs := []string{"Action:login", "UserRole:admin"}
	if !reflect.DeepEqual(got.EntityIDs, wantIDs) {
		t.Errorf("EntityIDs = %v, want %v", got.EntityIDs, wantIDs)
	}

	ent, err := s.GetEntity(ctx, "UserRole:admin")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if ent.Type != EntityUserRole || ent.Value != "admin" {
		t.Errorf("entity = %+v, want UserRole/admin", ent)
	}
}

func TestAddCaseRejectsEmptyID(t *testing.T) {
	s := NewMemoryStore()
	err := s.AddCase(context.Background(), &CaseNode{}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if err := s.AddCase(context.Background(), nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil case: err = %v, want ErrInvalidInput", err)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetCase(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEntity(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("entity err = %v, want ErrNotFound", err)
	}
}

func TestAddCaseOverwriteDropsStaleEdges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, _ := testCase("Verify export")
	if err := s.AddCase(ctx, c, []Entity{{Type: EntityObject, Value: "report"}}); err != nil {
		t.Fatalf("AddCase: %v", err)
	}
	// Re-add the same case with a different entity set.
	if err := s.AddCase(ctx, c, []Entity{{Type: EntityObject, Value: "invoice"}}); err != nil {
		t.Fatalf("AddCase overwrite: %v", err)
	}

	edges, err := s.EdgesFrom(ctx, c.ID, RelationTests, Outgoing)
	if err != nil {
		t.Fatalf("EdgesFrom: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("edge count = %d, want 1", len(edges))
	}
	if edges[0].TargetID != "Object:invoice" {
		t.Errorf("edge target = %q, want %q", edges[0].TargetID, "Object:invoice")
	}
}

func TestBelongsToRoleEdge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, ents := testCase("Verify role edge",
		Entity{Type: EntityUserRole, Value: "manager"},
		Entity{Type: EntityObject, Value: "order"},
	)
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase: %v", err)
	}

	edges, err := s.EdgesFrom(ctx, c.ID, RelationBelongsToRole, Outgoing)
	if err != nil {
		t.Fatalf("EdgesFrom: %v", err)
	}
	if len(edges) != 1 || edges[0].TargetID != "UserRole:manager" {
		t.Errorf("belongs-to-role edges = %v, want one to UserRole:manager", edges)
	}
}

func TestRemoveCaseTombstones(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, ents := testCase("Verify removal", Entity{Type: EntityAction, Value: "delete"})
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase: %v", err)
	}
	if err := s.RemoveCase(ctx, c.ID); err != nil {
		t.Fatalf("RemoveCase: %v", err)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase after remove: %v", err)
	}
	if !got.Inactive {
		t.Error("Inactive = false, want true")
	}

	// Idempotent, and unknown ids are not errors.
	if err := s.RemoveCase(ctx, c.ID); err != nil {
		t.Errorf("second RemoveCase: %v", err)
	}
	if err := s.RemoveCase(ctx, "nope"); err != nil {
		t.Errorf("RemoveCase unknown: %v", err)
	}

	cases, err := s.Cases(ctx)
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	if len(cases) != 0 {
		t.Errorf("Cases after remove = %d, want 0", len(cases))
	}
}

func TestLinkVariables(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, ents := testCase("Verify variables", Entity{Type: EntityAction, Value: "submit"})
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase: %v", err)
	}
	if err := s.LinkVariables(ctx, c.ID, []string{"username", "Environment", "  "}); err != nil {
		t.Fatalf("LinkVariables: %v", err)
	}

	edges, err := s.EdgesFrom(ctx, c.ID, RelationUsesVariable, Outgoing)
	if err != nil {
		t.Fatalf("EdgesFrom: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("uses-variable edge count = %d, want 2", len(edges))
	}

	v, err := s.GetEntity(ctx, VariableID("username"))
	if err != nil {
		t.Fatalf("GetEntity variable: %v", err)
	}
	if v.Type != EntityVariable || v.SourceCaseID != c.ID {
		t.Errorf("variable entity = %+v", v)
	}

	// Variable edges survive a case overwrite.
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase overwrite: %v", err)
	}
	edges, err = s.EdgesFrom(ctx, c.ID, RelationUsesVariable, Outgoing)
	if err != nil {
		t.Fatalf("EdgesFrom after overwrite: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("uses-variable edges after overwrite = %d, want 2", len(edges))
	}

	// Linking an unknown case is a no-op.
	if err := s.LinkVariables(ctx, "nope", []string{"x"}); err != nil {
		t.Errorf("LinkVariables unknown case: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, entsA := testCase("Case A",
		Entity{Type: EntityUserRole, Value: "admin"},
		Entity{Type: EntityAction, Value: "login"},
	)
	b, entsB := testCase("Case B", Entity{Type: EntityAction, Value: "login"})
	if err := s.AddCase(ctx, a, entsA); err != nil {
		t.Fatalf("AddCase a: %v", err)
	}
	if err := s.AddCase(ctx, b, entsB); err != nil {
		t.Fatalf("AddCase b: %v", err)
	}
	if err := s.RemoveCase(ctx, b.ID); err != nil {
		t.Fatalf("RemoveCase: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CaseCount != 1 {
		t.Errorf("CaseCount = %d, want 1", stats.CaseCount)
	}
	if stats.TombstoneCount != 1 {
		t.Errorf("TombstoneCount = %d, want 1", stats.TombstoneCount)
	}
	if stats.EntityCount != 2 {
		t.Errorf("EntityCount = %d, want 2", stats.EntityCount)
	}
	if stats.EdgesByRelation[RelationTests] != 3 {
		t.Errorf("tests edges = %d, want 3", stats.EdgesByRelation[RelationTests])
	}
	if stats.EdgesByRelation[RelationBelongsToRole] != 1 {
		t.Errorf("belongs-to-role edges = %d, want 1", stats.EdgesByRelation[RelationBelongsToRole])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, ents := testCase("Verify snapshot",
		Entity{Type: EntityUserRole, Value: "tester"},
		Entity{Type: EntityObject, Value: "account"},
	)
	if err := s.AddCase(ctx, c, ents); err != nil {
		t.Fatalf("AddCase: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := s.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restored := NewMemoryStore()
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	got, err := restored.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase after restore: %v", err)
	}
	if got.Title != c.Title {
		t.Errorf("Title = %q, want %q", got.Title, c.Title)
	}

	ids, err := Neighbors(ctx, restored, c.ID, RelationTests, 1)
	if err != nil {
		t.Fatalf("Neighbors after restore: %v", err)
	}
	want := []string{"Object:account", "UserRole:tester"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Neighbors = %v, want %v", ids, want)
	}
}

func TestCaseIDDeterministic(t *testing.T) {
	a := NewCaseID("T", []string{"s1", "s2"}, "e")
	b := NewCaseID("T", []string{"s1", "s2"}, "e")
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}
	if c := NewCaseID("T", []string{"s1s2"}, "e"); c == a {
		t.Error("step-boundary collision")
	}
	if len(a) != 24 {
		t.Errorf("id length = %d, want 24", len(a))
	}
}
