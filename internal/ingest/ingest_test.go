package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/graph"
	"github.com/casegraph/casegraph/internal/vector"
)

const sampleDoc = `id: regression-pack
cases:
  - title: Verify admin can login
    steps:
      - Sign in as admin
      - Open the dashboard
    expected_result: The dashboard is shown
  - id: custom-id
    title: Verify customer can pay invoice
    steps:
      - Open the invoice
      - Pay it
    expected_result: The invoice is marked paid
`

func newTestIngester(t *testing.T, exclude []string) (*Ingester, *graph.MemoryStore, *vector.MemoryIndex) {
	t.Helper()
	store := graph.NewMemoryStore()
	index := vector.NewMemoryIndex()
	ext, err := extractor.New(nil)
	if err != nil {
		t.Fatalf("extractor.New: %v", err)
	}
	in := New(Config{
		Store:     store,
		Index:     index,
		Extractor: ext,
		Embedder:  embedder.New(embedder.DefaultDims),
		Exclude:   exclude,
		Logger:    t.Logf,
	})
	return in, store, index
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestIngestDir(t *testing.T) {
	in, store, index := newTestIngester(t, nil)
	dir := t.TempDir()
	writeFile(t, dir, "pack.yaml", sampleDoc)
	writeFile(t, dir, "notes.txt", "not a document")
	writeFile(t, dir, "nested/more.yml", sampleDoc)

	stats, err := in.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if stats.FilesIngested != 2 {
		t.Errorf("FilesIngested = %d, want 2", stats.FilesIngested)
	}
	if stats.CasesIngested != 4 {
		t.Errorf("CasesIngested = %d, want 4", stats.CasesIngested)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v, want none", stats.Errors)
	}

	// Explicit ids are honored; the same case from both files dedupes.
	ctx := context.Background()
	if _, err := store.GetCase(ctx, "custom-id"); err != nil {
		t.Errorf("GetCase custom-id: %v", err)
	}
	cases, err := store.Cases(ctx)
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	if len(cases) != 2 {
		t.Errorf("distinct cases = %d, want 2", len(cases))
	}

	n, err := index.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 2 {
		t.Errorf("index Len = %d, want 2", n)
	}
}

func TestIngestFileIdempotent(t *testing.T) {
	in, store, _ := newTestIngester(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "pack.yaml", sampleDoc)

	if _, err := in.IngestFile(ctx, path); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if _, err := in.IngestFile(ctx, path); err != nil {
		t.Fatalf("second IngestFile: %v", err)
	}

	cases, err := store.Cases(ctx)
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	if len(cases) != 2 {
		t.Errorf("cases after re-ingest = %d, want 2", len(cases))
	}
}

func TestIngestExtractsEntities(t *testing.T) {
	in, store, _ := newTestIngester(t, nil)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "pack.yaml", sampleDoc)

	if _, err := in.IngestFile(ctx, path); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	ids, err := graph.Neighbors(ctx, store, "custom-id", graph.RelationTests, 1)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	for _, want := range []string{"UserRole:customer", "Action:pay", "Object:invoice"} {
		if !found[want] {
			t.Errorf("entity %s not linked (got %v)", want, ids)
		}
	}

	ent, err := store.GetEntity(ctx, "Object:invoice")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if ent.SourceCaseID != "custom-id" {
		t.Errorf("SourceCaseID = %q, want custom-id", ent.SourceCaseID)
	}
}

func TestIngestDirSkipsBadFiles(t *testing.T) {
	in, _, _ := newTestIngester(t, nil)
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", sampleDoc)
	writeFile(t, dir, "bad.yaml", "cases: [:::not yaml")

	stats, err := in.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if stats.FilesIngested != 1 {
		t.Errorf("FilesIngested = %d, want 1", stats.FilesIngested)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", stats.Errors)
	}
}

func TestIngestExclude(t *testing.T) {
	in, _, index := newTestIngester(t, []string{"draft-*.yaml"})
	dir := t.TempDir()
	writeFile(t, dir, "draft-wip.yaml", sampleDoc)
	writeFile(t, dir, "final.yaml", sampleDoc)

	stats, err := in.IngestDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if stats.FilesIngested != 1 {
		t.Errorf("FilesIngested = %d, want 1", stats.FilesIngested)
	}

	n, err := index.Len(context.Background())
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 2 {
		t.Errorf("index Len = %d, want 2", n)
	}
}

func TestIngestDirMissing(t *testing.T) {
	in, _, _ := newTestIngester(t, nil)
	if _, err := in.IngestDir(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("IngestDir on missing dir: err = nil, want error")
	}
}
