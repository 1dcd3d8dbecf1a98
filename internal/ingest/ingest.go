// Package ingest loads historical UAT test-case documents into the knowledge
// graph and vector index. Documents are YAML files, one or more cases per
// file; ingestion is how the retrieval corpus gets built up outside of
// interactive saves.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/graph"
	"github.com/casegraph/casegraph/internal/vector"
)

// Document is the on-disk YAML format for historical test artifacts.
type Document struct {
	// ID identifies the document; informational only.
	ID    string         `yaml:"id,omitempty"`
	Cases []DocumentCase `yaml:"cases"`
}

// DocumentCase is one test case within a document. Cases without an explicit
// id get a deterministic content-hash id, so re-ingesting the same file is
// idempotent.
type DocumentCase struct {
	ID             string    `yaml:"id,omitempty"`
	Title          string    `yaml:"title"`
	Steps          []string  `yaml:"steps"`
	ExpectedResult string    `yaml:"expected_result"`
	CreatedAt      time.Time `yaml:"created_at,omitempty"`
}

// Config holds the collaborators and options for an Ingester.
type Config struct {
	Store     graph.Store
	Index     vector.Index
	Extractor *extractor.Extractor
	Embedder  *embedder.Embedder
	// Exclude lists glob patterns (matched against the base name) to skip.
	Exclude []string
	// Logger receives progress output; defaults to stderr.
	Logger func(format string, args ...any)
}

// Stats accumulates counters for an ingestion run.
type Stats struct {
	FilesIngested int      `json:"files_ingested"`
	CasesIngested int      `json:"cases_ingested"`
	Errors        []string `json:"errors,omitempty"`
}

// Ingester walks artifact directories and feeds cases into the graph and
// vector index.
type Ingester struct {
	store   graph.Store
	index   vector.Index
	ext     *extractor.Extractor
	emb     *embedder.Embedder
	exclude []string
	log     func(format string, args ...any)

	mu    sync.Mutex
	stats Stats
}

// New creates an Ingester with the given configuration.
func New(cfg Config) *Ingester {
	logFn := cfg.Logger
	if logFn == nil {
		logFn = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}
	return &Ingester{
		store:   cfg.Store,
		index:   cfg.Index,
		ext:     cfg.Extractor,
		emb:     cfg.Embedder,
		exclude: cfg.Exclude,
		log:     logFn,
	}
}

// IngestDir walks dir recursively and ingests every YAML document found.
// Each run is tagged with a fresh batch id recorded in the vector record
// metadata for provenance.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (*Stats, error) {
	batch := uuid.NewString()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isYAML(path) || in.excluded(path) {
			return nil
		}
		n, err := in.ingestFile(ctx, path, batch)
		if err != nil {
			in.recordError(fmt.Sprintf("%s: %v", path, err))
			in.log("ingest %s: %v", path, err)
			return nil // keep walking; a bad file should not abort the run
		}
		in.mu.Lock()
		in.stats.FilesIngested++
		in.stats.CasesIngested += n
		in.mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return in.Stats(), nil
}

// IngestFile ingests a single YAML document.
func (in *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	return in.ingestFile(ctx, path, uuid.NewString())
}

func (in *Ingester) ingestFile(ctx context.Context, path, batch string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read document: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}

	count := 0
	for i, dc := range doc.Cases {
		node := &graph.CaseNode{
			ID:             dc.ID,
			Title:          dc.Title,
			Steps:          dc.Steps,
			ExpectedResult: dc.ExpectedResult,
			CreatedAt:      dc.CreatedAt,
		}
		if node.ID == "" {
			node.ID = graph.NewCaseID(node.Title, node.Steps, node.ExpectedResult)
		}
		if node.CreatedAt.IsZero() {
			node.CreatedAt = time.Now().UTC()
		}
		entities := in.ext.Extract(node.Text())
		for j := range entities {
			entities[j].SourceCaseID = node.ID
		}
		if err := in.store.AddCase(ctx, node, entities); err != nil {
			return count, fmt.Errorf("case %d: %w", i, err)
		}
		err := in.index.Upsert(ctx, vector.Record{
			CaseID: node.ID,
			Vector: in.emb.Embed(node.Text()),
			Metadata: map[string]string{
				"title":  node.Title,
				"source": path,
				"batch":  batch,
			},
			CreatedAt: node.CreatedAt,
		})
		if err != nil {
			return count, fmt.Errorf("case %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

// Stats returns a copy of the accumulated counters.
func (in *Ingester) Stats() *Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := in.stats
	s.Errors = append([]string(nil), in.stats.Errors...)
	return &s
}

func (in *Ingester) recordError(msg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stats.Errors = append(in.stats.Errors, msg)
}

func (in *Ingester) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range in.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func isYAML(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
