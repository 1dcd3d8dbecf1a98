// Package uatgen is the library boundary of the casegraph core: it wires the
// entity extractor, embedder, knowledge graph store, vector index, and test
// case generator into one Engine that host layers (chat sessions, CLIs)
// call as plain functions. No wire protocol is defined here.
package uatgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casegraph/casegraph/internal/config"
	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/generator"
	"github.com/casegraph/casegraph/internal/graph"
	"github.com/casegraph/casegraph/internal/graph/embedded"
	"github.com/casegraph/casegraph/internal/ingest"
	"github.com/casegraph/casegraph/internal/variables"
	"github.com/casegraph/casegraph/internal/vector"
)

// Sentinel errors re-exported for callers matching with errors.Is.
var (
	ErrInvalidInput       = graph.ErrInvalidInput
	ErrNotFound           = graph.ErrNotFound
	ErrStorageUnavailable = graph.ErrStorageUnavailable
)

// Result is one generated candidate together with its identified variables.
type Result struct {
	Candidate generator.Candidate  `json:"candidate"`
	Variables []variables.Variable `json:"variables,omitempty"`
}

// Engine is the assembled GraphRAG test-case generation pipeline over a
// shared knowledge graph store and vector index. An Engine is safe for
// concurrent use by multiple request-handling goroutines.
type Engine struct {
	cfg   *config.Config
	store graph.Store
	index vector.Index
	ext   *extractor.Extractor
	emb   *embedder.Embedder
	gen   *generator.Generator
	ident *variables.Identifier

	// memStore is set for the memory backend so Snapshot can persist on demand.
	memStore *graph.MemoryStore
}

// New builds an Engine from configuration. The keyword lexicon is loaded
// once here and immutable afterwards.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lex, configVars, err := config.LoadLexicon(cfg.Lexicon.Path)
	if err != nil {
		return nil, err
	}
	ext, err := extractor.New(lex)
	if err != nil {
		return nil, err
	}
	emb := embedder.New(cfg.Embedding.Dims)

	e := &Engine{
		cfg:   cfg,
		ext:   ext,
		emb:   emb,
		ident: variables.New(configVars),
	}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		mem := graph.NewMemoryStore()
		if path := cfg.Storage.SnapshotPath; path != "" {
			if _, err := os.Stat(path); err == nil {
				if err := mem.LoadSnapshot(path); err != nil {
					return nil, err
				}
			}
		}
		e.memStore = mem
		e.store = mem
		index := vector.NewMemoryIndex()
		// Embeddings are a pure function of case text, so the volatile index
		// is rebuilt from the restored cases.
		cases, err := mem.Cases(context.Background())
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			rec := vector.Record{
				CaseID:    c.ID,
				Vector:    emb.Embed(c.Text()),
				Metadata:  map[string]string{"title": c.Title},
				CreatedAt: c.CreatedAt,
			}
			if err := index.Upsert(context.Background(), rec); err != nil {
				return nil, err
			}
		}
		e.index = index
	default:
		store, err := embedded.NewStore(cfg.Storage.GraphPath)
		if err != nil {
			return nil, err
		}
		index, err := vector.Open(cfg.Storage.VectorPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		e.store = store
		e.index = index
	}

	e.gen = generator.New(e.store, e.index, ext, emb, generator.Params{
		TopK:          cfg.Generation.TopK,
		VectorWeight:  cfg.Generation.VectorWeight,
		OverlapWeight: cfg.Generation.OverlapWeight,
		MinScore:      cfg.Generation.MinScore,
	})
	return e, nil
}

// Generate runs the pipeline for a user story and returns the ordered
// candidates with their identified variables. topK <= 0 uses the configured
// default. Generation has no side effects on the stores.
func (e *Engine) Generate(ctx context.Context, userStory string, topK int) ([]Result, error) {
	cands, err := e.gen.Generate(ctx, userStory, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(cands))
	for i, c := range cands {
		results[i] = Result{
			Candidate: c,
			Variables: e.ident.Identify(c.Case),
		}
	}
	return results, nil
}

// Save persists a generated result into the knowledge graph and vector
// index, optionally linking its identified variables with uses-variable
// edges. Returns the stored case id.
func (e *Engine) Save(ctx context.Context, r Result, linkVariables bool) (string, error) {
	id, err := e.gen.Save(ctx, r.Candidate)
	if err != nil {
		return "", err
	}
	if linkVariables && len(r.Variables) > 0 {
		if err := e.store.LinkVariables(ctx, id, variables.Names(r.Variables)); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Remove tombstones a case in the graph and deletes its embedding from the
// index. Removing an unknown id is a no-op.
func (e *Engine) Remove(ctx context.Context, caseID string) error {
	return e.gen.Remove(ctx, caseID)
}

// Case fetches a stored case by id.
func (e *Engine) Case(ctx context.Context, caseID string) (*graph.CaseNode, error) {
	return e.store.GetCase(ctx, caseID)
}

// Neighbors exposes bounded graph traversal from a node id.
func (e *Engine) Neighbors(ctx context.Context, nodeID string, rel graph.Relation, depth int) ([]string, error) {
	return graph.Neighbors(ctx, e.store, nodeID, rel, depth)
}

// Stats returns knowledge graph statistics and the vector index size.
func (e *Engine) Stats(ctx context.Context) (*graph.Stats, int, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, 0, err
	}
	n, err := e.index.Len(ctx)
	if err != nil {
		return nil, 0, err
	}
	return stats, n, nil
}

// NewIngester builds an Ingester bound to this Engine's stores and lexicon.
func (e *Engine) NewIngester(logger func(format string, args ...any)) *ingest.Ingester {
	return ingest.New(ingest.Config{
		Store:     e.store,
		Index:     e.index,
		Extractor: e.ext,
		Embedder:  e.emb,
		Exclude:   e.cfg.Ingest.Exclude,
		Logger:    logger,
	})
}

// Snapshot persists the memory backend's graph to its configured snapshot
// file. It is an error for the embedded backend, which is always durable.
func (e *Engine) Snapshot() error {
	if e.memStore == nil {
		return errors.New("snapshot: embedded backend persists continuously")
	}
	path := e.cfg.Storage.SnapshotPath
	if path == "" {
		return errors.New("snapshot: no storage.snapshot_path configured")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return e.memStore.SaveSnapshot(path)
}

// Close releases the underlying stores.
func (e *Engine) Close() error {
	storeErr := e.store.Close()
	indexErr := e.index.Close()
	if storeErr != nil {
		return storeErr
	}
	return indexErr
}
