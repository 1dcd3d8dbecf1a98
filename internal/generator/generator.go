// Package generator synthesizes UAT test-case candidates from a user story
// by combining entity extraction, vector-similarity retrieval, and knowledge
// graph expansion. Generation is a pure read over the current graph and
// index state; persistence only happens on an explicit Save.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/extractor"
	"github.com/casegraph/casegraph/internal/graph"
	"github.com/casegraph/casegraph/internal/vector"
)

// Params holds the retrieval and scoring configuration. The weights and the
// minimum-score threshold are tuning values, not algorithmic constants; they
// are configurable with the defaults below.
type Params struct {
	// TopK is the number of historical cases retrieved from the vector index.
	TopK int
	// VectorWeight scales the cosine-similarity component of the combined score.
	VectorWeight float64
	// OverlapWeight scales the entity-overlap component of the combined score.
	OverlapWeight float64
	// MinScore is the combined-score threshold below which retrieved cases
	// are ignored and generation falls back to the bare template.
	MinScore float64
}

// DefaultParams returns the default retrieval and scoring parameters.
func DefaultParams() Params {
	return Params{
		TopK:          5,
		VectorWeight:  0.7,
		OverlapWeight: 0.3,
		MinScore:      0.35,
	}
}

// Candidate is one generated test case with its scoring breakdown.
type Candidate struct {
	Case     *graph.CaseNode `json:"case"`
	Entities []graph.Entity  `json:"entities"`
	// Score is VectorWeight*Similarity + OverlapWeight*Overlap.
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	// Overlap is the shared-entity ratio against the story's extracted set.
	Overlap float64 `json:"overlap"`
	// Adapted is true when the candidate was templated from a historical
	// case rather than generated from the bare template.
	Adapted bool `json:"adapted"`
	// SourceCaseID is the historical case the candidate was adapted from.
	SourceCaseID string `json:"source_case_id,omitempty"`
}

// Generator orchestrates extraction, retrieval, and candidate assembly over
// explicitly injected stores.
type Generator struct {
	store  graph.Store
	index  vector.Index
	ext    *extractor.Extractor
	emb    *embedder.Embedder
	params Params
}

// New creates a Generator. The zero Params value selects DefaultParams; any
// other value is applied verbatim, so an explicitly zero weight or threshold
// is honored. TopK has no meaningful zero and falls back to the default when
// non-positive.
func New(store graph.Store, index vector.Index, ext *extractor.Extractor, emb *embedder.Embedder, params Params) *Generator {
	if params == (Params{}) {
		params = DefaultParams()
	} else if params.TopK <= 0 {
		params.TopK = DefaultParams().TopK
	}
	return &Generator{store: store, index: index, ext: ext, emb: emb, params: params}
}

// Generate produces an ordered sequence of test-case candidates for the
// given user story. topK <= 0 uses the configured default.
//
// A whitespace-only story returns ErrInvalidInput. Absence of historical
// data is never an error: the result always contains at least one candidate.
func (g *Generator) Generate(ctx context.Context, userStory string, topK int) ([]Candidate, error) {
	if strings.TrimSpace(userStory) == "" {
		return nil, fmt.Errorf("generate: empty user story: %w", graph.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = g.params.TopK
	}

	entities := g.ext.Extract(userStory)
	extractedIDs := extractor.IDs(entities)

	vec := g.emb.Embed(userStory)
	hits, err := g.index.Query(ctx, vec, topK, vector.NoMinScore)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	type ranked struct {
		hit     vector.Hit
		overlap float64
		score   float64
	}
	scored := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		// A case present in the index but absent from the graph simply
		// contributes no entity overlap.
		neighborIDs, err := graph.Neighbors(ctx, g.store, hit.CaseID, graph.RelationTests, 1)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		overlap := overlapRatio(neighborIDs, extractedIDs)
		scored = append(scored, ranked{
			hit:     hit,
			overlap: overlap,
			score:   g.params.VectorWeight*hit.Score + g.params.OverlapWeight*overlap,
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].hit.Score != scored[j].hit.Score {
			return scored[i].hit.Score > scored[j].hit.Score
		}
		return scored[i].hit.CaseID < scored[j].hit.CaseID
	})

	var candidates []Candidate
	seen := make(map[string]struct{})
	for _, r := range scored {
		if r.score < g.params.MinScore {
			continue
		}
		hist, err := g.store.GetCase(ctx, r.hit.CaseID)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("generate: %w", err)
		}
		if hist.Inactive {
			continue
		}
		adapted := adaptCase(hist, entities)
		adapted.EntityIDs = extractedIDs
		if _, dup := seen[adapted.ID]; dup {
			continue
		}
		seen[adapted.ID] = struct{}{}
		candidates = append(candidates, Candidate{
			Case:         adapted,
			Entities:     entities,
			Score:        r.score,
			Similarity:   r.hit.Score,
			Overlap:      r.overlap,
			Adapted:      true,
			SourceCaseID: hist.ID,
		})
	}

	// No retrieved case cleared the threshold: generate a bare-template case
	// from the extracted entities alone, so the result is never empty.
	if len(candidates) == 0 {
		bare := bareTemplate(entities)
		bare.EntityIDs = extractedIDs
		candidates = append(candidates, Candidate{
			Case:     bare,
			Entities: entities,
		})
	}
	return candidates, nil
}

// Save persists a candidate: it stamps the case id and creation time, writes
// the case and its entities to the knowledge graph, and upserts the case
// embedding into the vector index. Returns the stored case id.
func (g *Generator) Save(ctx context.Context, cand Candidate) (string, error) {
	if cand.Case == nil {
		return "", fmt.Errorf("save: nil case: %w", graph.ErrInvalidInput)
	}
	c := *cand.Case
	if c.ID == "" {
		c.ID = graph.NewCaseID(c.Title, c.Steps, c.ExpectedResult)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := g.store.AddCase(ctx, &c, cand.Entities); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	err := g.index.Upsert(ctx, vector.Record{
		CaseID:    c.ID,
		Vector:    g.emb.Embed(c.Text()),
		Metadata:  map[string]string{"title": c.Title},
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return c.ID, nil
}

// Remove tombstones a case in the knowledge graph and deletes it from the
// vector index. Idempotent.
func (g *Generator) Remove(ctx context.Context, caseID string) error {
	if err := g.store.RemoveCase(ctx, caseID); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := g.index.Delete(ctx, caseID); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// overlapRatio is |neighbors ∩ extracted| / |extracted|.
func overlapRatio(neighborIDs, extractedIDs []string) float64 {
	if len(extractedIDs) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(neighborIDs))
	for _, id := range neighborIDs {
		set[id] = struct{}{}
	}
	shared := 0
	for _, id := range extractedIDs {
		if _, ok := set[id]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(extractedIDs))
}
