package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/graph"
)

// MemoryIndex implements Index with an in-process map and exhaustive cosine
// scan. It applies the same ordering rules as DurableIndex, which makes it a
// drop-in for tests and for ephemeral configurations.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]Record
	dims    int
}

// NewMemoryIndex creates an empty in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]Record)}
}

func (m *MemoryIndex) Upsert(_ context.Context, rec Record) error {
	if rec.CaseID == "" {
		return fmt.Errorf("upsert: empty case id: %w", graph.ErrInvalidInput)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("upsert %s: empty vector: %w", rec.CaseID, graph.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dims == 0 {
		m.dims = len(rec.Vector)
	} else if len(rec.Vector) != m.dims {
		return fmt.Errorf("upsert %s: vector has %d dimensions, index has %d: %w",
			rec.CaseID, len(rec.Vector), m.dims, graph.ErrInvalidInput)
	}
	rec.Vector = append([]float32(nil), rec.Vector...)
	m.records[rec.CaseID] = rec
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, vec []float32, topK int, minScore float64) ([]Hit, error) {
	if topK <= 0 || isZero(vec) {
		return nil, nil
	}
	m.mu.RLock()
	scored := make([]scoredRecord, 0, len(m.records))
	for _, rec := range m.records {
		scored = append(scored, scoredRecord{
			hit:       Hit{CaseID: rec.CaseID, Score: embedder.Cosine(vec, rec.Vector)},
			createdAt: rec.CreatedAt,
		})
	}
	m.mu.RUnlock()
	return rankHits(scored, topK, minScore), nil
}

func (m *MemoryIndex) Delete(_ context.Context, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, caseID)
	return nil
}

func (m *MemoryIndex) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemoryIndex) Close() error { return nil }
