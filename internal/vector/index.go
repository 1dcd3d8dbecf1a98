// Package vector provides a persistent similarity index over test-case
// embeddings. Retrieval by embedding similarity is an independent query path
// from retrieval by graph relation; the generator combines the two.
package vector

import (
	"context"
	"sort"
	"time"
)

// NoMinScore disables the minimum-score filter on Query. Cosine similarity
// is bounded below by -1, so no hit is ever excluded at this threshold.
const NoMinScore = -2

// Record is one embedding entry, keyed by test-case id.
type Record struct {
	CaseID    string            `json:"case_id"`
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Hit is a single similarity query result.
type Hit struct {
	CaseID string
	Score  float64
}

// Index is the interface for embedding similarity search.
//
// Vector dimensionality is fixed by the first upsert; later records must
// match it. Delete is idempotent; Query on an unknown or empty index returns
// an empty result.
type Index interface {
	// Upsert inserts or replaces the record for rec.CaseID.
	Upsert(ctx context.Context, rec Record) error

	// Query returns up to topK hits ordered by descending cosine similarity;
	// ties broken by most-recent CreatedAt, then ascending case id. Hits
	// scoring below minScore are excluded (pass NoMinScore to disable).
	Query(ctx context.Context, vec []float32, topK int, minScore float64) ([]Hit, error)

	// Delete removes the record for caseID. No-op when absent.
	Delete(ctx context.Context, caseID string) error

	// Len returns the number of records in the index.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the index.
	Close() error
}

// scoredRecord pairs a hit with the tie-break timestamp.
type scoredRecord struct {
	hit       Hit
	createdAt time.Time
}

// rankHits applies the index ordering rules and trims to topK.
func rankHits(scored []scoredRecord, topK int, minScore float64) []Hit {
	filtered := scored[:0]
	for _, s := range scored {
		if s.hit.Score >= minScore {
			filtered = append(filtered, s)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].hit.Score != filtered[j].hit.Score {
			return filtered[i].hit.Score > filtered[j].hit.Score
		}
		if !filtered[i].createdAt.Equal(filtered[j].createdAt) {
			return filtered[i].createdAt.After(filtered[j].createdAt)
		}
		return filtered[i].hit.CaseID < filtered[j].hit.CaseID
	})
	if topK >= 0 && len(filtered) > topK {
		filtered = filtered[:topK]
	}
	hits := make([]Hit, len(filtered))
	for i, s := range filtered {
		hits[i] = s.hit
	}
	return hits
}

// isZero reports whether vec has no non-zero component.
func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
