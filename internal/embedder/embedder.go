// Package embedder produces fixed-length vectors for text without any
// network calls, using hashed bag-of-words features. The same input always
// yields a bit-identical vector, which keeps similarity ranking reproducible
// and cacheable.
package embedder

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultDims is the default embedding dimensionality.
const DefaultDims = 384

// Embedder generates deterministic local embeddings of a fixed
// dimensionality.
type Embedder struct {
	dims int
}

// New creates an Embedder with the given dimensionality. Non-positive dims
// fall back to DefaultDims.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDims
	}
	return &Embedder{dims: dims}
}

// Dims returns the vector dimensionality.
func (e *Embedder) Dims() int { return e.dims }

// Embed returns the L2-normalized hashed bag-of-words vector for text.
// Unigrams and adjacent-token bigrams are hashed into buckets with xxhash.
// Empty or whitespace-only input returns the zero vector; Embed never errors.
func (e *Embedder) Embed(text string) []float32 {
	vec := make([]float32, e.dims)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for i, tok := range tokens {
		vec[e.bucket(tok)]++
		if i+1 < len(tokens) {
			vec[e.bucket(tokens[i]+"\x1f"+tokens[i+1])]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (e *Embedder) bucket(token string) int {
	return int(xxhash.Sum64String(token) % uint64(e.dims))
}

// tokenize lowercases text and splits it on any non-letter, non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Cosine returns the cosine similarity of two equal-length vectors, in
// [-1, 1]. Mismatched lengths or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
