package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/coder/hnsw"
	"github.com/dgraph-io/badger/v4"

	"github.com/casegraph/casegraph/internal/embedder"
	"github.com/casegraph/casegraph/internal/graph"
)

const (
	prefixRecord = "v:"
	keyDims      = "meta:dims"
)

// overfetchFactor widens the HNSW candidate search so that exact re-scoring
// and min-score filtering still fill topK.
const overfetchFactor = 4

// DurableIndex implements Index with BadgerDB-backed records and an HNSW
// graph for approximate candidate search. The HNSW graph is rebuilt from the
// records at open time; candidates are re-scored with exact cosine
// similarity so query ordering is deterministic.
type DurableIndex struct {
	db *badger.DB

	mu   sync.RWMutex
	g    *hnsw.Graph[string]
	dims int
}

// Open opens (or creates) a durable vector index at dbPath and rebuilds the
// in-memory HNSW graph from the stored records.
func Open(dbPath string) (*DurableIndex, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, &graph.StorageError{Op: "open vector db", Err: err}
	}

	idx := &DurableIndex{db: db, g: newSearchGraph()}
	if err := idx.rebuild(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func newSearchGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	return g
}

// rebuild loads every record into a fresh HNSW graph.
func (d *DurableIndex) rebuild() error {
	g := newSearchGraph()
	dims := 0
	err := d.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get([]byte(keyDims)); err == nil {
			if err := item.Value(func(val []byte) error {
				n, err := strconv.Atoi(string(val))
				if err == nil {
					dims = n
				}
				return err
			}); err != nil {
				return fmt.Errorf("read dims: %w", err)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefixRecord)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			g.Add(hnsw.MakeNode(rec.CaseID, rec.Vector))
		}
		return nil
	})
	if err != nil {
		return &graph.StorageError{Op: "rebuild vector index", Err: err}
	}
	d.mu.Lock()
	d.g = g
	d.dims = dims
	d.mu.Unlock()
	return nil
}

func (d *DurableIndex) Upsert(_ context.Context, rec Record) error {
	if rec.CaseID == "" {
		return fmt.Errorf("upsert: empty case id: %w", graph.ErrInvalidInput)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("upsert %s: empty vector: %w", rec.CaseID, graph.ErrInvalidInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dims == 0 {
		d.dims = len(rec.Vector)
	} else if len(rec.Vector) != d.dims {
		return fmt.Errorf("upsert %s: vector has %d dimensions, index has %d: %w",
			rec.CaseID, len(rec.Vector), d.dims, graph.ErrInvalidInput)
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.CaseID, err)
	}
	err = d.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyDims), []byte(strconv.Itoa(d.dims))); err != nil {
			return err
		}
		return txn.Set(recordKey(rec.CaseID), data)
	})
	if err != nil {
		return &graph.StorageError{Op: fmt.Sprintf("upsert %s", rec.CaseID), Err: err}
	}

	d.g.Delete(rec.CaseID)
	d.g.Add(hnsw.MakeNode(rec.CaseID, rec.Vector))
	return nil
}

func (d *DurableIndex) Query(_ context.Context, vec []float32, topK int, minScore float64) ([]Hit, error) {
	if topK <= 0 || isZero(vec) {
		return nil, nil
	}

	d.mu.RLock()
	if d.g.Len() == 0 {
		d.mu.RUnlock()
		return nil, nil
	}
	candidates := d.g.Search(vec, topK*overfetchFactor)
	d.mu.RUnlock()

	scored := make([]scoredRecord, 0, len(candidates))
	err := d.db.View(func(txn *badger.Txn) error {
		for _, cand := range candidates {
			item, err := txn.Get(recordKey(cand.Key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // deleted record still present in search graph; skip
			}
			if err != nil {
				return err
			}
			var rec Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			scored = append(scored, scoredRecord{
				hit:       Hit{CaseID: rec.CaseID, Score: embedder.Cosine(vec, rec.Vector)},
				createdAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &graph.StorageError{Op: "vector query", Err: err}
	}
	return rankHits(scored, topK, minScore), nil
}

func (d *DurableIndex) Delete(_ context.Context, caseID string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(caseID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return &graph.StorageError{Op: fmt.Sprintf("delete %s", caseID), Err: err}
	}
	d.mu.Lock()
	d.g.Delete(caseID)
	d.mu.Unlock()
	return nil
}

func (d *DurableIndex) Len(_ context.Context) (int, error) {
	count := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixRecord)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, &graph.StorageError{Op: "vector len", Err: err}
	}
	return count, nil
}

func (d *DurableIndex) Close() error {
	return d.db.Close()
}

func recordKey(caseID string) []byte {
	return []byte(prefixRecord + caseID)
}
